package ecs

import (
	"encoding/binary"
	"fmt"
	"io"
)

// column is one component array inside a chunk. Implementations are typed;
// the interface exists so archetype moves can copy rows without knowing T.
type column interface {
	typeID() ComponentTypeID
	len() int
	appendZero()
	appendFrom(src column, srcRow int)
	assignFrom(row int, src column, srcRow int)
	pop()
	reset()
	encode(w io.Writer) error
}

type typedColumn[T any] struct {
	id   ComponentTypeID
	data []T
}

func (c *typedColumn[T]) typeID() ComponentTypeID { return c.id }
func (c *typedColumn[T]) len() int                 { return len(c.data) }

func (c *typedColumn[T]) appendZero() {
	var zero T
	c.data = append(c.data, zero)
}

func (c *typedColumn[T]) appendFrom(src column, srcRow int) {
	c.data = append(c.data, src.(*typedColumn[T]).data[srcRow])
}

func (c *typedColumn[T]) assignFrom(row int, src column, srcRow int) {
	c.data[row] = src.(*typedColumn[T]).data[srcRow]
}

func (c *typedColumn[T]) pop() {
	var zero T
	last := len(c.data) - 1
	c.data[last] = zero
	c.data = c.data[:last]
}

func (c *typedColumn[T]) reset() {
	clear(c.data)
	c.data = c.data[:0]
}

// encode writes the raw little-endian column contents. It fails for
// component types without a fixed size (strings, slices, maps, pointers).
func (c *typedColumn[T]) encode(w io.Writer) error {
	if len(c.data) == 0 {
		return nil
	}
	if binary.Size(c.data) < 0 {
		return fmt.Errorf("ecs: component %s is not fixed-size", ComponentTypeName(c.id))
	}
	return binary.Write(w, binary.LittleEndian, c.data)
}

// componentValue carries a typed value through the command buffer until
// playback writes it into its destination column.
type componentValue interface {
	typeID() ComponentTypeID
	store(col column, row int)
}

type typedValue[T any] struct {
	id ComponentTypeID
	v  T
}

func (v typedValue[T]) typeID() ComponentTypeID { return v.id }

func (v typedValue[T]) store(col column, row int) {
	col.(*typedColumn[T]).data[row] = v.v
}

// typeMask is a bitset over ComponentTypeIDs; it is the archetype map key.
type typeMask [MaxComponentTypes / 64]uint64

func (m typeMask) has(id ComponentTypeID) bool {
	return m[id/64]&(1<<(uint(id)%64)) != 0
}

func (m *typeMask) set(id ComponentTypeID) {
	m[id/64] |= 1 << (uint(id) % 64)
}

func (m *typeMask) unset(id ComponentTypeID) {
	m[id/64] &^= 1 << (uint(id) % 64)
}

func (m typeMask) containsAll(other typeMask) bool {
	for i := range m {
		if m[i]&other[i] != other[i] {
			return false
		}
	}
	return true
}

func (m typeMask) intersects(other typeMask) bool {
	for i := range m {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

func (m typeMask) isEmpty() bool {
	for i := range m {
		if m[i] != 0 {
			return false
		}
	}
	return true
}

// ids lists the set members in ascending order.
func (m typeMask) ids() []ComponentTypeID {
	var out []ComponentTypeID
	for word, bits := range m {
		for bit := 0; bit < 64; bit++ {
			if bits&(1<<uint(bit)) != 0 {
				out = append(out, ComponentTypeID(word*64+bit))
			}
		}
	}
	return out
}

func maskOf(ids []ComponentTypeID) typeMask {
	var m typeMask
	for _, id := range ids {
		m.set(id)
	}
	return m
}
