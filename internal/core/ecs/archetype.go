package ecs

import "fmt"

// Chunk is a fixed-capacity block of columnar component storage. Every
// column and the entity column share the same length.
type Chunk struct {
	entities []Entity
	columns  []column
	capacity int
}

// Count returns the number of entities stored in the chunk.
func (c *Chunk) Count() int { return len(c.entities) }

// Capacity returns the maximum number of entities the chunk can hold.
func (c *Chunk) Capacity() int { return c.capacity }

// Entities returns the entity column. The slice aliases chunk storage and
// must not be modified.
func (c *Chunk) Entities() []Entity { return c.entities }

func (c *Chunk) full() bool { return len(c.entities) >= c.capacity }

// Column returns a typed read/write view over column index for the chunk's
// Count entities. index comes from Archetype.TryGetColumnIndex; asking for
// the wrong T is a programming error and panics.
func Column[T any](c *Chunk, index int) []T {
	col, ok := c.columns[index].(*typedColumn[T])
	if !ok {
		var zero T
		panic(fmt.Sprintf("ecs: column %d holds %s, not %T",
			index, ComponentTypeName(c.columns[index].typeID()), zero))
	}
	return col.data
}

// Archetype owns every entity whose component set equals its type set.
// Only the tail chunk may be partially filled.
type Archetype struct {
	world    *World
	id       int
	mask     typeMask
	types    []ComponentTypeID
	infos    []componentInfo
	slots    [MaxComponentTypes]int16
	chunks   []*Chunk
	spare    *Chunk
	count    int
	capacity int
}

func newArchetype(w *World, id int, mask typeMask, capacity int) *Archetype {
	a := &Archetype{
		world:    w,
		id:       id,
		mask:     mask,
		types:    mask.ids(),
		capacity: capacity,
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	a.infos = make([]componentInfo, len(a.types))
	for i, t := range a.types {
		info, _ := lookupComponent(t)
		a.infos[i] = info
		a.slots[t] = int16(i)
	}
	return a
}

// ID is the archetype's creation ordinal inside its World.
func (a *Archetype) ID() int { return a.id }

// Types returns the sorted component type set.
func (a *Archetype) Types() []ComponentTypeID {
	return append([]ComponentTypeID(nil), a.types...)
}

// Has reports whether the archetype stores id.
func (a *Archetype) Has(id ComponentTypeID) bool {
	return id >= 0 && int(id) < MaxComponentTypes && a.mask.has(id)
}

// TryGetColumnIndex resolves the column slot for id, identical for every
// chunk of the archetype.
func (a *Archetype) TryGetColumnIndex(id ComponentTypeID) (int, bool) {
	if id < 0 || int(id) >= MaxComponentTypes {
		return -1, false
	}
	slot := a.slots[id]
	return int(slot), slot >= 0
}

// Chunks returns the chunk list in allocation order.
func (a *Archetype) Chunks() []*Chunk { return a.chunks }

// Len returns the number of entities across all chunks.
func (a *Archetype) Len() int { return a.count }

func (a *Archetype) newChunk() *Chunk {
	if c := a.spare; c != nil {
		a.spare = nil
		return c
	}
	c := &Chunk{
		entities: make([]Entity, 0, a.capacity),
		columns:  make([]column, len(a.infos)),
		capacity: a.capacity,
	}
	for i, info := range a.infos {
		c.columns[i] = info.newColumn(a.capacity)
	}
	return c
}

func (a *Archetype) tail() (int, *Chunk) {
	if len(a.chunks) == 0 || a.chunks[len(a.chunks)-1].full() {
		a.chunks = append(a.chunks, a.newChunk())
	}
	idx := len(a.chunks) - 1
	return idx, a.chunks[idx]
}

// push appends e with zero-valued components.
func (a *Archetype) push(e Entity) (int, int) {
	idx, c := a.tail()
	row := len(c.entities)
	c.entities = append(c.entities, e)
	for _, col := range c.columns {
		col.appendZero()
	}
	a.count++
	return idx, row
}

// pushFrom appends e copying every column shared with src; columns src
// lacks start zeroed.
func (a *Archetype) pushFrom(e Entity, src *Archetype, srcChunk, srcRow int) (int, int) {
	idx, c := a.tail()
	row := len(c.entities)
	c.entities = append(c.entities, e)
	from := src.chunks[srcChunk]
	for i, col := range c.columns {
		if slot := src.slots[a.types[i]]; slot >= 0 {
			col.appendFrom(from.columns[slot], srcRow)
		} else {
			col.appendZero()
		}
	}
	a.count++
	return idx, row
}

// removeAt deletes the row by moving the archetype's last entity into it.
// It returns the entity that changed location, if any.
func (a *Archetype) removeAt(chunkIdx, row int) (Entity, bool) {
	tailIdx := len(a.chunks) - 1
	tail := a.chunks[tailIdx]
	last := len(tail.entities) - 1

	moved, ok := InvalidEntity, false
	if chunkIdx != tailIdx || row != last {
		dst := a.chunks[chunkIdx]
		for i, col := range dst.columns {
			col.assignFrom(row, tail.columns[i], last)
		}
		moved = tail.entities[last]
		dst.entities[row] = moved
		ok = true
	}
	for _, col := range tail.columns {
		col.pop()
	}
	tail.entities = tail.entities[:last]
	a.count--

	if len(tail.entities) == 0 {
		a.chunks[tailIdx] = nil
		a.chunks = a.chunks[:tailIdx]
		a.spare = tail
	}
	return moved, ok
}
