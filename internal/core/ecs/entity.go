package ecs

import "fmt"

// Entity is a generational handle. Index addresses the world-wide slot,
// Version increments every time the slot is freed.
type Entity struct {
	Index   int32
	Version int32
}

// InvalidEntity is the handle returned when no entity could be produced.
var InvalidEntity = Entity{Index: -1, Version: 0}

// IsValid reports whether the handle could refer to a live world entity.
// It says nothing about whether that entity still exists.
func (e Entity) IsValid() bool { return e.Index >= 0 && e.Version > 0 }

// IsTemporary reports whether the handle was issued by a CommandBuffer.
// A temporary handle only means something within the batch that issued it.
func (e Entity) IsTemporary() bool { return e.Index < -1 }

func (e Entity) String() string {
	if e.IsTemporary() {
		return fmt.Sprintf("Entity(tmp:%d/%d)", tempOrdinal(e), e.Version)
	}
	return fmt.Sprintf("Entity(%d:%d)", e.Index, e.Version)
}

// tempEntity encodes the batch number in Version so handles from an earlier
// batch never resolve against a later one.
func tempEntity(ordinal, batch int32) Entity { return Entity{Index: -2 - ordinal, Version: batch} }

func tempOrdinal(e Entity) int32 { return -2 - e.Index }

// entityMeta locates a live entity inside archetype storage.
type entityMeta struct {
	archetype *Archetype
	chunk     int
	row       int
	version   int32
	alive     bool
}

// entityPool manages entity slots with generational versions and a free list.
type entityPool struct {
	metas    []entityMeta
	freeList []int32
	alive    int
}

func newEntityPool(capacity int) *entityPool {
	if capacity < 0 {
		capacity = 0
	}
	return &entityPool{
		metas:    make([]entityMeta, 0, capacity),
		freeList: make([]int32, 0, capacity/4),
	}
}

// create hands out a slot, reusing the most recently freed index first.
// A reused slot keeps the version bumped by destroy.
func (p *entityPool) create() Entity {
	var idx int32
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else {
		idx = int32(len(p.metas))
		p.metas = append(p.metas, entityMeta{version: 1})
	}
	m := &p.metas[idx]
	m.alive = true
	p.alive++
	return Entity{Index: idx, Version: m.version}
}

func (p *entityPool) meta(e Entity) (*entityMeta, bool) {
	if e.Index < 0 || int(e.Index) >= len(p.metas) {
		return nil, false
	}
	m := &p.metas[e.Index]
	if !m.alive || m.version != e.Version {
		return nil, false
	}
	return m, true
}

func (p *entityPool) destroy(e Entity) {
	m := &p.metas[e.Index]
	m.alive = false
	m.version++
	m.archetype = nil
	m.chunk, m.row = -1, -1
	p.alive--
	p.freeList = append(p.freeList, e.Index)
}
