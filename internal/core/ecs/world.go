package ecs

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config sizes world storage. It is passed explicitly at construction; the
// core reads no ambient configuration.
type Config struct {
	ChunkCapacity     int
	InitialArchetypes int
	InitialEntities   int
}

// DefaultConfig returns the storage sizes used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		ChunkCapacity:     128,
		InitialArchetypes: 16,
		InitialEntities:   1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkCapacity <= 0 {
		c.ChunkCapacity = d.ChunkCapacity
	}
	if c.InitialArchetypes <= 0 {
		c.InitialArchetypes = d.InitialArchetypes
	}
	if c.InitialEntities <= 0 {
		c.InitialEntities = d.InitialEntities
	}
	return c
}

// World owns entity metadata, archetype storage and the structural command
// buffer. It is driven by a single simulation goroutine.
type World struct {
	cfg        Config
	log        *zap.Logger
	entities   *entityPool
	archetypes []*Archetype
	byMask     map[typeMask]*Archetype
	empty      *Archetype
	commands   *CommandBuffer
	iterating  atomic.Int32
}

// NewWorld creates an empty world. A nil logger disables logging.
func NewWorld(cfg Config, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	w := &World{
		cfg:        cfg,
		log:        log,
		entities:   newEntityPool(cfg.InitialEntities),
		archetypes: make([]*Archetype, 0, cfg.InitialArchetypes),
		byMask:     make(map[typeMask]*Archetype, cfg.InitialArchetypes),
	}
	w.empty = w.archetypeFor(typeMask{})
	w.commands = NewCommandBuffer(log)
	return w
}

// Config returns the storage configuration in effect.
func (w *World) Config() Config { return w.cfg }

// CommandBuffer returns the world's structural command buffer, played back
// by the Scheduler at sync points.
func (w *World) CommandBuffer() *CommandBuffer { return w.commands }

// Archetypes returns all archetypes in creation order.
func (w *World) Archetypes() []*Archetype {
	return append([]*Archetype(nil), w.archetypes...)
}

// GetOrCreateArchetype returns the archetype for exactly the given type set.
// Order and duplicates in ids do not matter.
func (w *World) GetOrCreateArchetype(ids ...ComponentTypeID) (*Archetype, error) {
	for _, id := range ids {
		if _, ok := lookupComponent(id); !ok {
			return nil, eris.Wrapf(ErrComponentNotRegistered, "component type id %d", id)
		}
	}
	return w.archetypeFor(maskOf(ids)), nil
}

func (w *World) archetypeFor(mask typeMask) *Archetype {
	if a, ok := w.byMask[mask]; ok {
		return a
	}
	a := newArchetype(w, len(w.archetypes), mask, w.cfg.ChunkCapacity)
	w.archetypes = append(w.archetypes, a)
	w.byMask[mask] = a
	w.log.Debug("archetype created",
		zap.Int("archetype", a.id),
		zap.Int("components", len(a.types)))
	return a
}

func (w *World) checkStructural() error {
	if w.iterating.Load() > 0 {
		return ErrStructuralChange
	}
	return nil
}

// CreateEntity creates an entity with no components.
func (w *World) CreateEntity() (Entity, error) {
	if err := w.checkStructural(); err != nil {
		return InvalidEntity, err
	}
	return w.spawn(w.empty), nil
}

// CreateEntityIn creates an entity directly in archetype a with every
// component zero-valued, avoiding one archetype move per component.
// a must belong to w.
func (w *World) CreateEntityIn(a *Archetype) (Entity, error) {
	if err := w.checkStructural(); err != nil {
		return InvalidEntity, err
	}
	if err := w.owns(a); err != nil {
		return InvalidEntity, err
	}
	return w.spawn(a), nil
}

func (w *World) owns(a *Archetype) error {
	if a == nil || a.world != w {
		return ErrForeignArchetype
	}
	return nil
}

func (w *World) spawn(a *Archetype) Entity {
	e := w.entities.create()
	m := &w.entities.metas[e.Index]
	m.archetype = a
	m.chunk, m.row = a.push(e)
	return e
}

// DestroyEntity removes e and all of its components. Its index is recycled
// with a bumped version.
func (w *World) DestroyEntity(e Entity) error {
	if err := w.checkStructural(); err != nil {
		return err
	}
	m, ok := w.entities.meta(e)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "destroy %v", e)
	}
	w.detach(m)
	w.entities.destroy(e)
	return nil
}

// detach removes the entity at m from its archetype and patches the meta of
// whichever entity was swapped into its row.
func (w *World) detach(m *entityMeta) {
	chunk, row := m.chunk, m.row
	if moved, ok := m.archetype.removeAt(chunk, row); ok {
		mm := &w.entities.metas[moved.Index]
		mm.chunk, mm.row = chunk, row
	}
}

// IsAlive reports whether e refers to a live entity.
func (w *World) IsAlive(e Entity) bool {
	_, ok := w.entities.meta(e)
	return ok
}

// AliveCount returns the number of live entities.
func (w *World) AliveCount() int { return w.entities.alive }

// ArchetypeOf returns the archetype currently holding e.
func (w *World) ArchetypeOf(e Entity) (*Archetype, error) {
	m, ok := w.entities.meta(e)
	if !ok {
		return nil, eris.Wrapf(ErrEntityNotFound, "lookup %v", e)
	}
	return m.archetype, nil
}

// ComponentTypes returns e's live component set in ascending id order.
func (w *World) ComponentTypes(e Entity) ([]ComponentTypeID, error) {
	a, err := w.ArchetypeOf(e)
	if err != nil {
		return nil, err
	}
	return a.Types(), nil
}

// MoveEntity relocates e into dst, copying shared columns, zeroing new
// ones and dropping the rest. dst must belong to w.
func (w *World) MoveEntity(e Entity, dst *Archetype) error {
	if err := w.checkStructural(); err != nil {
		return err
	}
	if err := w.owns(dst); err != nil {
		return eris.Wrapf(err, "move %v", e)
	}
	m, ok := w.entities.meta(e)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "move %v", e)
	}
	w.move(e, m, dst)
	return nil
}

func (w *World) move(e Entity, m *entityMeta, dst *Archetype) {
	src := m.archetype
	if src == dst {
		return
	}
	chunk, row := dst.pushFrom(e, src, m.chunk, m.row)
	w.detach(m)
	m.archetype = dst
	m.chunk, m.row = chunk, row
}

func (w *World) addComponent(e Entity, value componentValue) error {
	if err := w.checkStructural(); err != nil {
		return err
	}
	id := value.typeID()
	m, ok := w.entities.meta(e)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "add %s to %v", ComponentTypeName(id), e)
	}
	if m.archetype.mask.has(id) {
		return eris.Wrapf(ErrComponentExists, "add %s to %v", ComponentTypeName(id), e)
	}
	mask := m.archetype.mask
	mask.set(id)
	dst := w.archetypeFor(mask)
	w.move(e, m, dst)
	slot := dst.slots[id]
	value.store(dst.chunks[m.chunk].columns[slot], m.row)
	return nil
}

func (w *World) removeComponent(e Entity, id ComponentTypeID) error {
	if err := w.checkStructural(); err != nil {
		return err
	}
	m, ok := w.entities.meta(e)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "remove %s from %v", ComponentTypeName(id), e)
	}
	if !m.archetype.mask.has(id) {
		return eris.Wrapf(ErrComponentMissing, "remove %s from %v", ComponentTypeName(id), e)
	}
	mask := m.archetype.mask
	mask.unset(id)
	w.move(e, m, w.archetypeFor(mask))
	return nil
}

func (w *World) locate(e Entity, id ComponentTypeID) (column, int, error) {
	m, ok := w.entities.meta(e)
	if !ok {
		return nil, 0, eris.Wrapf(ErrEntityNotFound, "access %s on %v", ComponentTypeName(id), e)
	}
	slot := m.archetype.slots[id]
	if slot < 0 {
		return nil, 0, eris.Wrapf(ErrComponentMissing, "access %s on %v", ComponentTypeName(id), e)
	}
	return m.archetype.chunks[m.chunk].columns[slot], m.row, nil
}

// Add attaches a T with value v to e, moving e to the matching archetype.
func Add[T any](w *World, e Entity, v T) error {
	id, err := GetComponentTypeID[T]()
	if err != nil {
		return err
	}
	return w.addComponent(e, typedValue[T]{id: id, v: v})
}

// Remove detaches T from e, moving e to the matching archetype.
func Remove[T any](w *World, e Entity) error {
	id, err := GetComponentTypeID[T]()
	if err != nil {
		return err
	}
	return w.removeComponent(e, id)
}

// Get returns a pointer to e's T. The pointer is valid until the next
// structural change.
func Get[T any](w *World, e Entity) (*T, error) {
	id, err := GetComponentTypeID[T]()
	if err != nil {
		return nil, err
	}
	col, row, err := w.locate(e, id)
	if err != nil {
		return nil, err
	}
	return &col.(*typedColumn[T]).data[row], nil
}

// Set overwrites e's existing T. It is not a structural change and may be
// called during iteration.
func Set[T any](w *World, e Entity, v T) error {
	p, err := Get[T](w, e)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Has reports whether e is alive and carries a T.
func Has[T any](w *World, e Entity) bool {
	id, err := GetComponentTypeID[T]()
	if err != nil {
		return false
	}
	m, ok := w.entities.meta(e)
	return ok && m.archetype.mask.has(id)
}
