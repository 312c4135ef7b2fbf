package system

import (
	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/event"
	"github.com/l1jgo/detsim/internal/core/rng"
)

// SpawnerSystem emits children from Spawner entities through the command
// buffer. A child's stable id and its random rolls derive from the parent's
// stable id, the tick and the child ordinal only.
// Phase 1 (Simulation).
type SpawnerSystem struct {
	ids     component.IDs
	match   *Match
	spawned *event.Queue[event.Spawned]
	query   *ecs.Query
	world   *ecs.World
	tick    uint64
	ctx     rng.NetworkContext
}

func NewSpawnerSystem(ids component.IDs, match *Match, bus *event.Bus) *SpawnerSystem {
	return &SpawnerSystem{ids: ids, match: match, spawned: event.Register[event.Spawned](bus)}
}

func (s *SpawnerSystem) Name() string { return "spawner" }

func (s *SpawnerSystem) OnCreate(w *ecs.World) error {
	s.world = w
	s.query = w.QueryAll(s.ids.Spawner, s.ids.NetworkIdentity, s.ids.Position)
	w.WarmupQuery(s.query)
	return nil
}

func (s *SpawnerSystem) OnUpdate(w *ecs.World, tick uint64) error {
	s.tick = tick
	s.ctx = s.match.Context(tick, ecs.PhaseSimulation)
	return w.ForEachChunk(s.query, s)
}

func (s *SpawnerSystem) OnDestroy(*ecs.World) error { return nil }

// ChildID is the stable id of the n-th child a parent spawns at tick.
func ChildID(parent, tick uint64, n uint32) uint64 {
	return rng.Combine(rng.Combine(parent, tick), uint64(n))
}

func (s *SpawnerSystem) Execute(a *ecs.Archetype, c *ecs.Chunk) error {
	si, _ := a.TryGetColumnIndex(s.ids.Spawner)
	ni, _ := a.TryGetColumnIndex(s.ids.NetworkIdentity)
	pi, _ := a.TryGetColumnIndex(s.ids.Position)
	spawners := ecs.Column[component.Spawner](c, si)
	ids := ecs.Column[component.NetworkIdentity](c, ni)
	pos := ecs.Column[component.Position](c, pi)
	steered := a.Has(s.ids.Steered)
	cb := s.world.CommandBuffer()

	for i := range spawners {
		sp := spawners[i]
		if sp.Interval == 0 || s.tick%uint64(sp.Interval) != 0 {
			continue
		}
		parent := ids[i].StableID
		for n := uint32(0); n < sp.Burst; n++ {
			child := ChildID(parent, s.tick, n)
			r := rng.CreateForEntity(s.ctx, "spawn", child, 0, n)

			kw := cb.At(int64(child))
			e := kw.CreateEntity()
			ecs.DeferAdd(kw, e, pos[i])
			ecs.DeferAdd(kw, e, component.Velocity{
				X: (r.NextDouble01()*2 - 1) * sp.Speed,
				Y: (r.NextDouble01()*2 - 1) * sp.Speed,
			})
			ecs.DeferAdd(kw, e, component.NetworkIdentity{StableID: child})
			maxHP := int32(50 + r.NextInt(51))
			ecs.DeferAdd(kw, e, component.Health{Current: maxHP, Max: maxHP})
			if sp.ChildLifetime > 0 {
				ecs.DeferAdd(kw, e, component.Lifetime{RemainingTicks: sp.ChildLifetime})
			}
			if steered {
				ecs.DeferAdd(kw, e, component.Steered{Strength: sp.Speed * 0.25})
			}
			s.spawned.Emit(event.Spawned{StableID: child, Tick: s.tick})
		}
	}
	return nil
}
