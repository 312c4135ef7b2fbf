package system

import (
	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/event"
)

// LifetimeSystem counts Lifetime down and queues destruction at zero,
// keyed by stable id so the destroy order is the same on every peer.
// Phase 2 (LateSimulation).
type LifetimeSystem struct {
	ids     component.IDs
	expired *event.Queue[event.Expired]
	query   *ecs.Query
	tick    uint64
	world   *ecs.World
}

func NewLifetimeSystem(ids component.IDs, bus *event.Bus) *LifetimeSystem {
	return &LifetimeSystem{ids: ids, expired: event.Register[event.Expired](bus)}
}

func (s *LifetimeSystem) Name() string { return "lifetime" }

func (s *LifetimeSystem) OnCreate(w *ecs.World) error {
	s.world = w
	s.query = w.QueryAll(s.ids.Lifetime, s.ids.NetworkIdentity)
	w.WarmupQuery(s.query)
	return nil
}

func (s *LifetimeSystem) OnUpdate(w *ecs.World, tick uint64) error {
	s.tick = tick
	return w.ForEachChunk(s.query, s)
}

func (s *LifetimeSystem) OnDestroy(*ecs.World) error { return nil }

func (s *LifetimeSystem) Execute(a *ecs.Archetype, c *ecs.Chunk) error {
	li, _ := a.TryGetColumnIndex(s.ids.Lifetime)
	ni, _ := a.TryGetColumnIndex(s.ids.NetworkIdentity)
	lives := ecs.Column[component.Lifetime](c, li)
	ids := ecs.Column[component.NetworkIdentity](c, ni)
	cb := s.world.CommandBuffer()
	for i, e := range c.Entities() {
		if lives[i].RemainingTicks <= 0 {
			continue // already queued
		}
		lives[i].RemainingTicks--
		if lives[i].RemainingTicks > 0 {
			continue
		}
		id := ids[i].StableID
		cb.At(int64(id)).DestroyEntity(e)
		s.expired.Emit(event.Expired{StableID: id, Entity: e, Tick: s.tick})
	}
	return nil
}
