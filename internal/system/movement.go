package system

import (
	"context"

	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
)

// MovementSystem adds Velocity to Position once per tick.
// Phase 1 (Simulation).
type MovementSystem struct {
	ids     component.IDs
	workers int
	query   *ecs.Query
}

// NewMovementSystem returns a movement system; workers > 1 spreads chunks
// over that many goroutines.
func NewMovementSystem(ids component.IDs, workers int) *MovementSystem {
	return &MovementSystem{ids: ids, workers: workers}
}

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) OnCreate(w *ecs.World) error {
	s.query = w.QueryAll(s.ids.Position, s.ids.Velocity)
	w.WarmupQuery(s.query)
	return nil
}

func (s *MovementSystem) OnUpdate(w *ecs.World, _ uint64) error {
	if s.workers > 1 {
		return w.ForEachChunkParallel(context.Background(), s.query, s.workers, s)
	}
	return w.ForEachChunk(s.query, s)
}

func (s *MovementSystem) OnDestroy(*ecs.World) error { return nil }

// Execute moves one chunk. Each entity's result depends only on its own
// prior state, so chunk order does not matter.
func (s *MovementSystem) Execute(a *ecs.Archetype, c *ecs.Chunk) error {
	pi, _ := a.TryGetColumnIndex(s.ids.Position)
	vi, _ := a.TryGetColumnIndex(s.ids.Velocity)
	pos := ecs.Column[component.Position](c, pi)
	vel := ecs.Column[component.Velocity](c, vi)
	for i := range pos {
		pos[i].X += vel[i].X
		pos[i].Y += vel[i].Y
		pos[i].Z += vel[i].Z
	}
	return nil
}
