package system

import (
	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/rng"
	"github.com/l1jgo/detsim/internal/scripting"
)

// SteeringSystem asks the Lua steer function for a velocity change for every
// Steered entity. Each call gets a fresh stream keyed by the entity's stable
// id; the match stream is drawn once per tick for the shared wind.
// Phase 1 (Simulation), before movement.
type SteeringSystem struct {
	ids   component.IDs
	lua   *scripting.Engine
	match *Match
	query *ecs.Query
	tick  uint64
	wind  float64
	ctx   rng.NetworkContext
}

func NewSteeringSystem(ids component.IDs, lua *scripting.Engine, match *Match) *SteeringSystem {
	return &SteeringSystem{ids: ids, lua: lua, match: match}
}

func (s *SteeringSystem) Name() string { return "steering" }

func (s *SteeringSystem) OnCreate(w *ecs.World) error {
	if !s.lua.HasSteer() {
		return scripting.ErrNoSteer
	}
	s.query = w.QueryAll(s.ids.Steered, s.ids.Velocity, s.ids.Position, s.ids.NetworkIdentity)
	w.WarmupQuery(s.query)
	return nil
}

func (s *SteeringSystem) OnUpdate(w *ecs.World, tick uint64) error {
	s.tick = tick
	s.wind = s.match.Stream.NextDouble01()*2 - 1
	s.ctx = s.match.Context(tick, ecs.PhaseSimulation)
	return w.ForEachChunk(s.query, s)
}

func (s *SteeringSystem) OnDestroy(*ecs.World) error { return nil }

// Wind is the shared wind value drawn for the current tick.
func (s *SteeringSystem) Wind() float64 { return s.wind }

func (s *SteeringSystem) Execute(a *ecs.Archetype, c *ecs.Chunk) error {
	sti, _ := a.TryGetColumnIndex(s.ids.Steered)
	vi, _ := a.TryGetColumnIndex(s.ids.Velocity)
	pi, _ := a.TryGetColumnIndex(s.ids.Position)
	ni, _ := a.TryGetColumnIndex(s.ids.NetworkIdentity)
	steered := ecs.Column[component.Steered](c, sti)
	vel := ecs.Column[component.Velocity](c, vi)
	pos := ecs.Column[component.Position](c, pi)
	ids := ecs.Column[component.NetworkIdentity](c, ni)

	for i := range steered {
		id := ids[i].StableID
		res, err := s.lua.Steer(scripting.SteerInput{
			StableID: id,
			Tick:     s.tick,
			X:        pos[i].X,
			Y:        pos[i].Y,
			Z:        pos[i].Z,
			VX:       vel[i].X,
			VY:       vel[i].Y,
			VZ:       vel[i].Z,
			Strength: steered[i].Strength,
			Wind:     s.wind,
		}, rng.CreateForEntity(s.ctx, "steer", id, 0, 0))
		if err != nil {
			return err
		}
		vel[i].X += res.DX
		vel[i].Y += res.DY
		vel[i].Z += res.DZ
	}
	return nil
}
