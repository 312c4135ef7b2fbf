package system

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/component"
	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/event"
	"github.com/l1jgo/detsim/internal/persist"
	"github.com/l1jgo/detsim/internal/scripting"
)

// Deps are the collaborators the bundled systems need. Lua and Store are
// optional; their systems are skipped when nil.
type Deps struct {
	IDs                component.IDs
	Match              *Match
	Bus                *event.Bus
	Lua                *scripting.Engine
	Store              persist.CheckpointStore
	CheckpointInterval uint64
	Workers            int
	Log                *zap.Logger
}

// Installed exposes the systems Install added, for hosts that query them.
type Installed struct {
	Steering   *SteeringSystem
	Checkpoint *CheckpointSystem
}

type step struct {
	phase ecs.Phase
	sys   ecs.System
}

// Install registers the bundled systems on s in their fixed order:
//
//	Input:          event swap
//	Simulation:     spawner, steering, movement
//	LateSimulation: lifetime
//	Cleanup:        checkpoint
func Install(s *ecs.Scheduler, d Deps) (Installed, error) {
	var out Installed
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	steps := []step{
		{ecs.PhaseInput, NewEventSwapSystem(d.Bus)},
		{ecs.PhaseSimulation, NewSpawnerSystem(d.IDs, d.Match, d.Bus)},
	}
	if d.Lua != nil {
		out.Steering = NewSteeringSystem(d.IDs, d.Lua, d.Match)
		steps = append(steps, step{ecs.PhaseSimulation, out.Steering})
	}
	steps = append(steps,
		step{ecs.PhaseSimulation, NewMovementSystem(d.IDs, d.Workers)},
		step{ecs.PhaseLateSimulation, NewLifetimeSystem(d.IDs, d.Bus)},
	)
	if d.Store != nil {
		out.Checkpoint = NewCheckpointSystem(d.Store, d.Match, log.Named("checkpoint"), d.CheckpointInterval)
		steps = append(steps, step{ecs.PhaseCleanup, out.Checkpoint})
	}

	for _, st := range steps {
		if err := s.AddSystem(st.phase, st.sys); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Start installs the bundled systems and runs their OnCreate hooks. On
// failure the systems already created are destroyed and d.Store is closed,
// since the checkpoint system that owns it never started.
func Start(s *ecs.Scheduler, d Deps) (Installed, error) {
	out, err := Install(s, d)
	if err != nil {
		return out, closeStore(d.Store, fmt.Errorf("install systems: %w", err))
	}
	if err := s.Create(); err != nil {
		err = fmt.Errorf("create systems: %w", err)
		err = multierr.Append(err, s.Destroy())
		return out, closeStore(d.Store, err)
	}
	return out, nil
}

func closeStore(store persist.CheckpointStore, err error) error {
	if store == nil {
		return err
	}
	return multierr.Append(err, store.Close())
}
