package ecs

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput          Phase = iota // 0: swap event buffers, ingest peer input
	PhaseSimulation                  // 1: gameplay state
	PhaseLateSimulation              // 2: reactions to this tick's simulation
	PhasePresentation                // 3: read-only views of settled state
	PhaseCleanup                     // 4: checkpoints, end-of-tick bookkeeping
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseSimulation:
		return "simulation"
	case PhaseLateSimulation:
		return "late_simulation"
	case PhasePresentation:
		return "presentation"
	case PhaseCleanup:
		return "cleanup"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// System is the interface every scheduled system implements.
type System interface {
	OnCreate(w *World) error
	OnUpdate(w *World, tick uint64) error
	OnDestroy(w *World) error
}

// PlaybackMode selects when the world command buffer is applied.
type PlaybackMode uint8

const (
	// PlaybackPerPhase plays back after every phase that has systems.
	PlaybackPerPhase PlaybackMode = iota
	// PlaybackPerTick plays back once after the last phase.
	PlaybackPerTick
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Playback PlaybackMode
}

type schedulerState uint8

const (
	schedulerNew schedulerState = iota
	schedulerCreated
	schedulerDestroyed
)

type scheduled struct {
	phase Phase
	sys   System
	name  string
}

// Scheduler runs systems phase by phase, insertion order within a phase,
// and applies the world command buffer at sync points. It does not recover
// from system errors; they are returned to the caller of Tick.
type Scheduler struct {
	world    *World
	cfg      SchedulerConfig
	log      *zap.Logger
	systems  []scheduled
	ordered  []scheduled
	state    schedulerState
	created  int
	lastTick PlaybackStats
}

// CreateScheduler returns a scheduler bound to w.
func (w *World) CreateScheduler(cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		world: w,
		cfg:   cfg,
		log:   w.log.Named("scheduler"),
	}
}

func systemName(sys System) string {
	if n, ok := sys.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sys)
}

// AddSystem appends sys to phase. Systems can only be added before Create.
func (s *Scheduler) AddSystem(phase Phase, sys System) error {
	if s.state != schedulerNew {
		return eris.Wrapf(ErrSchedulerState, "add system after create")
	}
	s.systems = append(s.systems, scheduled{phase: phase, sys: sys, name: systemName(sys)})
	s.ordered = slices.Clone(s.systems)
	slices.SortStableFunc(s.ordered, func(a, b scheduled) int {
		return int(a.phase) - int(b.phase)
	})
	return nil
}

// Create calls OnCreate on every system in registration order. On failure
// the systems created so far are still torn down by Destroy.
func (s *Scheduler) Create() error {
	if s.state != schedulerNew {
		return eris.Wrapf(ErrSchedulerState, "create called twice")
	}
	s.state = schedulerCreated
	for _, e := range s.systems {
		if err := e.sys.OnCreate(s.world); err != nil {
			return fmt.Errorf("create system %s: %w", e.name, err)
		}
		s.created++
		s.log.Debug("system created", zap.String("system", e.name), zap.Stringer("phase", e.phase))
	}
	return nil
}

// Tick runs one simulation step.
func (s *Scheduler) Tick(tick uint64) error {
	if s.state != schedulerCreated || s.created != len(s.systems) {
		return eris.Wrapf(ErrSchedulerState, "tick %d", tick)
	}
	s.lastTick = PlaybackStats{}
	for i := 0; i < len(s.ordered); {
		phase := s.ordered[i].phase
		for ; i < len(s.ordered) && s.ordered[i].phase == phase; i++ {
			e := s.ordered[i]
			if err := e.sys.OnUpdate(s.world, tick); err != nil {
				return fmt.Errorf("system %s (%s) tick %d: %w", e.name, phase, tick, err)
			}
		}
		if s.cfg.Playback == PlaybackPerPhase {
			if err := s.playback(tick, phase); err != nil {
				return err
			}
		}
	}
	if s.cfg.Playback == PlaybackPerTick {
		return s.playback(tick, PhaseCleanup)
	}
	return nil
}

func (s *Scheduler) playback(tick uint64, phase Phase) error {
	stats, err := s.world.commands.Playback(s.world)
	if err != nil {
		return fmt.Errorf("playback after %s tick %d: %w", phase, tick, err)
	}
	s.lastTick.Created += stats.Created
	s.lastTick.Added += stats.Added
	s.lastTick.Removed += stats.Removed
	s.lastTick.Destroyed += stats.Destroyed
	s.lastTick.Skipped += stats.Skipped
	return nil
}

// LastPlayback returns the command buffer totals of the most recent Tick.
func (s *Scheduler) LastPlayback() PlaybackStats { return s.lastTick }

// Destroy calls OnDestroy in reverse registration order on every system
// whose OnCreate succeeded, even after a faulted Tick, and returns all
// failures combined.
func (s *Scheduler) Destroy() error {
	if s.state != schedulerCreated {
		return eris.Wrapf(ErrSchedulerState, "destroy without create")
	}
	s.state = schedulerDestroyed
	var errs error
	for i := s.created - 1; i >= 0; i-- {
		e := s.systems[i]
		if err := e.sys.OnDestroy(s.world); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("destroy system %s: %w", e.name, err))
		}
	}
	return errs
}
