package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/persist"
)

// CheckpointSystem records the world digest and the match stream every
// interval ticks. Phase 4 (Cleanup).
type CheckpointSystem struct {
	store    persist.CheckpointStore
	match    *Match
	log      *zap.Logger
	interval uint64 // checkpoint every N ticks
	last     persist.Checkpoint
	saved    int
}

func NewCheckpointSystem(store persist.CheckpointStore, match *Match, log *zap.Logger, intervalTicks uint64) *CheckpointSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckpointSystem{
		store:    store,
		match:    match,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *CheckpointSystem) Name() string { return "checkpoint" }

func (s *CheckpointSystem) OnCreate(*ecs.World) error { return nil }

func (s *CheckpointSystem) OnUpdate(w *ecs.World, tick uint64) error {
	if s.interval == 0 || tick%s.interval != 0 {
		return nil
	}
	return s.Save(w, tick)
}

// Save writes a checkpoint for tick immediately.
func (s *CheckpointSystem) Save(w *ecs.World, tick uint64) error {
	digest, err := w.Digest()
	if err != nil {
		return fmt.Errorf("checkpoint tick %d: %w", tick, err)
	}
	c := persist.Checkpoint{
		MatchID: s.match.ID,
		Tick:    tick,
		Digest:  digest,
		Alive:   uint32(w.AliveCount()),
		Rng:     s.match.Stream.State(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("checkpoint tick %d: %w", tick, err)
	}
	s.last = c
	s.saved++
	s.log.Debug("checkpoint saved",
		zap.Uint64("tick", tick),
		zap.Uint32("alive", c.Alive),
		zap.String("digest", fmt.Sprintf("%x", digest[:8])))
	return nil
}

// Last returns the most recent checkpoint written.
func (s *CheckpointSystem) Last() persist.Checkpoint { return s.last }

// Saved returns how many checkpoints were written.
func (s *CheckpointSystem) Saved() int { return s.saved }

// OnDestroy closes the store.
func (s *CheckpointSystem) OnDestroy(*ecs.World) error {
	if s.saved > 0 {
		s.log.Info("checkpoints written",
			zap.Int("count", s.saved),
			zap.Uint64("last_tick", s.last.Tick))
	}
	return s.store.Close()
}
