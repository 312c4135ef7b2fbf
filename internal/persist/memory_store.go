package persist

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps checkpoints in process. It backs tests and single-peer
// runs where nothing needs to outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]map[uint64]Checkpoint
	latest  map[uuid.UUID]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[uuid.UUID]map[uint64]Checkpoint),
		latest:  make(map[uuid.UUID]uint64),
	}
}

func (s *MemoryStore) Save(_ context.Context, c Checkpoint) error {
	if err := c.Rng.Validate(); err != nil {
		return fmt.Errorf("save checkpoint tick %d: %w", c.Tick, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ticks, ok := s.matches[c.MatchID]
	if !ok {
		ticks = make(map[uint64]Checkpoint)
		s.matches[c.MatchID] = ticks
	}
	ticks[c.Tick] = c
	if latest, ok := s.latest[c.MatchID]; !ok || c.Tick > latest {
		s.latest[c.MatchID] = c.Tick
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, matchID uuid.UUID, tick uint64) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.matches[matchID][tick]
	if !ok {
		return Checkpoint{}, fmt.Errorf("match %s tick %d: %w", matchID, tick, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) Latest(ctx context.Context, matchID uuid.UUID) (Checkpoint, error) {
	s.mu.RLock()
	tick, ok := s.latest[matchID]
	s.mu.RUnlock()
	if !ok {
		return Checkpoint{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return s.Load(ctx, matchID, tick)
}

// Len returns the number of checkpoints held for matchID.
func (s *MemoryStore) Len(matchID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches[matchID])
}

func (s *MemoryStore) Close() error { return nil }
