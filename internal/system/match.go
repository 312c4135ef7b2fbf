package system

import (
	"github.com/google/uuid"

	"github.com/l1jgo/detsim/internal/core/ecs"
	"github.com/l1jgo/detsim/internal/core/rng"
)

// Match holds what every peer agrees on before tick 0: the match id, its
// seed and salt, and the match-wide random stream. Stream is the only RNG
// state that persists across ticks; checkpoints record it.
type Match struct {
	ID     uuid.UUID
	Seed   uint64
	Salt   uint16
	Stream *rng.PCG
}

// NewMatch derives the seed from id when seed is 0.
func NewMatch(id uuid.UUID, seed uint64, salt uint16) *Match {
	if seed == 0 {
		seed = rng.MatchSeedFromUUID(id)
	}
	m := &Match{ID: id, Seed: seed, Salt: salt}
	m.Stream = rng.CreateGlobal(m.Context(0, ecs.PhaseInput), "match", 0, 0)
	return m
}

// Context is the RNG context for one phase of one tick.
func (m *Match) Context(tick uint64, phase ecs.Phase) rng.NetworkContext {
	return rng.NetworkContext{
		MatchSeed:    m.Seed,
		Tick:         uint32(tick),
		Phase:        uint16(phase),
		ProtocolSalt: m.Salt,
	}
}

// Restore rewinds the match stream to a checkpointed state.
func (m *Match) Restore(s rng.State) error {
	p, err := rng.FromState(s)
	if err != nil {
		return err
	}
	m.Stream = p
	return nil
}
