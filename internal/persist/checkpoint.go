package persist

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/l1jgo/detsim/internal/core/rng"
)

// ErrNotFound is returned when no checkpoint matches.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is what a peer records at a tick boundary: enough to detect a
// desync (Digest) and to resume the match-wide random stream after a
// rollback.
type Checkpoint struct {
	MatchID uuid.UUID
	Tick    uint64
	Digest  [32]byte
	Alive   uint32
	Rng     rng.State
}

const (
	checkpointVersion = 1
	// version | match id | tick | digest | alive | rng state
	checkpointSize = 1 + 16 + 8 + 32 + 4 + rng.StateSize
)

// CheckpointStore persists checkpoints keyed by (match, tick).
type CheckpointStore interface {
	Save(ctx context.Context, c Checkpoint) error
	Load(ctx context.Context, matchID uuid.UUID, tick uint64) (Checkpoint, error)
	Latest(ctx context.Context, matchID uuid.UUID) (Checkpoint, error)
	Close() error
}

// MarshalBinary encodes c as a fixed-size little-endian record.
func (c Checkpoint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, checkpointSize)
	buf[0] = checkpointVersion
	copy(buf[1:17], c.MatchID[:])
	binary.LittleEndian.PutUint64(buf[17:25], c.Tick)
	copy(buf[25:57], c.Digest[:])
	binary.LittleEndian.PutUint32(buf[57:61], c.Alive)
	if err := c.Rng.WriteLittleEndian(buf[61:]); err != nil {
		return nil, fmt.Errorf("encode rng state: %w", err)
	}
	return buf, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (c *Checkpoint) UnmarshalBinary(data []byte) error {
	if len(data) != checkpointSize {
		return fmt.Errorf("checkpoint record is %d bytes, want %d", len(data), checkpointSize)
	}
	if data[0] != checkpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d", data[0])
	}
	state, err := rng.ReadLittleEndian(data[61:])
	if err != nil {
		return fmt.Errorf("decode rng state: %w", err)
	}
	copy(c.MatchID[:], data[1:17])
	c.Tick = binary.LittleEndian.Uint64(data[17:25])
	copy(c.Digest[:], data[25:57])
	c.Alive = binary.LittleEndian.Uint32(data[57:61])
	c.Rng = state
	return nil
}
