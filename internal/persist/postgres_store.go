package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/detsim/internal/core/rng"
)

// PostgresStore keeps checkpoints in the checkpoints table.
type PostgresStore struct {
	db  *DB
	own bool
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts c; re-simulating a tick after rollback overwrites it.
func (s *PostgresStore) Save(ctx context.Context, c Checkpoint) error {
	state := make([]byte, rng.StateSize)
	if err := c.Rng.WriteLittleEndian(state); err != nil {
		return fmt.Errorf("encode rng state: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx,
		`INSERT INTO checkpoints (match_id, tick, digest, alive, rng_state)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_id, tick) DO UPDATE
		 SET digest = EXCLUDED.digest, alive = EXCLUDED.alive, rng_state = EXCLUDED.rng_state, created_at = now()`,
		c.MatchID.String(), int64(c.Tick), c.Digest[:], int32(c.Alive), state,
	); err != nil {
		return fmt.Errorf("insert checkpoint tick %d: %w", c.Tick, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, matchID uuid.UUID, tick uint64) (Checkpoint, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT tick, digest, alive, rng_state FROM checkpoints
		 WHERE match_id = $1 AND tick = $2`,
		matchID.String(), int64(tick),
	)
	return scanCheckpoint(matchID, row)
}

func (s *PostgresStore) Latest(ctx context.Context, matchID uuid.UUID) (Checkpoint, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT tick, digest, alive, rng_state FROM checkpoints
		 WHERE match_id = $1 ORDER BY tick DESC LIMIT 1`,
		matchID.String(),
	)
	return scanCheckpoint(matchID, row)
}

func scanCheckpoint(matchID uuid.UUID, row pgx.Row) (Checkpoint, error) {
	var (
		tick   int64
		digest []byte
		alive  int32
		state  []byte
	)
	err := row.Scan(&tick, &digest, &alive, &state)
	if errors.Is(err, pgx.ErrNoRows) {
		return Checkpoint{}, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("scan checkpoint: %w", err)
	}
	if len(digest) != 32 {
		return Checkpoint{}, fmt.Errorf("checkpoint digest is %d bytes", len(digest))
	}
	rs, err := rng.ReadLittleEndian(state)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("decode rng state: %w", err)
	}
	c := Checkpoint{MatchID: matchID, Tick: uint64(tick), Alive: uint32(alive), Rng: rs}
	copy(c.Digest[:], digest)
	return c, nil
}

// Close closes the pool only when the store opened it itself.
func (s *PostgresStore) Close() error {
	if s.own {
		s.db.Close()
	}
	return nil
}
