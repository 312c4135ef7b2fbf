package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/config"
)

// OpenStore builds the checkpoint store named by cfg.Checkpoint.Backend.
// The postgres backend runs pending migrations before returning.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (CheckpointStore, error) {
	switch cfg.Checkpoint.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		db, err := NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &PostgresStore{db: db, own: true}, nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, log)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}
