package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/config"
)

// DB wraps the pgx pool backing the postgres checkpoint store.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// NewDB opens a pool for cfg.DSN and pings it within 5s.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = min(int32(cfg.MaxIdleConns), poolCfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Info("database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// Migrate applies pending migrations and returns the schema version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	version, err := RunMigrations(ctx, db.Pool, db.log)
	if err != nil {
		return 0, err
	}
	db.log.Info("schema ready", zap.Int64("version", version))
	return version, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
