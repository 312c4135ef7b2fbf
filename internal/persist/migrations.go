package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// schemaTable keeps goose bookkeeping apart from other tools sharing the database.
const schemaTable = "detsim_schema_version"

// gooseLogger routes goose output into zap at debug level.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.log.Debugf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.log.Fatalf(format, v...) }

// RunMigrations applies the embedded checkpoint migrations and returns the
// resulting schema version.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	goose.SetLogger(gooseLogger{log: log.Named("goose").Sugar()})
	goose.SetBaseFS(migrations)
	goose.SetTableName(schemaTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
