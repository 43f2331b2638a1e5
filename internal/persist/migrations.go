package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationFS returns the embedded migration files, rooted at the directory.
func MigrationFS() (fs.FS, error) {
	return fs.Sub(migrations, "migrations")
}

// RunMigrations applies all pending database migrations and returns how
// many ran.
func RunMigrations(ctx context.Context, db *DB) (int, error) {
	fsys, err := MigrationFS()
	if err != nil {
		return 0, fmt.Errorf("migration files: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return 0, fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		db.log.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("took", r.Duration))
	}
	return len(results), nil
}
