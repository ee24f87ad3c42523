// Package migrate applies the embedded schema migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/bagtrack/migrations"
)

func withProvider[T any](ctx context.Context, dsn string, fn func(context.Context, *goose.Provider) (T, error)) (T, error) {
	var zero T
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return zero, fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return zero, fmt.Errorf("goose provider: %w", err)
	}
	return fn(ctx, p)
}

// Up brings the schema at dsn to the latest embedded version and returns
// how many migrations ran.
func Up(ctx context.Context, dsn string) (int, error) {
	return withProvider(ctx, dsn, func(ctx context.Context, p *goose.Provider) (int, error) {
		res, err := p.Up(ctx)
		if err != nil {
			return 0, fmt.Errorf("migrate up: %w", err)
		}
		return len(res), nil
	})
}

// Version reports the applied schema version.
func Version(ctx context.Context, dsn string) (int64, error) {
	return withProvider(ctx, dsn, func(ctx context.Context, p *goose.Provider) (int64, error) {
		return p.GetDBVersion(ctx)
	})
}
