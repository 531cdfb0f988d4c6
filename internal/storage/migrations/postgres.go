package migrations

import (
	"context"
	"fmt"

	"backtest-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded Postgres file in name order.
// pgx runs a multi-statement file as one simple-protocol batch, so files are
// sent whole. Files must be safe to re-run.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
