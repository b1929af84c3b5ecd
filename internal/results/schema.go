package results

import (
	"context"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

const sqlSchema = `
        CREATE TABLE IF NOT EXISTS runs (
            id          TEXT PRIMARY KEY,
            environment TEXT NOT NULL DEFAULT '',
            browser     TEXT NOT NULL,
            started_at  TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            total       INT NOT NULL,
            passed      INT NOT NULL,
            failed      INT NOT NULL,
            skipped     INT NOT NULL,
            errors      INT NOT NULL,
            pass_rate   DOUBLE PRECISION NOT NULL
        );

        CREATE TABLE IF NOT EXISTS test_results (
            id          TEXT NOT NULL,
            run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            name        TEXT NOT NULL,
            suite       TEXT NOT NULL,
            status      TEXT NOT NULL,
            started_at  TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            attempts    INT NOT NULL,
            error       TEXT NOT NULL DEFAULT '',
            failures    JSONB NOT NULL DEFAULT '[]',
            PRIMARY KEY (run_id, id)
        );

        CREATE INDEX IF NOT EXISTS idx_test_results_status ON test_results (status);
    `

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlSchema); err != nil {
		return verr.Database("creating results schema", err)
	}
	return nil
}
