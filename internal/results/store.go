// Package results persists run envelopes to PostgreSQL so runs can be
// compared across time and CI machines.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/model"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL run repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, verr.Database("pinging database", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("results_store"),
	}, nil
}

const sqlInsertRun = `
        INSERT INTO runs (id, environment, browser, started_at, finished_at, duration_ms, total, passed, failed, skipped, errors, pass_rate)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `

// SaveRun writes the summary row and every test result in one transaction,
// so a run is either fully recorded or not at all.
func (s *Store) SaveRun(ctx context.Context, envelope *model.RunEnvelope) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return verr.Database("beginning transaction", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	sum := envelope.Summary
	_, err = tx.Exec(ctx, sqlInsertRun,
		sum.RunID, sum.Environment, sum.Browser,
		sum.StartedAt.UTC(), sum.FinishedAt.UTC(), sum.Duration.Milliseconds(),
		sum.Total, sum.Passed, sum.Failed, sum.Skipped, sum.Errors, sum.PassRate,
	)
	if err != nil {
		return verr.Database("inserting run summary", err).With("run_id", sum.RunID)
	}

	if len(envelope.TestResults) > 0 {
		if err := s.copyTestResults(ctx, tx, sum.RunID, envelope.TestResults); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return verr.Database("committing transaction", err)
	}
	return nil
}

func (s *Store) copyTestResults(ctx context.Context, tx pgx.Tx, runID string, results []model.TestResult) error {
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		failures, err := json.Marshal(r.Failures)
		if err != nil {
			return verr.Database("encoding failure details", err).With("test", r.Name)
		}
		rows[i] = []interface{}{
			r.ID, runID, r.Name, r.Suite, string(r.Status),
			r.StartedAt.UTC(), r.Duration.Milliseconds(), r.Attempts,
			r.Error, failures,
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"test_results"},
		[]string{"id", "run_id", "name", "suite", "status", "started_at", "duration_ms", "attempts", "error", "failures"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return verr.Database("copying test results", err)
	}
	if int(copyCount) != len(results) {
		return verr.Database("copying test results",
			fmt.Errorf("expected %d rows, copied %d", len(results), copyCount))
	}
	return nil
}

const sqlSelectRun = `
        SELECT id, environment, browser, started_at, finished_at, duration_ms, total, passed, failed, skipped, errors, pass_rate
        FROM runs WHERE id = $1
    `

const sqlSelectResults = `
        SELECT id, name, suite, status, started_at, duration_ms, attempts, error, failures
        FROM test_results WHERE run_id = $1 ORDER BY started_at
    `

// GetRun loads a previously saved envelope.
func (s *Store) GetRun(ctx context.Context, runID string) (*model.RunEnvelope, error) {
	var (
		sum        model.RunSummary
		durationMS int64
	)
	row := s.pool.QueryRow(ctx, sqlSelectRun, runID)
	err := row.Scan(&sum.RunID, &sum.Environment, &sum.Browser,
		&sum.StartedAt, &sum.FinishedAt, &durationMS,
		&sum.Total, &sum.Passed, &sum.Failed, &sum.Skipped, &sum.Errors, &sum.PassRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, verr.Database("run not found", err).With("run_id", runID)
		}
		return nil, verr.Database("loading run summary", err).With("run_id", runID)
	}
	sum.Duration = time.Duration(durationMS) * time.Millisecond

	rows, err := s.pool.Query(ctx, sqlSelectResults, runID)
	if err != nil {
		return nil, verr.Database("loading test results", err).With("run_id", runID)
	}
	defer rows.Close()

	var results []model.TestResult
	for rows.Next() {
		var (
			r          model.TestResult
			durMS      int64
			status     string
			failuresJS []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Suite, &status, &r.StartedAt, &durMS, &r.Attempts, &r.Error, &failuresJS); err != nil {
			return nil, verr.Database("scanning test result row", err)
		}
		r.Status = model.Status(status)
		r.Duration = time.Duration(durMS) * time.Millisecond
		if len(failuresJS) > 0 {
			if err := json.Unmarshal(failuresJS, &r.Failures); err != nil {
				return nil, verr.Database("decoding failure details", err).With("test", r.Name)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database("iterating test result rows", err)
	}

	return &model.RunEnvelope{Summary: sum, TestResults: results}, nil
}
