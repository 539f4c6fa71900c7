package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgUpsertAttempt = `INSERT INTO attempts (id, person_id, person_name, status, completeness, confidence, skipped, storage_success, record_id, providers, errors, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	person_name = EXCLUDED.person_name,
	status = EXCLUDED.status,
	completeness = EXCLUDED.completeness,
	confidence = EXCLUDED.confidence,
	skipped = EXCLUDED.skipped,
	storage_success = EXCLUDED.storage_success,
	record_id = EXCLUDED.record_id,
	providers = EXCLUDED.providers,
	errors = EXCLUDED.errors,
	finished_at = EXCLUDED.finished_at`

	pgAttemptColumns = `id, person_id, person_name, status, completeness, confidence, skipped, storage_success, record_id, providers, errors, started_at, finished_at`

	pgGetAttempt = `SELECT ` + pgAttemptColumns + ` FROM attempts WHERE id = $1`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"upsert_attempt": pgUpsertAttempt,
	"get_attempt":    pgGetAttempt,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS attempts (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	person_id       TEXT NOT NULL,
	person_name     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	completeness    INTEGER NOT NULL DEFAULT 0,
	confidence      TEXT NOT NULL DEFAULT '',
	skipped         BOOLEAN NOT NULL DEFAULT false,
	storage_success BOOLEAN NOT NULL DEFAULT false,
	record_id       TEXT NOT NULL DEFAULT '',
	providers       JSONB NOT NULL DEFAULT '{}',
	errors          JSONB NOT NULL DEFAULT '[]',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_person_id ON attempts(person_id);
CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at DESC);
`

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the attempts table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveAttempt upserts a. An empty ID is filled in.
func (s *PostgresStore) SaveAttempt(ctx context.Context, a *model.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	if a.FinishedAt.IsZero() {
		a.FinishedAt = a.StartedAt
	}
	enc, err := encodeAttempt(a)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, pgUpsertAttempt,
		a.ID, a.PersonID, a.PersonName, string(a.Status), a.CompletenessScore, string(a.Confidence),
		a.Skipped, a.StorageSuccess, a.RecordID, enc.providers, enc.errors,
		a.StartedAt.UTC(), a.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save attempt %s", a.ID)
}

// GetAttempt returns the attempt with the given ID or model.ErrNotFound.
func (s *PostgresStore) GetAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	a, err := scanPgAttempt(s.pool.QueryRow(ctx, pgGetAttempt, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "attempt %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get attempt %s", id)
	}
	return a, nil
}

// ListAttempts returns attempts newest first.
func (s *PostgresStore) ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.Attempt, error) {
	query := `SELECT ` + pgAttemptColumns + ` FROM attempts WHERE true`
	args := []any{}
	argIdx := 1

	if filter.PersonID != "" {
		query += fmt.Sprintf(` AND person_id = $%d`, argIdx)
		args = append(args, filter.PersonID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.StartedAfter.IsZero() {
		query += fmt.Sprintf(` AND started_at > $%d`, argIdx)
		args = append(args, filter.StartedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOf(filter))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list attempts")
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanPgAttempt(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan attempt")
		}
		attempts = append(attempts, *a)
	}
	return attempts, eris.Wrap(rows.Err(), "postgres: list attempts iterate")
}

func scanPgAttempt(row pgx.Row) (*model.Attempt, error) {
	var (
		a                 model.Attempt
		status, conf      string
		providers, errsJS []byte
	)
	if err := row.Scan(&a.ID, &a.PersonID, &a.PersonName, &status, &a.CompletenessScore, &conf,
		&a.Skipped, &a.StorageSuccess, &a.RecordID, &providers, &errsJS, &a.StartedAt, &a.FinishedAt); err != nil {
		return nil, err
	}
	a.Status = model.EnrichmentStatus(status)
	a.Confidence = model.ConfidenceLevel(conf)
	if err := decodeAttempt(&a, providers, errsJS); err != nil {
		return nil, err
	}
	return &a, nil
}
