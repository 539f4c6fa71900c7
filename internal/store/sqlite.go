package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS attempts (
	id              TEXT PRIMARY KEY,
	person_id       TEXT NOT NULL,
	person_name     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	completeness    INTEGER NOT NULL DEFAULT 0,
	confidence      TEXT NOT NULL DEFAULT '',
	skipped         INTEGER NOT NULL DEFAULT 0,
	storage_success INTEGER NOT NULL DEFAULT 0,
	record_id       TEXT NOT NULL DEFAULT '',
	providers       TEXT NOT NULL DEFAULT '{}',
	errors          TEXT NOT NULL DEFAULT '[]',
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_person_id ON attempts(person_id);
CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);
`

// Migrate creates the attempts table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAttempt inserts a, or replaces the row with the same ID. An empty ID
// is filled in.
func (s *SQLiteStore) SaveAttempt(ctx context.Context, a *model.Attempt) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, person_id, person_name, status, completeness, confidence, skipped, storage_success, record_id, providers, errors, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			person_name = excluded.person_name,
			status = excluded.status,
			completeness = excluded.completeness,
			confidence = excluded.confidence,
			skipped = excluded.skipped,
			storage_success = excluded.storage_success,
			record_id = excluded.record_id,
			providers = excluded.providers,
			errors = excluded.errors,
			finished_at = excluded.finished_at`,
		a.ID, a.PersonID, a.PersonName, string(a.Status), a.CompletenessScore, string(a.Confidence),
		a.Skipped, a.StorageSuccess, a.RecordID, string(enc.providers), string(enc.errors),
		a.StartedAt.UTC(), a.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save attempt %s", a.ID)
}

const sqliteAttemptColumns = `id, person_id, person_name, status, completeness, confidence, skipped, storage_success, record_id, providers, errors, started_at, finished_at`

// GetAttempt returns the attempt with the given ID or model.ErrNotFound.
func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*model.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAttemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "attempt %s", id)
	}
	return a, err
}

// ListAttempts returns attempts newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.Attempt, error) {
	query := `SELECT ` + sqliteAttemptColumns + ` FROM attempts WHERE 1=1`
	var args []any

	if filter.PersonID != "" {
		query += ` AND person_id = ?`
		args = append(args, filter.PersonID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.StartedAfter.IsZero() {
		query += ` AND started_at > ?`
		args = append(args, filter.StartedAfter.UTC())
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limitOf(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list attempts")
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, eris.Wrap(rows.Err(), "sqlite: list attempts iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanAttempt(row scannable) (*model.Attempt, error) {
	var (
		a                 model.Attempt
		status, conf      string
		providers, errsJS string
	)
	err := row.Scan(&a.ID, &a.PersonID, &a.PersonName, &status, &a.CompletenessScore, &conf,
		&a.Skipped, &a.StorageSuccess, &a.RecordID, &providers, &errsJS, &a.StartedAt, &a.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan attempt")
	}
	a.Status = model.EnrichmentStatus(status)
	a.Confidence = model.ConfidenceLevel(conf)
	if err := decodeAttempt(&a, []byte(providers), []byte(errsJS)); err != nil {
		return nil, err
	}
	return &a, nil
}
