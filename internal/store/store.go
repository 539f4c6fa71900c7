// Package store keeps the local history of enrichment attempts.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// DefaultListLimit caps ListAttempts when the filter sets no limit.
const DefaultListLimit = 100

// Store persists enrichment attempts.
type Store interface {
	SaveAttempt(ctx context.Context, a *model.Attempt) error
	GetAttempt(ctx context.Context, id string) (*model.Attempt, error)
	ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.Attempt, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store named by driver and migrates it. DriverNone
// returns (nil, nil). pool only applies to postgres and may be nil.
func Open(ctx context.Context, driver, dsn string, pool *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(driver) {
	case DriverNone, "":
		return nil, nil
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func limitOf(f model.AttemptFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

type encodedAttempt struct {
	providers []byte
	errors    []byte
}

func encodeAttempt(a *model.Attempt) (encodedAttempt, error) {
	providers, err := json.Marshal(a.Providers)
	if err != nil {
		return encodedAttempt{}, eris.Wrap(err, "store: marshal providers")
	}
	errs := a.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return encodedAttempt{}, eris.Wrap(err, "store: marshal errors")
	}
	return encodedAttempt{providers: providers, errors: errorsJSON}, nil
}

func decodeAttempt(a *model.Attempt, providers, errs []byte) error {
	if len(providers) > 0 && string(providers) != "null" {
		if err := json.Unmarshal(providers, &a.Providers); err != nil {
			return eris.Wrap(err, "store: unmarshal providers")
		}
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &a.Errors); err != nil {
			return eris.Wrap(err, "store: unmarshal errors")
		}
	}
	return nil
}
