package enrich

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Fatal errors returned by Enrich.
var (
	ErrPersonNotFound    = eris.New("person not found")
	ErrAttemptInProgress = eris.New("enrichment already in progress for person")
)

// Kinds of non-fatal provider failure. A ProviderError matches its kind
// with errors.Is. ErrSubmission is reported on the provider outcome only.
var (
	ErrSubmission   = eris.New("job submission failed")
	ErrStatusCheck  = eris.New("job status check failed")
	ErrResultFetch  = eris.New("job result fetch failed")
	ErrJobFailed    = eris.New("job ended without results")
	ErrLocalTimeout = eris.New("job did not finish within max wait")
)

// ErrPersistence marks a failed enrichment-store write.
var ErrPersistence = eris.New("enrichment record write failed")

// ProviderError is one provider pipeline's failure. Except for submission
// failures, its message becomes an entry in the record's error list.
type ProviderError struct {
	Provider model.Provider
	Label    string
	Kind     error
	RunID    string
	Detail   string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Label, e.Kind.Error())
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the error's kind.
func (e *ProviderError) Is(target error) bool { return target == e.Kind }
