package model

import "time"

// ProviderOutcome summarises what one provider pipeline did during an attempt.
type ProviderOutcome struct {
	Dispatched bool      `json:"dispatched" yaml:"dispatched"`
	RunID      string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	JobStatus  JobStatus `json:"job_status,omitempty" yaml:"job_status,omitempty"`
	HasData    bool      `json:"has_data" yaml:"has_data"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Attempt is one row of the local enrichment history.
type Attempt struct {
	ID                string                       `json:"id" yaml:"id"`
	PersonID          string                       `json:"person_id" yaml:"person_id"`
	PersonName        string                       `json:"person_name" yaml:"person_name"`
	Status            EnrichmentStatus             `json:"status" yaml:"status"`
	CompletenessScore int                          `json:"completeness_score" yaml:"completeness_score"`
	Confidence        ConfidenceLevel              `json:"confidence" yaml:"confidence"`
	Skipped           bool                         `json:"skipped" yaml:"skipped"`
	StorageSuccess    bool                         `json:"storage_success" yaml:"storage_success"`
	RecordID          string                       `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Providers         map[Provider]ProviderOutcome `json:"providers,omitempty" yaml:"providers,omitempty"`
	Errors            []string                     `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt         time.Time                    `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time                    `json:"finished_at" yaml:"finished_at"`
}

// AttemptFilter narrows history queries.
type AttemptFilter struct {
	PersonID     string
	Status       EnrichmentStatus
	StartedAfter time.Time
	Limit        int
}
