package model

import "time"

// Provider identifies an external job-based scraping service.
type Provider string

const (
	// ProviderApollo is the professional contact-data provider.
	ProviderApollo Provider = "apollo"
	// ProviderLinkedIn is the social-profile provider.
	ProviderLinkedIn Provider = "linkedin"
)

// JobStatus is the local view of a provider job's lifecycle.
type JobStatus string

const (
	JobStatusSubmitted        JobStatus = "submitted"
	JobStatusRunning          JobStatus = "running"
	JobStatusSucceeded        JobStatus = "succeeded"
	JobStatusFailed           JobStatus = "failed"
	JobStatusAborted          JobStatus = "aborted"
	JobStatusTimedOut         JobStatus = "timed_out"
	JobStatusLocallyAbandoned JobStatus = "locally_abandoned"
)

// Terminal reports whether no further polling is needed for s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusAborted, JobStatusTimedOut, JobStatusLocallyAbandoned:
		return true
	default:
		return false
	}
}

// JobRun tracks one submitted provider job for the duration of a poll loop.
// It is never persisted.
type JobRun struct {
	Provider    Provider  `json:"provider"`
	Handle      string    `json:"handle"`
	DatasetID   string    `json:"dataset_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      JobStatus `json:"status"`
}
