package domain

import "time"

// JobCategory enumerates supported try-on garment placements.
type JobCategory string

const (
	CategoryUpperBody JobCategory = "upper_body"
	CategoryLowerBody JobCategory = "lower_body"
)

// Valid reports whether the category is one of the supported values.
func (c JobCategory) Valid() bool {
	switch c {
	case CategoryUpperBody, CategoryLowerBody:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states. Transitions are monotonic:
// pending -> submitted -> {completed|failed}, or pending -> failed when the
// provider submission itself fails. Completed and failed are terminal.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates one try-on request through the external provider.
//
// ProviderJobID is assigned exactly once, when the provider acknowledges the
// submission; it is empty before that point. ResultURL is only ever a
// durable-storage location; when re-hosting fell back to the provider's
// ephemeral URL, OriginFallbackURL carries it instead.
type Job struct {
	ID                string
	ProviderJobID     string
	Status            JobStatus
	OwnerScope        string
	HumanImageURL     string
	GarmentImageURL   string
	Category          JobCategory
	Description       string
	ResultURL         string
	OriginFallbackURL string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DeliverableURL returns the URL a client should use for a completed job:
// the durable result when re-hosting succeeded, otherwise the recorded
// fallback origin.
func (j *Job) DeliverableURL() string {
	if j.ResultURL != "" {
		return j.ResultURL
	}
	return j.OriginFallbackURL
}

// TerminalUpdate carries the optional fields written together with a
// terminal status transition.
type TerminalUpdate struct {
	ResultURL         string
	OriginFallbackURL string
	ErrorMessage      string
}
