package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the generation job lifecycle states. It is
// persisted as a small integer; values outside the enum are rejected
// at the storage boundary.
type JobStatus int

const (
	JobStatusPending    JobStatus = 0
	JobStatusProcessing JobStatus = 1
	JobStatusSuccess    JobStatus = 2
	JobStatusFailed     JobStatus = 3
)

// Valid reports whether the status is a member of the closed enum.
func (s JobStatus) Valid() bool {
	return s >= JobStatusPending && s <= JobStatusFailed
}

// Terminal reports whether the status is absorbing; terminal jobs are
// never written again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusSuccess:
		return "success"
	case JobStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("invalid(%d)", int(s))
	}
}

// GenerationJob tracks one image-generation request end-to-end, from
// submission to the external service until a terminal state.
//
// ExternalTaskID is set exactly when the job left Pending: a dispatch
// that never reached the external service fails with a nil task id and
// is ignored by the scheduler. ResultURL is set only on Success; when
// ingestion into durable storage failed it falls back to the raw
// ExternalResultURL.
type GenerationJob struct {
	ID                uuid.UUID
	OwnerID           string
	ProjectID         string
	ExternalTaskID    *string
	Status            JobStatus
	SourceAssetURL    string
	ResultURL         *string
	ExternalResultURL *string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Age returns how long the job has existed relative to now.
func (j *GenerationJob) Age(now time.Time) time.Duration {
	return now.Sub(j.CreatedAt)
}
