package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRefreshLedger re-reads the ledger after an import and mirrors it downstream.
	JobTypeRefreshLedger JobType = "refresh_ledger"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and will be re-enqueued after a backoff.
	JobStatusRetrying JobStatus = "retrying"
)

// RefreshLedgerJob asks the workers to refresh ledger ingestion.
type RefreshLedgerJob struct {
	JobID string `json:"job_id"`

	// Reason records what triggered the refresh, e.g. "import".
	Reason string `json:"reason,omitempty"`

	// Limit caps how many recent ledger rows are mirrored. Zero means the default.
	Limit int `json:"limit,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Rows is the number of ledger rows the last attempt refreshed.
	Rows int `json:"rows"`

	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Clone returns a copy that shares no pointers with j.
func (j *RefreshLedgerJob) Clone() *RefreshLedgerJob {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *RefreshLedgerJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *RefreshLedgerJob) GetType() JobType {
	return JobTypeRefreshLedger
}

// GetStatus implements the Job interface.
func (j *RefreshLedgerJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishRefreshLedger(ctx context.Context, job *RefreshLedgerJob) error
	Close() error
}

// Consumer runs jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It returns the number of rows handled, and an
// error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *RefreshLedgerJob) (int, error)

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *RefreshLedgerJob) error

	// GetJob retrieves a job by ID. Missing jobs return an error wrapping domain.ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*RefreshLedgerJob, error)

	ListJobs(ctx context.Context, filter JobFilter) ([]*RefreshLedgerJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
