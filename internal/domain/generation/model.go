// Package generation runs cohort generation jobs: it drives the casualty
// simulator from a stored scenario, tracks progress, and keeps the exported
// bundle for download.
package generation

import (
	"time"

	"github.com/google/uuid"

	"github.com/exermed/exermed/internal/platform/export"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Request describes a generation run. Scenario is a template id or name;
// empty means the builtin default. A nil Seed asks the service to pick one.
type Request struct {
	Scenario string        `json:"scenario,omitempty"`
	Count    int           `json:"count"`
	Seed     *int64        `json:"seed,omitempty"`
	Format   export.Format `json:"format,omitempty"`
	Gzip     bool          `json:"gzip,omitempty"`
	Encrypt  bool          `json:"encrypt,omitempty"`
}

// Job is the tracked state of one generation run.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Request   Request   `json:"request"`
	Status    Status    `json:"status"`
	Seed      int64     `json:"seed"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Error     string    `json:"error,omitempty"`
	FileName  string    `json:"file_name,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
