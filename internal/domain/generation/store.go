package generation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job or its result is missing from the store.
var ErrNotFound = errors.New("generation: job not found")

// JobStore persists job state and finished payloads. Implementations must be
// safe for concurrent use; progress updates arrive from simulator workers.
type JobStore interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, limit, offset int) ([]*Job, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SaveResult(ctx context.Context, id uuid.UUID, data []byte) error
	Result(ctx context.Context, id uuid.UUID) ([]byte, error)
}
