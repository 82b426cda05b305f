// Package scenario manages stored simulation scenario templates: the named,
// versioned configurations that generation runs are launched from.
package scenario

import (
	"time"

	"github.com/google/uuid"

	"github.com/exermed/exermed/internal/sim"
)

// Template is a stored scenario configuration. Config is persisted as JSONB
// and validated with sim.Resolve before every write.
type Template struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Config      sim.ScenarioConfig `json:"config"`
	Builtin     bool               `json:"builtin"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
