// Package fhir renders simulated patient records as FHIR R4 resources and
// bundles. Resources are built as plain maps so the output stays schemaless
// and easy to extend; the Bundle envelope is typed.
package fhir

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/exermed/exermed/internal/sim"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// Converter turns patient records into FHIR resources. ZeroTime anchors the
// simulator's relative hour offsets to wall-clock timestamps.
type Converter struct {
	ZeroTime time.Time
}

// NewConverter returns a Converter anchored at zero. A zero ZeroTime makes
// NewBundle fall back to the current time.
func NewConverter(zero time.Time) *Converter {
	return &Converter{ZeroTime: zero}
}

// NewBundle renders the cohort as a collection Bundle: one Patient, one
// Condition, one health-score Observation and one Encounter per record, plus
// one Procedure per treatment event.
func (c *Converter) NewBundle(records []*sim.PatientRecord) *Bundle {
	zero := c.ZeroTime
	if zero.IsZero() {
		zero = time.Now().UTC()
	}
	now := time.Now().UTC()

	var entries []BundleEntry
	add := func(resource map[string]interface{}) {
		raw, _ := json.Marshal(resource)
		entries = append(entries, BundleEntry{
			FullURL:  "urn:uuid:" + resource["id"].(string),
			Resource: raw,
		})
	}

	for _, rec := range records {
		add(c.Patient(rec))
		add(c.Condition(rec))
		add(c.HealthObservation(rec))
		add(c.Encounter(rec))
		for i := range rec.Treatments {
			add(c.Procedure(rec, i))
		}
	}

	total := len(entries)
	return &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Type:         "collection",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
}

// at converts a relative simulation hour offset to an RFC3339 timestamp.
func (c *Converter) at(hours float64) string {
	zero := c.ZeroTime
	if zero.IsZero() {
		zero = time.Now().UTC()
	}
	return zero.Add(time.Duration(hours * float64(time.Hour))).Format(time.RFC3339)
}
