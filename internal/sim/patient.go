package sim

import (
	"github.com/google/uuid"
)

// Identity carries the demographic labels attached to a synthetic patient.
// The simulator obtains it from a DemographicsProvider and does not interpret
// it. BirthDate is a YYYY-MM-DD string, matching the FHIR date primitive.
type Identity struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Gender     string `json:"gender"`
	BirthDate  string `json:"birth_date"`
}

// Code is a coded medical concept (SNOMED, LOINC, ...) supplied by an
// external terminology provider.
type Code struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

// TreatmentEvent records one application of facility treatments.
type TreatmentEvent struct {
	Stage        string   `json:"stage"`
	AtHours      float64  `json:"at_hours"`
	Applied      []string `json:"treatments_applied"`
	HealthBoost  float64  `json:"health_boost"`
	HealthBefore float64  `json:"health_before"`
	HealthAfter  float64  `json:"health_after"`
}

// PatientRecord is the entity a simulation run populates. Only the simulator
// writes to it; once Status reaches a terminal state the record is handed off
// read-only.
type PatientRecord struct {
	ID             uuid.UUID        `json:"id"`
	Front          string           `json:"front"`
	Nationality    string           `json:"nationality"`
	Identity       Identity         `json:"identity"`
	InjuryCategory InjuryCategory   `json:"injury_category"`
	TriageCategory TriageCategory   `json:"triage_category"`
	SeverityBand   string           `json:"severity_band"`
	Injury         Code             `json:"injury"`
	InitialHealth  float64          `json:"initial_health"`
	HealthScore    float64          `json:"health_score"`
	Status         string           `json:"status"`
	ElapsedHours   float64          `json:"elapsed_hours"`
	Treatments     []TreatmentEvent `json:"treatment_history"`

	// Set exactly once, when a terminal state is reached.
	DispositionStage string  `json:"disposition_stage"`
	DispositionHours float64 `json:"disposition_time"`
}

// Terminal reports whether the record has reached a final disposition.
func (p *PatientRecord) Terminal() bool {
	return p.DispositionStage != ""
}

// dispose marks the record terminal at the given location. status is the
// final status (RTD, KIA or a definitive-care stage id); at is the stage the
// disposition happened at.
func (p *PatientRecord) dispose(status, at string) {
	if p.Terminal() {
		return
	}
	p.Status = status
	p.DispositionStage = at
	p.DispositionHours = p.ElapsedHours
}
