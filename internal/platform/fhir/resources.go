package fhir

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/exermed/exermed/internal/sim"
)

const (
	triageSystem    = "https://exermed.io/fhir/CodeSystem/triage-category"
	categorySystem  = "https://exermed.io/fhir/CodeSystem/injury-category"
	extensionBase   = "https://exermed.io/fhir/StructureDefinition"
	treatmentSystem = "https://exermed.io/fhir/CodeSystem/treatment"
)

// derivedID gives a sub-resource a stable UUID keyed off the patient ID, so
// regenerated cohorts keep identical resource graphs.
func derivedID(patient uuid.UUID, kind string) string {
	return uuid.NewSHA1(patient, []byte(kind)).String()
}

// Patient renders the demographic resource.
func (c *Converter) Patient(rec *sim.PatientRecord) map[string]interface{} {
	p := map[string]interface{}{
		"resourceType": "Patient",
		"id":           rec.ID.String(),
		"identifier": []interface{}{
			map[string]interface{}{
				"system": "https://exermed.io/fhir/patient-id",
				"value":  rec.ID.String(),
			},
		},
		"extension": []interface{}{
			map[string]interface{}{
				"url":         extensionBase + "/front",
				"valueString": rec.Front,
			},
			map[string]interface{}{
				"url":       extensionBase + "/nationality",
				"valueCode": rec.Nationality,
			},
		},
	}
	if rec.Identity.FamilyName != "" || rec.Identity.GivenName != "" {
		p["name"] = []interface{}{
			map[string]interface{}{
				"use":    "official",
				"family": rec.Identity.FamilyName,
				"given":  []interface{}{rec.Identity.GivenName},
			},
		}
	}
	if rec.Identity.Gender != "" {
		p["gender"] = rec.Identity.Gender
	}
	if rec.Identity.BirthDate != "" {
		p["birthDate"] = rec.Identity.BirthDate
	}
	return p
}

// Condition renders the coded injury/illness with triage carried as severity.
func (c *Converter) Condition(rec *sim.PatientRecord) map[string]interface{} {
	cond := map[string]interface{}{
		"resourceType": "Condition",
		"id":           derivedID(rec.ID, "condition"),
		"subject": map[string]interface{}{
			"reference": "Patient/" + rec.ID.String(),
		},
		"category": []interface{}{
			map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{
						"system": categorySystem,
						"code":   string(rec.InjuryCategory),
					},
				},
			},
		},
		"severity": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system":  triageSystem,
					"code":    string(rec.TriageCategory),
					"display": rec.SeverityBand,
				},
			},
		},
		"onsetDateTime": c.at(0),
	}
	if rec.Injury.Code != "" {
		cond["code"] = map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system":  rec.Injury.System,
					"code":    rec.Injury.Code,
					"display": rec.Injury.Display,
				},
			},
			"text": rec.Injury.Display,
		}
	}
	return cond
}

// HealthObservation renders the final health score as a 0-100 scored
// Observation.
func (c *Converter) HealthObservation(rec *sim.PatientRecord) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Observation",
		"id":           derivedID(rec.ID, "observation-health"),
		"status":       "final",
		"code": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system":  extensionBase + "/health-score",
					"code":    "health-score",
					"display": "Simulated health score",
				},
			},
		},
		"subject": map[string]interface{}{
			"reference": "Patient/" + rec.ID.String(),
		},
		"effectiveDateTime": c.at(rec.ElapsedHours),
		"valueQuantity": map[string]interface{}{
			"value": rec.HealthScore,
			"unit":  "score",
		},
	}
}

// Encounter renders the casualty's passage through the evacuation chain as a
// single finished field encounter with the disposition as discharge.
func (c *Converter) Encounter(rec *sim.PatientRecord) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Encounter",
		"id":           derivedID(rec.ID, "encounter"),
		"status":       "finished",
		"class": map[string]interface{}{
			"system": "http://terminology.hl7.org/CodeSystem/v3-ActCode",
			"code":   "FLD",
		},
		"subject": map[string]interface{}{
			"reference": "Patient/" + rec.ID.String(),
		},
		"period": map[string]interface{}{
			"start": c.at(0),
			"end":   c.at(rec.DispositionHours),
		},
		"hospitalization": map[string]interface{}{
			"dischargeDisposition": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{
						"system":  extensionBase + "/disposition",
						"code":    rec.Status,
						"display": rec.DispositionStage,
					},
				},
			},
		},
	}
}

// Procedure renders treatment event i of the record.
func (c *Converter) Procedure(rec *sim.PatientRecord, i int) map[string]interface{} {
	ev := rec.Treatments[i]
	codings := make([]interface{}, 0, len(ev.Applied))
	for _, id := range ev.Applied {
		codings = append(codings, map[string]interface{}{
			"system": treatmentSystem,
			"code":   id,
		})
	}
	return map[string]interface{}{
		"resourceType": "Procedure",
		"id":           derivedID(rec.ID, fmt.Sprintf("procedure-%d", i)),
		"status":       "completed",
		"code": map[string]interface{}{
			"coding": codings,
		},
		"subject": map[string]interface{}{
			"reference": "Patient/" + rec.ID.String(),
		},
		"performedDateTime": c.at(ev.AtHours),
		"location": map[string]interface{}{
			"display": ev.Stage,
		},
	}
}
