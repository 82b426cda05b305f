package sim

// DeteriorationContext bundles everything one deterioration step depends on.
// It is transient: built per time step and discarded.
type DeteriorationContext struct {
	Health           float64
	ElapsedHours     float64
	Triage           TriageCategory
	ActiveTreatments []string
	Environment      []string
}

// ComputeDelta returns the health points lost over one hour, always >= 0.
// The delta is a product of independently tunable factors; each factor lives
// in its own named function so a single multiplier can be retuned or replaced
// without touching the others. Callers clamp the resulting health at 0.
func ComputeDelta(dc DeteriorationContext, p DeteriorationParams, reg *TreatmentRegistry) (float64, error) {
	treat, err := reg.CombinedModifier(dc.ActiveTreatments)
	if err != nil {
		return 0, err
	}
	delta := baseRate(p.Bands, dc.Health) *
		triageMultiplier(p.TriageMultipliers, dc.Triage) *
		GoldenHourMultiplier(dc.ElapsedHours, p.GoldenHour) *
		environmentMultiplier(p.Environment, dc.Environment) *
		treat
	if delta < 0 {
		delta = 0
	}
	return delta, nil
}

// baseRate looks up the severity band containing the current health. Health
// outside every configured band clamps to the nearest band instead of
// failing: a synthetic batch must always complete.
func baseRate(bands []SeverityBand, health float64) float64 {
	if len(bands) == 0 {
		return 0
	}
	for _, b := range bands {
		if health >= b.MinHealth && health <= b.MaxHealth {
			return b.RatePerHour
		}
	}
	// Bands are sorted by MinHealth during resolution.
	if health < bands[0].MinHealth {
		return bands[0].RatePerHour
	}
	return bands[len(bands)-1].RatePerHour
}

func triageMultiplier(m map[TriageCategory]float64, tri TriageCategory) float64 {
	if v, ok := m[tri]; ok {
		return v
	}
	return 1
}

// environmentMultiplier multiplies the configured factors that are active in
// the scenario (cold, heat, CBRN, night evacuation, ...). Unconfigured
// factors contribute 1.
func environmentMultiplier(m map[string]float64, active []string) float64 {
	mult := 1.0
	for _, f := range active {
		if v, ok := m[f]; ok {
			mult *= v
		}
	}
	return mult
}
