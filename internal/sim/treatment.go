package sim

import "sort"

// TreatmentRegistry answers effect lookups against a scenario's treatment
// catalog. It is a pure query object: nothing in it changes during a run.
type TreatmentRegistry struct {
	catalog TreatmentCatalog
}

func NewTreatmentRegistry(catalog TreatmentCatalog) *TreatmentRegistry {
	return &TreatmentRegistry{catalog: catalog}
}

// EffectOf returns the configured effect of a single treatment.
func (r *TreatmentRegistry) EffectOf(id string) (TreatmentEffect, error) {
	eff, ok := r.catalog.Effects[id]
	if !ok {
		return TreatmentEffect{}, &UnknownTreatmentError{ID: id}
	}
	return eff, nil
}

// CombinedModifier computes the deterioration modifier for a set of active
// treatments. Configured combinations are checked first: when every member of
// a combination is active, the combination's modifier replaces the product of
// its members' individual modifiers. Treatments not covered by any matched
// combination still multiply in individually. An empty set yields 1.
func (r *TreatmentRegistry) CombinedModifier(active []string) (float64, error) {
	if len(active) == 0 {
		return 1, nil
	}
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		if _, err := r.EffectOf(id); err != nil {
			return 0, err
		}
		activeSet[id] = true
	}

	covered := make(map[string]bool)
	mod := 1.0
	for _, combo := range r.catalog.Combinations {
		if len(combo.Members) == 0 {
			continue
		}
		full := true
		for _, m := range combo.Members {
			if !activeSet[m] {
				full = false
				break
			}
		}
		if !full {
			continue
		}
		mod *= combo.Modifier
		for _, m := range combo.Members {
			covered[m] = true
		}
	}

	// Deterministic order keeps floating-point products reproducible.
	ids := make([]string, 0, len(activeSet))
	for id := range activeSet {
		if !covered[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		mod *= r.catalog.Effects[id].DeteriorationModifier
	}
	return mod, nil
}

// TotalBoost sums the health boosts of simultaneously applied treatments.
// Boosts are additive and capped at the catalog's ceiling when one is set;
// the caller additionally clamps the resulting health at the scenario max.
func (r *TreatmentRegistry) TotalBoost(ids []string) (float64, error) {
	var sum float64
	for _, id := range ids {
		eff, err := r.EffectOf(id)
		if err != nil {
			return 0, err
		}
		sum += eff.HealthBoost
	}
	if r.catalog.BoostCeiling > 0 && sum > r.catalog.BoostCeiling {
		sum = r.catalog.BoostCeiling
	}
	return sum, nil
}
