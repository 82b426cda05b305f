package sim

import (
	"fmt"
	"math"
	"sort"
)

// SumTolerance is how far a probability-bearing collection may drift from 1.0
// before resolution rejects it.
const SumTolerance = 1e-3

// DefaultMaxHealth is used when a scenario does not set max_health.
const DefaultMaxHealth = 100.0

// ResolvedConfig is a validated, normalized scenario. All probability-bearing
// values are 0-1 fractions, every transition destination is known to exist,
// and the facility chain index is precomputed. It is immutable after Resolve
// and safe to share across simulation workers.
type ResolvedConfig struct {
	Scenario   ScenarioConfig
	stageIndex map[string]int
}

// Stage returns the facility stage with the given id.
func (rc *ResolvedConfig) Stage(id string) (FacilityStage, bool) {
	i, ok := rc.stageIndex[id]
	if !ok {
		return FacilityStage{}, false
	}
	return rc.Scenario.FacilityChain[i], true
}

// StageIndex returns the position of a stage in the chain, or -1.
func (rc *ResolvedConfig) StageIndex(id string) int {
	i, ok := rc.stageIndex[id]
	if !ok {
		return -1
	}
	return i
}

// Resolve validates and normalizes a raw scenario configuration. It is a pure
// transform: the input is not mutated, identical inputs produce identical
// outputs, and resolving the scenario of an already-resolved configuration is
// a no-op. On failure it returns a *ValidationError carrying every violation
// found.
func Resolve(raw ScenarioConfig) (*ResolvedConfig, error) {
	sc := copyScenario(raw)
	verr := &ValidationError{}

	if sc.TotalPatients <= 0 {
		verr.add("total_patients must be > 0, got %d", sc.TotalPatients)
	}
	if sc.MaxHealth == 0 {
		sc.MaxHealth = DefaultMaxHealth
	}

	// Fronts and nationality mixes.
	if len(sc.Fronts) == 0 {
		verr.add("at least one front is required")
	}
	frontShares := make(map[string]float64, len(sc.Fronts))
	for i := range sc.Fronts {
		frontShares[sc.Fronts[i].ID] = sc.Fronts[i].CasualtyShare
	}
	normalizeMap(frontShares)
	checkSum(verr, "fronts casualty_share", frontShares)
	for i := range sc.Fronts {
		sc.Fronts[i].CasualtyShare = frontShares[sc.Fronts[i].ID]
		mix := make(map[string]float64, len(sc.Fronts[i].Nationalities))
		for _, n := range sc.Fronts[i].Nationalities {
			mix[n.Code] = n.Share
		}
		normalizeMap(mix)
		checkSum(verr, fmt.Sprintf("front %q nationality_mix", sc.Fronts[i].ID), mix)
		for j := range sc.Fronts[i].Nationalities {
			sc.Fronts[i].Nationalities[j].Share = mix[sc.Fronts[i].Nationalities[j].Code]
		}
	}

	// Facility chain and transition tables.
	if len(sc.FacilityChain) == 0 {
		verr.add("facility_chain must not be empty")
	}
	stageIndex := make(map[string]int, len(sc.FacilityChain))
	for i, st := range sc.FacilityChain {
		if st.ID == "" {
			verr.add("facility_chain[%d] has an empty id", i)
			continue
		}
		if st.ID == StatusPOI || st.ID == StatusRTD || st.ID == StatusKIA {
			verr.add("facility stage id %q collides with a reserved status", st.ID)
		}
		if _, dup := stageIndex[st.ID]; dup {
			verr.add("duplicate facility stage id %q", st.ID)
		}
		stageIndex[st.ID] = i
	}

	checkTransitions(verr, stageIndex, StatusPOI, -1, sc.POITransitions)
	for i := range sc.FacilityChain {
		checkTransitions(verr, stageIndex, sc.FacilityChain[i].ID, i, sc.FacilityChain[i].Transitions)
	}

	// Injury and triage distributions.
	normalizeMap(sc.InjuryDistribution)
	checkSum(verr, "injury_distribution", sc.InjuryDistribution)
	for cat := range sc.InjuryDistribution {
		dist, ok := sc.TriageDistribution[cat]
		if !ok {
			verr.add("triage_distribution is missing injury category %q", cat)
			continue
		}
		normalizeMap(dist)
		checkSum(verr, fmt.Sprintf("triage_distribution[%s]", cat), dist)
		for tri := range dist {
			weights, ok := sc.SeverityWeights[tri]
			if !ok {
				verr.add("severity_weights is missing triage category %q", tri)
				continue
			}
			normalizeMap(weights)
			checkSum(verr, fmt.Sprintf("severity_weights[%s]", tri), weights)
		}
	}

	// Deterioration parameters.
	if len(sc.Deterioration.Bands) == 0 {
		verr.add("deterioration_params needs at least one severity band")
	}
	sort.Slice(sc.Deterioration.Bands, func(i, j int) bool {
		return sc.Deterioration.Bands[i].MinHealth < sc.Deterioration.Bands[j].MinHealth
	})
	for _, b := range sc.Deterioration.Bands {
		if b.RatePerHour < 0 {
			verr.add("severity band %q has a negative rate_per_hour", b.Name)
		}
		if b.MaxHealth < b.MinHealth {
			verr.add("severity band %q has max_health below min_health", b.Name)
		}
	}
	sc.Deterioration.Cliff.ProbabilityPerHour = normalizeScalar(sc.Deterioration.Cliff.ProbabilityPerHour)
	sc.MassCasualty.Probability = normalizeScalar(sc.MassCasualty.Probability)
	if sc.MassCasualty.WaitMultiplier == 0 {
		sc.MassCasualty.WaitMultiplier = 1
	}
	if gh := sc.Deterioration.GoldenHour; gh.MaxMultiplier != 0 && gh.MaxMultiplier < 1 {
		verr.add("golden_hour max_multiplier_value must be >= 1, got %v", gh.MaxMultiplier)
	}

	for _, r := range []struct {
		name  string
		table map[string]map[TriageCategory]HourRange
	}{{"wait_time_table", sc.WaitTimes}, {"transit_time_table", sc.TransitTimes}} {
		for stage, byTriage := range r.table {
			for tri, hr := range byTriage {
				if hr.MaxHours < hr.MinHours {
					verr.add("%s[%s][%s] has max_hours below min_hours", r.name, stage, tri)
				}
			}
		}
	}

	if len(verr.Violations) > 0 {
		sort.Strings(verr.Violations)
		return nil, verr
	}
	return &ResolvedConfig{Scenario: sc, stageIndex: stageIndex}, nil
}

// checkTransitions validates one transition table: destinations must be RTD,
// KIA, or a stage strictly later in the chain, and probabilities must sum to
// 1.0 within tolerance.
func checkTransitions(verr *ValidationError, stageIndex map[string]int, from string, fromIdx int, table map[string]float64) {
	if len(table) == 0 {
		// A stage without a table is a definitive-care terminal; POI must
		// always have one, otherwise no patient can leave it.
		if from == StatusPOI {
			verr.add("poi_transition_table must not be empty")
		}
		return
	}
	normalizeMap(table)
	checkSum(verr, fmt.Sprintf("transition_table[%s]", from), table)
	for dest := range table {
		if dest == StatusRTD || dest == StatusKIA {
			continue
		}
		di, ok := stageIndex[dest]
		if !ok {
			verr.add("transition_table[%s] references unknown destination %q", from, dest)
			continue
		}
		if di <= fromIdx {
			verr.add("transition_table[%s] destination %q is not forward in the chain", from, dest)
		}
	}
}

// normalizeMap converts a collection expressed as 0-100 percentages to 0-1
// fractions. The whole collection is converted together: mixing the two
// representations inside one table is what the sum check then catches.
func normalizeMap[K comparable](m map[K]float64) {
	var sum float64
	for _, v := range m {
		sum += v
	}
	if math.Abs(sum-100) <= 100*SumTolerance {
		for k := range m {
			m[k] /= 100
		}
	}
}

// normalizeScalar converts a standalone probability given as a percentage.
func normalizeScalar(p float64) float64 {
	if p > 1 {
		return p / 100
	}
	return p
}

func checkSum[K comparable](verr *ValidationError, name string, m map[K]float64) {
	if len(m) == 0 {
		verr.add("%s is empty", name)
		return
	}
	var sum float64
	for k, v := range m {
		if v < 0 {
			verr.add("%s has a negative share for %v", name, k)
		}
		sum += v
	}
	if math.Abs(sum-1) > SumTolerance {
		verr.add("%s probabilities sum to %.4f, want 1.0 +/- %.0e", name, sum, SumTolerance)
	}
}

// copyScenario deep-copies a scenario so Resolve never mutates its input.
func copyScenario(in ScenarioConfig) ScenarioConfig {
	out := in

	out.Fronts = make([]FrontSpec, len(in.Fronts))
	for i, f := range in.Fronts {
		out.Fronts[i] = f
		out.Fronts[i].Nationalities = append([]NationalityShare(nil), f.Nationalities...)
	}

	out.FacilityChain = make([]FacilityStage, len(in.FacilityChain))
	for i, st := range in.FacilityChain {
		out.FacilityChain[i] = st
		out.FacilityChain[i].Transitions = copyFloatMap(st.Transitions)
		out.FacilityChain[i].Treatments = append([]string(nil), st.Treatments...)
	}

	out.POITransitions = copyFloatMap(in.POITransitions)
	out.InjuryDistribution = copyFloatMap(in.InjuryDistribution)

	out.TriageDistribution = make(map[InjuryCategory]map[TriageCategory]float64, len(in.TriageDistribution))
	for k, v := range in.TriageDistribution {
		out.TriageDistribution[k] = copyFloatMap(v)
	}
	out.SeverityWeights = make(map[TriageCategory]map[string]float64, len(in.SeverityWeights))
	for k, v := range in.SeverityWeights {
		out.SeverityWeights[k] = copyFloatMap(v)
	}
	out.InitialHealth = make(map[InjuryCategory]map[string]float64, len(in.InitialHealth))
	for k, v := range in.InitialHealth {
		out.InitialHealth[k] = copyFloatMap(v)
	}

	out.WaitTimes = copyHourTable(in.WaitTimes)
	out.TransitTimes = copyHourTable(in.TransitTimes)

	out.Deterioration.Bands = append([]SeverityBand(nil), in.Deterioration.Bands...)
	out.Deterioration.TriageMultipliers = copyFloatMap(in.Deterioration.TriageMultipliers)
	out.Deterioration.Environment = copyFloatMap(in.Deterioration.Environment)

	out.Treatments.Effects = make(map[string]TreatmentEffect, len(in.Treatments.Effects))
	for k, v := range in.Treatments.Effects {
		out.Treatments.Effects[k] = v
	}
	out.Treatments.Combinations = make([]TreatmentCombination, len(in.Treatments.Combinations))
	for i, c := range in.Treatments.Combinations {
		out.Treatments.Combinations[i] = c
		out.Treatments.Combinations[i].Members = append([]string(nil), c.Members...)
	}

	out.EnvironmentFactors = append([]string(nil), in.EnvironmentFactors...)
	return out
}

func copyFloatMap[K comparable](in map[K]float64) map[K]float64 {
	if in == nil {
		return nil
	}
	out := make(map[K]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyHourTable(in map[string]map[TriageCategory]HourRange) map[string]map[TriageCategory]HourRange {
	if in == nil {
		return nil
	}
	out := make(map[string]map[TriageCategory]HourRange, len(in))
	for k, v := range in {
		inner := make(map[TriageCategory]HourRange, len(v))
		for k2, v2 := range v {
			inner[k2] = v2
		}
		out[k] = inner
	}
	return out
}
