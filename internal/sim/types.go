package sim

// InjuryCategory classifies how a casualty was generated.
type InjuryCategory string

const (
	CategoryDisease         InjuryCategory = "DISEASE"
	CategoryNonBattleInjury InjuryCategory = "NON_BATTLE_INJURY"
	CategoryBattleTrauma    InjuryCategory = "BATTLE_TRAUMA"
)

// TriageCategory is the NATO-style urgency classification.
type TriageCategory string

const (
	TriageT1 TriageCategory = "T1"
	TriageT2 TriageCategory = "T2"
	TriageT3 TriageCategory = "T3"
	TriageT4 TriageCategory = "T4"
)

// Statuses that are not facility stage ids.
const (
	StatusPOI = "POI"
	StatusRTD = "RTD"
	StatusKIA = "KIA"
)

// HourRange bounds a uniformly sampled duration.
type HourRange struct {
	MinHours float64 `json:"min_hours"`
	MaxHours float64 `json:"max_hours"`
}

// NationalityShare is one entry of a front's nationality mix.
type NationalityShare struct {
	Code  string  `json:"code"`
	Share float64 `json:"share"`
}

// FrontSpec describes one front of the exercise scenario.
type FrontSpec struct {
	ID            string             `json:"id"`
	CasualtyShare float64            `json:"casualty_share"`
	Nationalities []NationalityShare `json:"nationality_mix"`
}

// FacilityStage is one echelon of the evacuation chain. Transitions maps
// destination ids (later stage ids, RTD or KIA) to probabilities. Treatments
// lists the treatment ids the facility applies on arrival.
type FacilityStage struct {
	ID          string             `json:"id"`
	Capacity    int                `json:"capacity,omitempty"`
	Transitions map[string]float64 `json:"transition_table"`
	Treatments  []string           `json:"treatments,omitempty"`
}

// SeverityBand names a health range and the untreated deterioration rate
// that applies while a patient's health is inside it.
type SeverityBand struct {
	Name        string  `json:"name"`
	MinHealth   float64 `json:"min_health"`
	MaxHealth   float64 `json:"max_health"`
	RatePerHour float64 `json:"rate_per_hour"`
}

// GoldenHourParams shape the time-since-injury deterioration multiplier.
type GoldenHourParams struct {
	DelayHours    float64 `json:"hours_before_golden_hour"`
	MaxMultiplier float64 `json:"max_multiplier_value"`
	MaxAtHours    float64 `json:"max_multiplier_at_hours"`
}

// CliffEventParams configure sudden acute-complication health drops.
type CliffEventParams struct {
	ProbabilityPerHour float64 `json:"probability_per_hour"`
	MinHealth          float64 `json:"min_health"`
	MaxHealth          float64 `json:"max_health"`
	MinDrop            float64 `json:"min_drop"`
	MaxDrop            float64 `json:"max_drop"`
}

// DeteriorationParams gather everything the per-hour delta depends on.
type DeteriorationParams struct {
	Bands             []SeverityBand             `json:"severity_bands"`
	GoldenHour        GoldenHourParams           `json:"golden_hour"`
	Cliff             CliffEventParams           `json:"cliff_event"`
	TriageMultipliers map[TriageCategory]float64 `json:"triage_multipliers"`
	Environment       map[string]float64         `json:"environment_multipliers"`
}

// TreatmentEffect is the configured effect of a single treatment.
type TreatmentEffect struct {
	HealthBoost           float64 `json:"health_boost"`
	DeteriorationModifier float64 `json:"deterioration_modifier"`
}

// TreatmentCombination overrides the naive product of member modifiers when
// all members are active at once (synergistic effects, e.g. full hemorrhage
// control).
type TreatmentCombination struct {
	ID       string   `json:"id"`
	Members  []string `json:"members"`
	Modifier float64  `json:"modifier"`
}

// TreatmentCatalog is the full treatment configuration.
type TreatmentCatalog struct {
	Effects      map[string]TreatmentEffect `json:"effects"`
	Combinations []TreatmentCombination     `json:"combinations,omitempty"`
	BoostCeiling float64                    `json:"boost_ceiling,omitempty"`
}

// MassCasualtyParams select the POI wait regime. The regime is decided once
// per simulation run so cohort-level deterioration stays comparable.
type MassCasualtyParams struct {
	Probability    float64 `json:"probability"`
	WaitMultiplier float64 `json:"wait_multiplier"`
}

// ScenarioConfig is the raw scenario as stored/submitted. It must pass
// through Resolve before a Simulator will accept it.
type ScenarioConfig struct {
	Name               string                                       `json:"name"`
	TotalPatients      int                                          `json:"total_patients"`
	Fronts             []FrontSpec                                  `json:"fronts"`
	FacilityChain      []FacilityStage                              `json:"facility_chain"`
	POITransitions     map[string]float64                           `json:"poi_transition_table"`
	InjuryDistribution map[InjuryCategory]float64                   `json:"injury_distribution"`
	TriageDistribution map[InjuryCategory]map[TriageCategory]float64 `json:"triage_distribution"`
	SeverityWeights    map[TriageCategory]map[string]float64        `json:"severity_weights"`
	InitialHealth      map[InjuryCategory]map[string]float64        `json:"initial_health"`
	WaitTimes          map[string]map[TriageCategory]HourRange      `json:"wait_time_table"`
	TransitTimes       map[string]map[TriageCategory]HourRange      `json:"transit_time_table"`
	Deterioration      DeteriorationParams                          `json:"deterioration_params"`
	Treatments         TreatmentCatalog                             `json:"treatment_catalog"`
	MassCasualty       MassCasualtyParams                           `json:"mass_casualty"`
	EnvironmentFactors []string                                     `json:"environment_factors,omitempty"`
	MaxHealth          float64                                      `json:"max_health,omitempty"`
}
