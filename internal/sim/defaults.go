package sim

// DefaultScenario returns a complete, resolvable example scenario. It is a
// starting point for new templates and the `generate` command's fallback when
// no template is given; none of its numbers are authoritative, deterioration
// tuning is expected to continue through configuration.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		Name:          "two-front-exercise",
		TotalPatients: 200,
		Fronts: []FrontSpec{
			{ID: "NORTH", CasualtyShare: 0.6, Nationalities: []NationalityShare{
				{Code: "USA", Share: 0.5},
				{Code: "POL", Share: 0.3},
				{Code: "LTU", Share: 0.2},
			}},
			{ID: "SOUTH", CasualtyShare: 0.4, Nationalities: []NationalityShare{
				{Code: "GBR", Share: 0.5},
				{Code: "DEU", Share: 0.5},
			}},
		},
		POITransitions: map[string]float64{"ROLE1": 0.86, StatusRTD: 0.06, StatusKIA: 0.08},
		FacilityChain: []FacilityStage{
			{
				ID:          "ROLE1",
				Transitions: map[string]float64{"ROLE2": 0.55, StatusRTD: 0.40, StatusKIA: 0.05},
				Treatments:  []string{"tourniquet", "pressure_bandage", "morphine"},
			},
			{
				ID:          "ROLE2",
				Transitions: map[string]float64{"ROLE3": 0.45, StatusRTD: 0.52, StatusKIA: 0.03},
				Treatments:  []string{"damage_control_surgery", "blood_transfusion"},
			},
			{
				ID:          "ROLE3",
				Transitions: map[string]float64{"ROLE4": 0.35, StatusRTD: 0.63, StatusKIA: 0.02},
				Treatments:  []string{"surgery", "icu_care"},
			},
			{
				ID:         "ROLE4",
				Treatments: []string{"definitive_care"},
			},
		},
		InjuryDistribution: map[InjuryCategory]float64{
			CategoryBattleTrauma:    0.55,
			CategoryNonBattleInjury: 0.25,
			CategoryDisease:         0.20,
		},
		TriageDistribution: map[InjuryCategory]map[TriageCategory]float64{
			CategoryBattleTrauma:    {TriageT1: 0.25, TriageT2: 0.35, TriageT3: 0.30, TriageT4: 0.10},
			CategoryNonBattleInjury: {TriageT1: 0.05, TriageT2: 0.25, TriageT3: 0.65, TriageT4: 0.05},
			CategoryDisease:         {TriageT1: 0.02, TriageT2: 0.18, TriageT3: 0.78, TriageT4: 0.02},
		},
		SeverityWeights: map[TriageCategory]map[string]float64{
			TriageT1: {"CRITICAL": 0.6, "SEVERE": 0.4},
			TriageT2: {"SEVERE": 0.5, "MODERATE": 0.5},
			TriageT3: {"MODERATE": 0.4, "MINOR": 0.6},
			TriageT4: {"CRITICAL": 0.8, "SEVERE": 0.2},
		},
		InitialHealth: map[InjuryCategory]map[string]float64{
			CategoryBattleTrauma:    {"CRITICAL": 35, "SEVERE": 55, "MODERATE": 70, "MINOR": 85},
			CategoryNonBattleInjury: {"CRITICAL": 40, "SEVERE": 60, "MODERATE": 75, "MINOR": 90},
			CategoryDisease:         {"CRITICAL": 45, "SEVERE": 65, "MODERATE": 80, "MINOR": 92},
		},
		WaitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {
				TriageT1: {MinHours: 0.5, MaxHours: 2},
				TriageT2: {MinHours: 0.5, MaxHours: 3},
				TriageT3: {MinHours: 1, MaxHours: 4},
				TriageT4: {MinHours: 0.5, MaxHours: 2},
			},
			"ROLE1": {
				TriageT1: {MinHours: 0.5, MaxHours: 1},
				TriageT2: {MinHours: 1, MaxHours: 2},
				TriageT3: {MinHours: 1, MaxHours: 4},
				TriageT4: {MinHours: 0.5, MaxHours: 1},
			},
			"ROLE2": {
				TriageT1: {MinHours: 1, MaxHours: 3},
				TriageT2: {MinHours: 2, MaxHours: 6},
				TriageT3: {MinHours: 2, MaxHours: 8},
				TriageT4: {MinHours: 1, MaxHours: 3},
			},
			"ROLE3": {
				TriageT1: {MinHours: 4, MaxHours: 12},
				TriageT2: {MinHours: 6, MaxHours: 18},
				TriageT3: {MinHours: 6, MaxHours: 24},
				TriageT4: {MinHours: 4, MaxHours: 12},
			},
		},
		TransitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {
				TriageT1: {MinHours: 0.25, MaxHours: 1},
				TriageT2: {MinHours: 0.5, MaxHours: 1.5},
				TriageT3: {MinHours: 0.5, MaxHours: 2},
				TriageT4: {MinHours: 0.25, MaxHours: 1},
			},
			"ROLE1": {
				TriageT1: {MinHours: 0.5, MaxHours: 1.5},
				TriageT2: {MinHours: 0.5, MaxHours: 2},
				TriageT3: {MinHours: 1, MaxHours: 3},
				TriageT4: {MinHours: 0.5, MaxHours: 1.5},
			},
			"ROLE2": {
				TriageT1: {MinHours: 1, MaxHours: 3},
				TriageT2: {MinHours: 1, MaxHours: 4},
				TriageT3: {MinHours: 2, MaxHours: 6},
				TriageT4: {MinHours: 1, MaxHours: 3},
			},
			"ROLE3": {
				TriageT1: {MinHours: 2, MaxHours: 6},
				TriageT2: {MinHours: 3, MaxHours: 8},
				TriageT3: {MinHours: 4, MaxHours: 12},
				TriageT4: {MinHours: 2, MaxHours: 6},
			},
		},
		Deterioration: DeteriorationParams{
			Bands: []SeverityBand{
				{Name: "CRITICAL", MinHealth: 0, MaxHealth: 25, RatePerHour: 10},
				{Name: "SEVERE", MinHealth: 25, MaxHealth: 50, RatePerHour: 6},
				{Name: "MODERATE", MinHealth: 50, MaxHealth: 75, RatePerHour: 3},
				{Name: "MINOR", MinHealth: 75, MaxHealth: 100, RatePerHour: 1},
			},
			GoldenHour: GoldenHourParams{DelayHours: 1, MaxMultiplier: 1.5, MaxAtHours: 6},
			Cliff: CliffEventParams{
				ProbabilityPerHour: 0.04,
				MinHealth:          5,
				MaxHealth:          45,
				MinDrop:            5,
				MaxDrop:            15,
			},
			TriageMultipliers: map[TriageCategory]float64{
				TriageT1: 1.6,
				TriageT2: 1.2,
				TriageT3: 0.8,
				TriageT4: 2.0,
			},
			Environment: map[string]float64{
				"COLD":     1.2,
				"HEAT":     1.15,
				"NIGHT":    1.1,
				"CBRN":     1.5,
				"LITTORAL": 1.05,
			},
		},
		Treatments: TreatmentCatalog{
			Effects: map[string]TreatmentEffect{
				"tourniquet":             {HealthBoost: 10, DeteriorationModifier: 0.6},
				"pressure_bandage":       {HealthBoost: 5, DeteriorationModifier: 0.8},
				"hemostatic_gauze":       {HealthBoost: 5, DeteriorationModifier: 0.75},
				"morphine":               {HealthBoost: 2, DeteriorationModifier: 0.95},
				"blood_transfusion":      {HealthBoost: 15, DeteriorationModifier: 0.5},
				"damage_control_surgery": {HealthBoost: 20, DeteriorationModifier: 0.4},
				"surgery":                {HealthBoost: 25, DeteriorationModifier: 0.3},
				"icu_care":               {HealthBoost: 10, DeteriorationModifier: 0.25},
				"definitive_care":        {HealthBoost: 30, DeteriorationModifier: 0.1},
			},
			Combinations: []TreatmentCombination{
				{
					ID:       "hemorrhage_control",
					Members:  []string{"tourniquet", "pressure_bandage", "hemostatic_gauze"},
					Modifier: 0.35,
				},
			},
			BoostCeiling: 40,
		},
		MassCasualty: MassCasualtyParams{Probability: 0.15, WaitMultiplier: 2.5},
		MaxHealth:    100,
	}
}
