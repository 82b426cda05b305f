package sim

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func mustResolve(t *testing.T, raw ScenarioConfig) *ResolvedConfig {
	t.Helper()
	rc, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return rc
}

// lethalScenario reproduces the over-tuned configuration that motivated the
// deterioration rework: Severe base rate 30/hr, golden-hour max 2.5, T1
// multiplier 2.0 and a 3-8h first-responder wait. Every T1 casualty burns
// through 60 health points in well under the minimum wait.
func lethalScenario() ScenarioConfig {
	return ScenarioConfig{
		Name:          "lethal-guard",
		TotalPatients: 100,
		Fronts: []FrontSpec{
			{ID: "MAIN", CasualtyShare: 1, Nationalities: []NationalityShare{{Code: "USA", Share: 1}}},
		},
		POITransitions: map[string]float64{"R1": 0.8, StatusKIA: 0.2},
		FacilityChain: []FacilityStage{
			{ID: "R1"},
		},
		InjuryDistribution: map[InjuryCategory]float64{CategoryBattleTrauma: 1},
		TriageDistribution: map[InjuryCategory]map[TriageCategory]float64{
			CategoryBattleTrauma: {TriageT1: 1},
		},
		SeverityWeights: map[TriageCategory]map[string]float64{
			TriageT1: {"SEVERE": 1},
		},
		InitialHealth: map[InjuryCategory]map[string]float64{
			CategoryBattleTrauma: {"SEVERE": 60},
		},
		WaitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {TriageT1: {MinHours: 3, MaxHours: 8}},
		},
		Deterioration: DeteriorationParams{
			Bands: []SeverityBand{
				{Name: "SEVERE", MinHealth: 0, MaxHealth: 100, RatePerHour: 30},
			},
			GoldenHour:        GoldenHourParams{DelayHours: 1, MaxMultiplier: 2.5, MaxAtHours: 3},
			TriageMultipliers: map[TriageCategory]float64{TriageT1: 2},
		},
		Treatments: TreatmentCatalog{Effects: map[string]TreatmentEffect{}},
	}
}

// tunedScenario is the retuned configuration: lower base rates, golden-hour
// max 1.5, 0.5-2h first-responder waits and higher initial health, with the
// residual mortality carried by the transition tables.
func tunedScenario() ScenarioConfig {
	return ScenarioConfig{
		Name:          "tuned",
		TotalPatients: 200,
		Fronts: []FrontSpec{
			{ID: "MAIN", CasualtyShare: 1, Nationalities: []NationalityShare{{Code: "USA", Share: 1}}},
		},
		POITransitions: map[string]float64{"R1": 0.825, StatusKIA: 0.175},
		FacilityChain: []FacilityStage{
			{
				ID:          "R1",
				Transitions: map[string]float64{"R2": 0.95, StatusKIA: 0.05},
				Treatments:  []string{"tourniquet", "pressure_bandage"},
			},
			{
				ID:          "R2",
				Transitions: map[string]float64{StatusRTD: 1},
			},
		},
		InjuryDistribution: map[InjuryCategory]float64{
			CategoryBattleTrauma:    0.6,
			CategoryNonBattleInjury: 0.25,
			CategoryDisease:         0.15,
		},
		TriageDistribution: map[InjuryCategory]map[TriageCategory]float64{
			CategoryBattleTrauma:    {TriageT1: 0.3, TriageT2: 0.4, TriageT3: 0.3},
			CategoryNonBattleInjury: {TriageT2: 0.3, TriageT3: 0.7},
			CategoryDisease:         {TriageT3: 1},
		},
		SeverityWeights: map[TriageCategory]map[string]float64{
			TriageT1: {"SEVERE": 1},
			TriageT2: {"SEVERE": 0.3, "MODERATE": 0.7},
			TriageT3: {"MODERATE": 1},
		},
		InitialHealth: map[InjuryCategory]map[string]float64{
			CategoryBattleTrauma:    {"SEVERE": 75, "MODERATE": 85},
			CategoryNonBattleInjury: {"SEVERE": 80, "MODERATE": 88},
			CategoryDisease:         {"MODERATE": 90},
		},
		WaitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {
				TriageT1: {MinHours: 0.5, MaxHours: 2},
				TriageT2: {MinHours: 0.5, MaxHours: 2},
				TriageT3: {MinHours: 0.5, MaxHours: 2},
			},
			"R1": {
				TriageT1: {MinHours: 0.25, MaxHours: 0.5},
				TriageT2: {MinHours: 0.25, MaxHours: 0.5},
				TriageT3: {MinHours: 0.25, MaxHours: 0.5},
			},
		},
		TransitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {
				TriageT1: {MinHours: 0.25, MaxHours: 0.5},
				TriageT2: {MinHours: 0.25, MaxHours: 0.5},
				TriageT3: {MinHours: 0.25, MaxHours: 0.5},
			},
			"R1": {
				TriageT1: {MinHours: 0.25, MaxHours: 0.5},
				TriageT2: {MinHours: 0.25, MaxHours: 0.5},
				TriageT3: {MinHours: 0.25, MaxHours: 0.5},
			},
		},
		Deterioration: DeteriorationParams{
			Bands: []SeverityBand{
				{Name: "CRITICAL", MinHealth: 0, MaxHealth: 30, RatePerHour: 8},
				{Name: "SEVERE", MinHealth: 30, MaxHealth: 60, RatePerHour: 8},
				{Name: "STABLE", MinHealth: 60, MaxHealth: 100, RatePerHour: 8},
			},
			GoldenHour: GoldenHourParams{DelayHours: 1, MaxMultiplier: 1.5, MaxAtHours: 6},
			Cliff: CliffEventParams{
				ProbabilityPerHour: 0.05,
				MinHealth:          5,
				MaxHealth:          50,
				MinDrop:            5,
				MaxDrop:            10,
			},
			TriageMultipliers: map[TriageCategory]float64{TriageT1: 1.6, TriageT2: 1.2, TriageT3: 0.8},
		},
		Treatments: TreatmentCatalog{
			Effects: map[string]TreatmentEffect{
				"tourniquet":       {HealthBoost: 10, DeteriorationModifier: 0.6},
				"pressure_bandage": {HealthBoost: 5, DeteriorationModifier: 0.8},
			},
		},
	}
}

func TestRunZeroPatients(t *testing.T) {
	s := New(mustResolve(t, tunedScenario()))
	records, err := s.Run(context.Background(), 0, 7)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Run(0) = %v, want empty non-nil slice", records)
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	a, err := New(cfg).Run(context.Background(), 120, 42)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	b, err := New(cfg).Run(context.Background(), 120, 42)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two runs with the same seed diverged")
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	seq, err := New(cfg).Run(context.Background(), 150, 9)
	if err != nil {
		t.Fatalf("sequential Run() error: %v", err)
	}
	par, err := New(cfg, WithWorkers(4)).Run(context.Background(), 150, 9)
	if err != nil {
		t.Fatalf("parallel Run() error: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel run diverged from sequential run with the same seed")
	}
}

func TestRunEachMatchesRun(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	want, err := New(cfg).Run(context.Background(), 40, 5)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	var got []*PatientRecord
	err = New(cfg).RunEach(context.Background(), 40, 5, func(p *PatientRecord) error {
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatalf("RunEach() error: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Error("RunEach diverged from Run")
	}
}

func TestRunInvariants(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	records, err := New(cfg).Run(context.Background(), 300, 1234)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, p := range records {
		if !p.Terminal() {
			t.Fatalf("patient %s has no disposition (status %s)", p.ID, p.Status)
		}
		if p.HealthScore < 0 {
			t.Errorf("patient %s health %v below floor", p.ID, p.HealthScore)
		}
		if p.DispositionHours > p.ElapsedHours {
			t.Errorf("patient %s disposed at %vh after elapsed %vh", p.ID, p.DispositionHours, p.ElapsedHours)
		}
		prev := 0.0
		for _, ev := range p.Treatments {
			if ev.AtHours < prev {
				t.Errorf("patient %s treatment time went backward: %v < %v", p.ID, ev.AtHours, prev)
			}
			prev = ev.AtHours
			if ev.HealthAfter < 0 || ev.HealthAfter > cfg.Scenario.MaxHealth {
				t.Errorf("patient %s treatment left health %v outside [0, max]", p.ID, ev.HealthAfter)
			}
			if ev.AtHours > p.DispositionHours {
				t.Errorf("patient %s treated at %vh after disposition %vh", p.ID, ev.AtHours, p.DispositionHours)
			}
		}
	}
}

func TestLethalConfigurationMortalityGuard(t *testing.T) {
	cfg := mustResolve(t, lethalScenario())
	records, err := New(cfg).Run(context.Background(), 100, 77)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	poiDeaths := 0
	for _, p := range records {
		if p.Status == StatusKIA && p.DispositionStage == StatusPOI {
			poiDeaths++
		}
	}
	if rate := float64(poiDeaths) / float64(len(records)); rate <= 0.8 {
		t.Errorf("POI death rate = %.2f, want > 0.80 for the over-tuned configuration", rate)
	}
}

func TestTunedConfigurationMortalityTarget(t *testing.T) {
	cfg := mustResolve(t, tunedScenario())

	// Tuning regressions are judged on a fixed seed panel; a single 200
	// patient draw is too noisy to pin a five-point band on.
	seeds := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	var total, poi, all int
	for _, seed := range seeds {
		records, err := New(cfg).Run(context.Background(), 200, seed)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		for _, p := range records {
			all++
			if p.Status == StatusKIA {
				total++
				if p.DispositionStage == StatusPOI {
					poi++
				}
			}
		}
	}

	totalRate := float64(total) / float64(all)
	poiRate := float64(poi) / float64(all)
	if totalRate < 0.15 || totalRate > 0.25 {
		t.Errorf("total mortality = %.3f, want within [0.15, 0.25]", totalRate)
	}
	if poiRate < 0.15 || poiRate > 0.20 {
		t.Errorf("POI mortality = %.3f, want within [0.15, 0.20]", poiRate)
	}
}

func TestTreatmentEfficacyDivergence(t *testing.T) {
	base := ScenarioConfig{
		Name:          "efficacy",
		TotalPatients: 1,
		Fronts: []FrontSpec{
			{ID: "MAIN", CasualtyShare: 1, Nationalities: []NationalityShare{{Code: "USA", Share: 1}}},
		},
		POITransitions: map[string]float64{"R1": 1},
		FacilityChain: []FacilityStage{
			{ID: "R1", Transitions: map[string]float64{"R2": 1}},
			{ID: "R2"},
		},
		InjuryDistribution: map[InjuryCategory]float64{CategoryBattleTrauma: 1},
		TriageDistribution: map[InjuryCategory]map[TriageCategory]float64{
			CategoryBattleTrauma: {TriageT1: 1},
		},
		SeverityWeights: map[TriageCategory]map[string]float64{TriageT1: {"SEVERE": 1}},
		InitialHealth: map[InjuryCategory]map[string]float64{
			CategoryBattleTrauma: {"SEVERE": 80},
		},
		WaitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {TriageT1: {MinHours: 2, MaxHours: 2}},
			"R1":      {TriageT1: {MinHours: 2, MaxHours: 2}},
		},
		TransitTimes: map[string]map[TriageCategory]HourRange{
			StatusPOI: {TriageT1: {MinHours: 1, MaxHours: 1}},
			"R1":      {TriageT1: {MinHours: 1, MaxHours: 1}},
		},
		Deterioration: DeteriorationParams{
			Bands: []SeverityBand{
				{Name: "SEVERE", MinHealth: 0, MaxHealth: 100, RatePerHour: 5},
			},
			TriageMultipliers: map[TriageCategory]float64{TriageT1: 1},
		},
		Treatments: TreatmentCatalog{
			Effects: map[string]TreatmentEffect{
				"tourniquet": {HealthBoost: 10, DeteriorationModifier: 0.6},
			},
		},
	}

	treated := base
	treated.FacilityChain = []FacilityStage{
		{ID: "R1", Transitions: map[string]float64{"R2": 1}, Treatments: []string{"tourniquet"}},
		{ID: "R2"},
	}

	const seed = 31
	untreatedRec, err := New(mustResolve(t, base)).Run(context.Background(), 1, seed)
	if err != nil {
		t.Fatalf("untreated Run() error: %v", err)
	}
	treatedRec, err := New(mustResolve(t, treated)).Run(context.Background(), 1, seed)
	if err != nil {
		t.Fatalf("treated Run() error: %v", err)
	}

	u, tr := untreatedRec[0], treatedRec[0]
	if u.ElapsedHours != tr.ElapsedHours {
		t.Fatalf("timelines diverged: %v vs %v hours", u.ElapsedHours, tr.ElapsedHours)
	}
	if tr.HealthScore <= u.HealthScore {
		t.Errorf("treated health %v not strictly greater than untreated %v", tr.HealthScore, u.HealthScore)
	}
	if len(tr.Treatments) != 1 || tr.Treatments[0].Applied[0] != "tourniquet" {
		t.Fatalf("treated record missing tourniquet event: %+v", tr.Treatments)
	}
}

func TestRunUnknownTreatmentAbortsBatch(t *testing.T) {
	raw := tunedScenario()
	raw.FacilityChain[0].Treatments = []string{"tourniquet", "miracle_cure"}
	cfg := mustResolve(t, raw)

	_, err := New(cfg).Run(context.Background(), 50, 3)
	if err == nil {
		t.Fatal("Run() should fail when a capability list names an uncataloged treatment")
	}
	var ute *UnknownTreatmentError
	if !errors.As(err, &ute) {
		t.Fatalf("error type = %T, want *UnknownTreatmentError", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(cfg).Run(ctx, 100, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunProgressCallback(t *testing.T) {
	cfg := mustResolve(t, DefaultScenario())
	type call struct{ done, total int }
	var calls []call
	s := New(cfg, WithProgress(func(done, total int) {
		calls = append(calls, call{done, total})
	}, 10))

	records, err := s.Run(context.Background(), 25, 2)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("progress calls = %v, want 3", calls)
	}
	last := calls[len(calls)-1]
	if last.done != 25 || last.total != 25 {
		t.Errorf("final progress call = %+v, want (25, 25)", last)
	}
	// The callback must not have influenced the outcome.
	plain, err := New(cfg).Run(context.Background(), 25, 2)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !reflect.DeepEqual(records, plain) {
		t.Error("registering a progress callback changed the simulation outcome")
	}
}

func TestMassCasualtyRegimeIsPerRun(t *testing.T) {
	raw := lethalScenario()
	raw.WaitTimes[StatusPOI][TriageT1] = HourRange{MinHours: 0.1, MaxHours: 0.2}
	raw.Deterioration.Bands[0].RatePerHour = 8
	raw.Deterioration.GoldenHour = GoldenHourParams{}
	raw.MassCasualty = MassCasualtyParams{Probability: 1, WaitMultiplier: 100}
	cfg := mustResolve(t, raw)

	records, err := New(cfg).Run(context.Background(), 50, 11)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// 10-20h waits at 16/hr against 60 health: the whole cohort dies at POI.
	for _, p := range records {
		if p.Status != StatusKIA || p.DispositionStage != StatusPOI {
			t.Fatalf("patient %s survived a mass-casualty wait: status %s at %s", p.ID, p.Status, p.DispositionStage)
		}
	}

	raw.MassCasualty.Probability = 0
	cfg = mustResolve(t, raw)
	records, err = New(cfg).Run(context.Background(), 50, 11)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, p := range records {
		if p.DispositionStage == StatusPOI && p.Status == StatusKIA && p.HealthScore == 0 {
			t.Fatalf("patient %s died of deterioration during a 0.1-0.2h wait", p.ID)
		}
	}
}
