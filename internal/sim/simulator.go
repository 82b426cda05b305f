package sim

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DemographicsProvider supplies display demographics for a nationality code.
// Implementations must derive everything from the supplied RNG so runs stay
// reproducible.
type DemographicsProvider interface {
	Identity(rng *rand.Rand, nationality string) Identity
}

// ConditionProvider supplies a coded injury/illness label for an injury
// category and triage. The simulator attaches the code without interpreting
// it.
type ConditionProvider interface {
	Condition(rng *rand.Rand, category InjuryCategory, triage TriageCategory) Code
}

// ProgressFunc is invoked periodically with (processed, total). It must not
// influence the simulation; it exists purely for job-status reporting and may
// be called from multiple workers.
type ProgressFunc func(processed, total int)

// perPatientSeedStride separates per-patient RNG streams. Patients draw from
// independent sources so a parallel run reproduces a sequential one
// bit-for-bit.
const perPatientSeedStride = 1000003

// Simulator walks synthetic casualties through the evacuation chain
// POI -> configured facility stages -> RTD/KIA/definitive care.
type Simulator struct {
	cfg           *ResolvedConfig
	reg           *TreatmentRegistry
	demographics  DemographicsProvider
	conditions    ConditionProvider
	log           zerolog.Logger
	workers       int
	progress      ProgressFunc
	progressEvery int
}

type Option func(*Simulator)

// WithWorkers sets the number of concurrent patient workers.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgress registers a progress callback invoked every `every` patients
// and at completion.
func WithProgress(fn ProgressFunc, every int) Option {
	return func(s *Simulator) {
		s.progress = fn
		if every > 0 {
			s.progressEvery = every
		}
	}
}

func WithDemographics(p DemographicsProvider) Option {
	return func(s *Simulator) { s.demographics = p }
}

func WithConditions(p ConditionProvider) Option {
	return func(s *Simulator) { s.conditions = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// New builds a Simulator over a resolved configuration. The configuration is
// read-only from here on and may be shared between simulators.
func New(cfg *ResolvedConfig, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:           cfg,
		reg:           NewTreatmentRegistry(cfg.Scenario.Treatments),
		log:           zerolog.Nop(),
		workers:       1,
		progressEvery: 25,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run simulates count patients and returns their records in patient order.
// Identical (cfg, count, seed) inputs produce identical output. Cancellation
// is honored between patients, never mid-patient. The only run-time error is
// an *UnknownTreatmentError, which aborts the whole batch: it means the
// facility capability lists and the treatment catalog disagree.
func (s *Simulator) Run(ctx context.Context, count int, seed int64) ([]*PatientRecord, error) {
	if count <= 0 {
		return []*PatientRecord{}, nil
	}

	// The mass-casualty regime is a run-level decision: every patient in the
	// cohort waits under the same regime so deterioration stays comparable.
	runRNG := rand.New(rand.NewSource(seed))
	mass := runRNG.Float64() < s.cfg.Scenario.MassCasualty.Probability
	if mass {
		s.log.Info().Int64("seed", seed).Msg("mass-casualty wait regime selected for this run")
	}

	records := make([]*PatientRecord, count)
	if s.workers <= 1 {
		var processed int
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := s.simulateOne(s.patientRNG(seed, i), mass)
			if err != nil {
				return nil, err
			}
			records[i] = rec
			processed++
			s.report(processed, count)
		}
		return records, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
		firstErr  error
	)
	jobs := make(chan int)
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, err := s.simulateOne(s.patientRNG(seed, i), mass)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
				records[i] = rec
				mu.Lock()
				processed++
				done := processed
				mu.Unlock()
				s.report(done, count)
			}
		}()
	}

dispatch:
	for i := 0; i < count; i++ {
		select {
		case jobs <- i:
		case <-workCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// RunEach streams records one at a time instead of materializing the cohort.
// It is always sequential; fn returning an error stops the run.
func (s *Simulator) RunEach(ctx context.Context, count int, seed int64, fn func(*PatientRecord) error) error {
	runRNG := rand.New(rand.NewSource(seed))
	mass := runRNG.Float64() < s.cfg.Scenario.MassCasualty.Probability
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := s.simulateOne(s.patientRNG(seed, i), mass)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		s.report(i+1, count)
	}
	return nil
}

// patientRNG derives an independent random source for patient i. Sources are
// index-keyed, not shared, so worker scheduling cannot change any draw.
func (s *Simulator) patientRNG(seed int64, i int) *rand.Rand {
	return rand.New(rand.NewSource(seed + perPatientSeedStride*int64(i+1)))
}

func (s *Simulator) report(processed, total int) {
	if s.progress == nil {
		return
	}
	if processed%s.progressEvery == 0 || processed == total {
		s.progress(processed, total)
	}
}

// simulateOne runs the full per-patient lifecycle.
func (s *Simulator) simulateOne(rng *rand.Rand, massCasualty bool) (*PatientRecord, error) {
	sc := &s.cfg.Scenario

	p := &PatientRecord{ID: newPatientID(rng), Status: StatusPOI}

	// Stochastic assignment: front, nationality, injury category, triage,
	// severity band. Draw order is fixed; changing it changes every seed.
	front := sc.Fronts[weightedIndex(rng, len(sc.Fronts), func(i int) float64 {
		return sc.Fronts[i].CasualtyShare
	})]
	p.Front = front.ID
	if len(front.Nationalities) > 0 {
		p.Nationality = front.Nationalities[weightedIndex(rng, len(front.Nationalities), func(i int) float64 {
			return front.Nationalities[i].Share
		})].Code
	}
	p.InjuryCategory = weightedKey(rng, sc.InjuryDistribution)
	p.TriageCategory = weightedKey(rng, sc.TriageDistribution[p.InjuryCategory])
	p.SeverityBand = weightedKey(rng, sc.SeverityWeights[p.TriageCategory])

	p.InitialHealth = InitialHealth(sc, p.InjuryCategory, p.SeverityBand)
	p.HealthScore = p.InitialHealth

	if s.demographics != nil {
		p.Identity = s.demographics.Identity(rng, p.Nationality)
	}
	if s.conditions != nil {
		p.Injury = s.conditions.Condition(rng, p.InjuryCategory, p.TriageCategory)
	}

	// Point of injury: wait for the first responder with no treatment active.
	wait := uniformHours(rng, hoursFor(sc.WaitTimes, StatusPOI, p.TriageCategory))
	if massCasualty {
		wait *= sc.MassCasualty.WaitMultiplier
	}
	died, err := s.elapse(p, rng, wait, nil)
	if err != nil {
		return nil, err
	}
	if died {
		p.dispose(StatusKIA, StatusPOI)
		return p, nil
	}

	var active []string
	current := StatusPOI
	for {
		table := sc.POITransitions
		if current != StatusPOI {
			stage, _ := s.cfg.Stage(current)
			table = stage.Transitions
		}
		if len(table) == 0 {
			// Chain exhausted: the stage is the definitive-care terminal.
			p.dispose(current, current)
			return p, nil
		}

		dest := weightedKey(rng, table)
		if dest == StatusRTD || dest == StatusKIA {
			p.dispose(dest, current)
			return p, nil
		}

		// Evacuate forward. Treatment during transit is whatever was already
		// applied; death en route disposes at the last facility reached.
		transit := uniformHours(rng, hoursFor(sc.TransitTimes, current, p.TriageCategory))
		died, err := s.elapse(p, rng, transit, active)
		if err != nil {
			return nil, err
		}
		if died {
			p.dispose(StatusKIA, current)
			return p, nil
		}

		current = dest
		p.Status = dest
		destStage, _ := s.cfg.Stage(dest)

		if len(destStage.Treatments) > 0 {
			boost, err := s.reg.TotalBoost(destStage.Treatments)
			if err != nil {
				return nil, err
			}
			before := p.HealthScore
			p.HealthScore = clampHealth(p.HealthScore+boost, sc.MaxHealth)
			p.Treatments = append(p.Treatments, TreatmentEvent{
				Stage:        dest,
				AtHours:      p.ElapsedHours,
				Applied:      append([]string(nil), destStage.Treatments...),
				HealthBoost:  boost,
				HealthBefore: before,
				HealthAfter:  p.HealthScore,
			})
			active = mergeTreatments(active, destStage.Treatments)
		}

		// Hold at the facility until the next transition decision.
		hold := uniformHours(rng, hoursFor(sc.WaitTimes, dest, p.TriageCategory))
		died, err = s.elapse(p, rng, hold, active)
		if err != nil {
			return nil, err
		}
		if died {
			p.dispose(StatusKIA, dest)
			return p, nil
		}
	}
}

// elapse advances simulated time in steps of at most one hour, applying
// deterioration each step and rolling for a cliff event on every full hour.
// It reports whether the patient's health reached zero; death by
// deterioration always takes precedence over any later sampled transition.
func (s *Simulator) elapse(p *PatientRecord, rng *rand.Rand, hours float64, active []string) (bool, error) {
	sc := &s.cfg.Scenario
	remaining := hours
	for remaining > 0 {
		step := math.Min(1, remaining)
		dc := DeteriorationContext{
			Health:           p.HealthScore,
			ElapsedHours:     p.ElapsedHours,
			Triage:           p.TriageCategory,
			ActiveTreatments: active,
			Environment:      sc.EnvironmentFactors,
		}
		delta, err := ComputeDelta(dc, sc.Deterioration, s.reg)
		if err != nil {
			return false, err
		}
		p.HealthScore -= delta * step
		p.ElapsedHours += step
		remaining -= step
		if p.HealthScore <= 0 {
			p.HealthScore = 0
			return true, nil
		}
		if step == 1 {
			if drop, ok := SampleCliffEvent(p.HealthScore, p.ElapsedHours, sc.Deterioration.Cliff, rng); ok {
				p.HealthScore -= drop
				if p.HealthScore <= 0 {
					p.HealthScore = 0
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// newPatientID derives a UUID from the patient's own random stream so that
// record identity is reproducible under a fixed seed.
func newPatientID(rng *rand.Rand) uuid.UUID {
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	id, _ := uuid.FromBytes(b[:])
	return id
}

func mergeTreatments(active, applied []string) []string {
	seen := make(map[string]bool, len(active))
	for _, id := range active {
		seen[id] = true
	}
	for _, id := range applied {
		if !seen[id] {
			active = append(active, id)
			seen[id] = true
		}
	}
	return active
}
