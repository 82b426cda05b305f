package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/exermed/exermed/internal/platform/demographics"
	"github.com/exermed/exermed/internal/platform/export"
	"github.com/exermed/exermed/internal/platform/fhir"
	"github.com/exermed/exermed/internal/platform/terminology"
	"github.com/exermed/exermed/internal/sim"
)

// MaxCohortSize bounds a single generation request. Larger exercises are run
// as multiple jobs.
const MaxCohortSize = 100000

// ScenarioResolver resolves a scenario reference to a runnable
// configuration. Implemented by scenario.Service.
type ScenarioResolver interface {
	ResolveRef(ctx context.Context, ref string) (*sim.ResolvedConfig, error)
}

type Service struct {
	store     JobStore
	scenarios ScenarioResolver
	exportKey []byte
	workers   int
	log       zerolog.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

type ServiceOption func(*Service)

// WithWorkers sets the simulator worker count for each job.
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExportKey supplies the AES-256 key used when a request asks for an
// encrypted archive.
func WithExportKey(key []byte) ServiceOption {
	return func(s *Service) { s.exportKey = key }
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func NewService(store JobStore, scenarios ScenarioResolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		scenarios: scenarios,
		workers:   1,
		log:       zerolog.Nop(),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start validates the request, resolves the scenario and launches the run in
// the background. The returned job is already persisted in pending state.
func (s *Service) Start(ctx context.Context, req Request) (*Job, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if req.Count > MaxCohortSize {
		return nil, fmt.Errorf("count %d exceeds the limit of %d", req.Count, MaxCohortSize)
	}
	if req.Encrypt && len(s.exportKey) == 0 {
		return nil, fmt.Errorf("encrypted export requested but no export key is configured")
	}

	// Resolve up front so a bad scenario reference fails the request, not
	// the job.
	rc, err := s.scenarios.ResolveRef(ctx, req.Scenario)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	job := &Job{
		ID:        uuid.New(),
		Request:   req,
		Status:    StatusPending,
		Seed:      seed,
		Total:     req.Count,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	// Snapshot before the worker starts: the live pointer is mutated by the
	// goroutine and must not escape to callers.
	out := *job

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, job.ID)
			s.mu.Unlock()
			cancel()
		}()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job_id", job.ID.String()).Interface("panic", r).Msg("generation worker panicked")
				s.finish(job, fmt.Errorf("internal error: %v", r))
			}
		}()
		s.execute(runCtx, job, rc)
	}()

	return &out, nil
}

// execute runs the whole pipeline for one job: simulate, convert, export,
// store. Failures are recorded on the job, never returned.
func (s *Service) execute(ctx context.Context, job *Job, rc *sim.ResolvedConfig) {
	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	s.save(job)

	var progressMu sync.Mutex
	simulator := sim.New(rc,
		sim.WithWorkers(s.workers),
		sim.WithDemographics(demographics.NewProvider()),
		sim.WithConditions(terminology.NewProvider()),
		sim.WithLogger(s.log),
		sim.WithProgress(func(processed, total int) {
			progressMu.Lock()
			defer progressMu.Unlock()
			if processed > job.Processed {
				job.Processed = processed
			}
			s.save(job)
		}, 100),
	)

	records, err := simulator.Run(ctx, job.Request.Count, job.Seed)
	if err != nil {
		s.finish(job, err)
		return
	}

	opts := export.Options{Format: job.Request.Format, Gzip: job.Request.Gzip}
	if job.Request.Encrypt {
		opts.EncryptionKey = s.exportKey
	}
	exporter, err := export.New(opts)
	if err != nil {
		s.finish(job, err)
		return
	}

	bundle := fhir.NewConverter(now).NewBundle(records)
	var buf bytes.Buffer
	if err := exporter.Export(&buf, bundle); err != nil {
		s.finish(job, err)
		return
	}
	if err := s.store.SaveResult(context.Background(), job.ID, buf.Bytes()); err != nil {
		s.finish(job, err)
		return
	}

	job.Processed = job.Total
	job.FileName = exporter.FileName("cohort-" + job.ID.String())
	s.finish(job, nil)
	s.log.Info().
		Str("job", job.ID.String()).
		Int("patients", len(records)).
		Int64("seed", job.Seed).
		Msg("generation completed")
}

func (s *Service) finish(job *Job, err error) {
	now := time.Now().UTC()
	job.FinishedAt = &now
	switch {
	case err == nil:
		job.Status = StatusCompleted
	case errors.Is(err, context.Canceled):
		job.Status = StatusCanceled
		job.Error = err.Error()
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
	}
	s.save(job)
	if err != nil {
		s.log.Error().Err(err).Str("job", job.ID.String()).Str("status", string(job.Status)).Msg("generation did not complete")
	}
}

func (s *Service) save(job *Job) {
	if err := s.store.Save(context.Background(), job); err != nil {
		s.log.Error().Err(err).Str("job", job.ID.String()).Msg("persist job state")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Job, int, error) {
	return s.store.List(ctx, limit, offset)
}

// Result returns the exported payload and the finished job it belongs to.
func (s *Service) Result(ctx context.Context, id uuid.UUID) ([]byte, *Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != StatusCompleted {
		return nil, nil, fmt.Errorf("job %s is %s, not completed", id, job.Status)
	}
	data, err := s.store.Result(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return data, job, nil
}

// Cancel stops a running job. Canceling a terminal job is a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return job, nil
}

// Delete removes a terminal job and its stored result.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Terminal() {
		return fmt.Errorf("job %s is still %s", id, job.Status)
	}
	return s.store.Delete(ctx, id)
}

// Shutdown cancels all running jobs and waits for their goroutines.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
