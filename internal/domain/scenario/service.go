package scenario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/exermed/exermed/internal/sim"
)

// DefaultTemplateName is the name of the seeded builtin template.
const DefaultTemplateName = "default"

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateTemplate validates the configuration and stores the template. The
// full violation list from resolution is surfaced to the caller.
func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Name == DefaultTemplateName {
		return fmt.Errorf("name %q is reserved", DefaultTemplateName)
	}
	if _, err := sim.Resolve(t.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	t.Builtin = false
	return s.repo.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetTemplateByName(ctx context.Context, name string) (*Template, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("template not found")
	}
	if existing.Builtin {
		return fmt.Errorf("builtin templates are read-only")
	}
	if _, err := sim.Resolve(t.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return s.repo.Update(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("template not found")
	}
	if existing.Builtin {
		return fmt.Errorf("builtin templates are read-only")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) ([]*Template, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Validate resolves a raw configuration without storing anything, returning
// the normalized form. Used by the dry-run endpoint.
func (s *Service) Validate(_ context.Context, cfg sim.ScenarioConfig) (*sim.ResolvedConfig, error) {
	return sim.Resolve(cfg)
}

// ResolveRef resolves a template reference to a runnable configuration.
// An empty ref means the builtin default scenario.
func (s *Service) ResolveRef(ctx context.Context, ref string) (*sim.ResolvedConfig, error) {
	if ref == "" || ref == DefaultTemplateName {
		return sim.Resolve(sim.DefaultScenario())
	}
	var (
		t   *Template
		err error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		t, err = s.repo.GetByID(ctx, id)
	} else {
		t, err = s.repo.GetByName(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario %q not found", ref)
	}
	return sim.Resolve(t.Config)
}

// EnsureDefault seeds the builtin default template if it is missing. Called
// at startup after migrations.
func (s *Service) EnsureDefault(ctx context.Context) error {
	if _, err := s.repo.GetByName(ctx, DefaultTemplateName); err == nil {
		return nil
	}
	t := &Template{
		Name:        DefaultTemplateName,
		Description: "Built-in two-front baseline scenario",
		Config:      sim.DefaultScenario(),
		Builtin:     true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return fmt.Errorf("seed default scenario: %w", err)
	}
	s.log.Info().Str("id", t.ID.String()).Msg("seeded builtin default scenario")
	return nil
}
