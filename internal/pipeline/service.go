package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// Service is the trigger-facing front of the chain. It validates the shape
// of an inbound request before any settings file is read or side effect
// happens; only a request that clears every check enters the chain.
type Service struct {
	Chain  Executor
	Logger zerolog.Logger
}

// Trigger validates req and, when valid, executes it through the chain.
func (s *Service) Trigger(ctx context.Context, req Request) (Result, error) {
	normalized, err := Normalize(req)
	if err != nil {
		return Result{}, err
	}
	s.Logger.Info().
		Str("project", normalized.Project).
		Str("mode", string(normalized.Mode)).
		Str("stage", string(normalized.Options.Stage)).
		Int("candidates", normalized.Options.Candidates).
		Msg("pipeline trigger accepted")
	return s.Chain.Execute(ctx, normalized)
}

// Normalize enforces the trigger-level request shape and returns a derived
// request with defaults applied. It is the only gate between an inbound
// request and the chain.
func Normalize(req Request) (Request, error) {
	out := req
	out.Project = domain.NormalizeSlug(req.Project)
	if !domain.ValidProjectSlug(out.Project) {
		return Request{}, &domain.InvalidProjectSlugError{Slug: req.Project}
	}

	if out.Mode == "" {
		out.Mode = domain.ModeDry
	}
	if !out.Mode.Valid() {
		return Request{}, &domain.InvalidRequestError{Message: "mode must be dry or run"}
	}
	if out.Mode == domain.ModeRun && !out.ConfirmSpend {
		return Request{}, domain.ErrMissingSpendConfirmation
	}

	opts := &out.Options
	if opts.ProjectRoot != "" {
		return Request{}, &domain.InvalidRequestError{
			Message: "project_root may not be supplied; it is derived from the project's storage configuration"}
	}

	hasInput := opts.InputDir != ""
	hasScenes := len(opts.SceneRefs) > 0
	if hasInput && hasScenes {
		return Request{}, &domain.InvalidRequestError{Message: "supply either input or scene_refs, not both"}
	}
	if !hasInput && !hasScenes && opts.ManifestPath == "" && opts.JobsFile == "" {
		return Request{}, &domain.InvalidRequestError{Message: "supply one of input or scene_refs"}
	}

	if opts.Stage == "" {
		opts.Stage = domain.StageStyle
	}
	if !opts.Stage.Valid() {
		return Request{}, &domain.InvalidRequestError{Message: "stage must be style, time or weather"}
	}
	if opts.Time != "" {
		if !opts.Time.Valid() {
			return Request{}, &domain.InvalidRequestError{Message: "time must be day or night"}
		}
		if !opts.Stage.WantsTime() {
			return Request{}, &domain.InvalidRequestError{Message: "time requires stage time or weather"}
		}
	}
	if opts.Weather != "" {
		if !opts.Weather.Valid() {
			return Request{}, &domain.InvalidRequestError{Message: "weather must be clear or rain"}
		}
		if !opts.Stage.WantsWeather() {
			return Request{}, &domain.InvalidRequestError{Message: "weather requires stage weather"}
		}
	}
	if opts.Stage.WantsTime() && opts.Time == "" {
		opts.Time = domain.TimeDay
	}
	if opts.Stage.WantsWeather() && opts.Weather == "" {
		opts.Weather = domain.WeatherClear
	}

	if opts.Candidates < 0 {
		return Request{}, &domain.InvalidRequestError{Message: "candidates must be positive"}
	}
	return out, nil
}
