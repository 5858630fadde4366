package pipeline

import (
	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
)

// ValidationReport describes a resolved configuration stack without anything
// having executed: which settings tiers were found, which postprocess config
// file applies, and how many jobs the request would plan.
type ValidationReport struct {
	AppSettingsPath       string `json:"app_settings_path"`
	AppSettingsLoaded     bool   `json:"app_settings_loaded"`
	ProjectSettingsPath   string `json:"project_settings_path"`
	ProjectSettingsLoaded bool   `json:"project_settings_loaded"`
	PostprocessPath       string `json:"postprocess_path,omitempty"`
	ManifestPath          string `json:"manifest_path,omitempty"`
	ProjectRoot           string `json:"project_root"`
	Jobs                  int    `json:"jobs"`
	Model                 string `json:"model"`
	Size                  string `json:"size"`
	Quality               string `json:"quality"`
}

// ValidateConfig resolves and validates the full settings, manifest and
// postprocess stack for req without writing anything or calling any adapter.
func ValidateConfig(d Deps, req Request) (ValidationReport, error) {
	slug := domain.NormalizeSlug(req.Project)
	if !domain.ValidProjectSlug(slug) {
		return ValidationReport{}, &domain.InvalidProjectSlugError{Slug: req.Project}
	}

	eff, err := d.Resolver.Resolve(slug, req.Options.Settings)
	if err != nil {
		return ValidationReport{}, err
	}

	plan, err := resolvePlan(d, req)
	if err != nil {
		return ValidationReport{}, err
	}
	if plan == nil {
		return ValidationReport{}, domain.Preflightf(
			"request carries no plannable input: supply an input directory, scene refs, a manifest, or a jobs file")
	}

	_, ppPath, err := postprocess.LoadConfig(d.ConfigRoot, slug)
	if err != nil {
		return ValidationReport{}, err
	}

	return ValidationReport{
		AppSettingsPath:       eff.Sources.AppPath,
		AppSettingsLoaded:     eff.Sources.AppLoaded,
		ProjectSettingsPath:   eff.Sources.ProjectPath,
		ProjectSettingsLoaded: eff.Sources.ProjectLoaded,
		PostprocessPath:       ppPath,
		ManifestPath:          plan.Plan.ManifestPath,
		ProjectRoot:           plan.ProjectRoot,
		Jobs:                  len(plan.Plan.Jobs),
		Model:                 eff.Model,
		Size:                  eff.Size,
		Quality:               eff.Quality,
	}, nil
}
