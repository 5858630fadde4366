package pipeline

import (
	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/planning"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/settings"
	"github.com/ldco/Kroma-sub000/internal/storage"
)

// SettingsResolver is the settings-merging contract the chain depends on.
// settings.Resolver is the production implementation.
type SettingsResolver interface {
	Resolve(slug string, explicit settings.Overlay) (settings.Effective, error)
}

// runPlan is the fully resolved view of one request: effective settings, the
// validated job set, the postprocess decision and the storage location. Both
// executors and the post-run patcher work from it.
type runPlan struct {
	Settings    settings.Effective
	Plan        planning.Plan
	Post        postprocess.Plan
	ProjectRoot string
	ResolvedVia string
	Layout      storage.Layout
}

// resolvePlan runs the settings resolver, the planning preflight and the
// postprocess planner for req. A (nil, nil) return means the request carries
// none of the plannable input shapes; the calling decorator then defers to
// its inner handler.
func resolvePlan(d Deps, req Request) (*runPlan, error) {
	slug := domain.NormalizeSlug(req.Project)
	if !domain.ValidProjectSlug(slug) {
		return nil, &domain.InvalidProjectSlugError{Slug: req.Project}
	}

	eff, err := d.Resolver.Resolve(slug, req.Options.Settings)
	if err != nil {
		return nil, err
	}

	pf := planning.Preflighter{DefaultBatchLimit: d.BatchLimit}
	plan, err := pf.Plan(planning.Inputs{
		JobsFile:        req.Options.JobsFile,
		ManifestPath:    req.Options.ManifestPath,
		InputDir:        req.Options.InputDir,
		SceneRefs:       req.Options.SceneRefs,
		StyleRefs:       req.Options.StyleRefs,
		Stage:           req.Options.Stage,
		Time:            req.Options.Time,
		Weather:         req.Options.Weather,
		Candidates:      req.Options.Candidates,
		AllowLargeBatch: req.Options.AllowLargeBatch,
	})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	ppCfg, _, err := postprocess.LoadConfig(d.ConfigRoot, slug)
	if err != nil {
		return nil, err
	}
	post, err := postprocess.Resolve(ppCfg, req.Options.Postprocess)
	if err != nil {
		return nil, &domain.PreflightError{Message: "postprocess plan", Err: err}
	}

	root, via, err := storage.ResolveProjectRoot(eff, slug, req.Options.ProjectRoot)
	if err != nil {
		return nil, err
	}

	return &runPlan{
		Settings:    eff,
		Plan:        *plan,
		Post:        post,
		ProjectRoot: root,
		ResolvedVia: via,
		Layout:      storage.Layout{ProjectRoot: root},
	}, nil
}

// guardEnabled reports whether the output guard runs for this plan. The gate
// is tied to the manifest's grayscale enforcement policy.
func (p *runPlan) guardEnabled() bool {
	return p.Plan.Manifest.OutputGuard.EnforceGrayscale
}

// planSummary rebuilds the planning view used to patch planned metadata onto
// an already-written run log.
func (p *runPlan) planSummary() runlog.PlanSummary {
	return runlog.PlanSummary{
		Generation:  p.generationRecord(),
		Postprocess: p.Post,
		OutputGuard: p.guardConfigRecord(),
		Storage: runlog.StorageRecord{
			ProjectRoot:         p.ProjectRoot,
			ResolvedFromBackend: p.ResolvedVia,
		},
	}
}

func (p *runPlan) generationRecord() runlog.GenerationRecord {
	return runlog.GenerationRecord{
		Candidates:    p.Plan.Candidates,
		MaxCandidates: p.Plan.Manifest.Generation.MaxCandidates,
	}
}

func (p *runPlan) guardConfigRecord() runlog.GuardConfigRecord {
	g := p.Plan.Manifest.OutputGuard
	return runlog.GuardConfigRecord{
		Enabled:            p.guardEnabled(),
		EnforceGrayscale:   g.EnforceGrayscale,
		MaxChromaDelta:     g.MaxChromaDelta,
		FailOnChromaExceed: g.FailOnChromaExceed,
	}
}

// newRecord seeds the run-log document shared by both executors: run-level
// metadata plus one planned job entry per planned job.
func (p *runPlan) newRecord(req Request, timestamp string) runlog.Record {
	rec := runlog.Record{
		Timestamp:   timestamp,
		Project:     domain.NormalizeSlug(req.Project),
		Mode:        string(req.Mode),
		Stage:       string(req.Options.Stage),
		Time:        timeTag(req.Options.Stage, req.Options.Time),
		Weather:     weatherTag(req.Options.Stage, req.Options.Weather),
		Model:       p.Settings.Model,
		Size:        p.Settings.Size,
		Quality:     p.Settings.Quality,
		Generation:  p.generationRecord(),
		Postprocess: p.Post,
		OutputGuard: p.guardConfigRecord(),
		Storage: runlog.StorageRecord{
			ProjectRoot:         p.ProjectRoot,
			ResolvedFromBackend: p.ResolvedVia,
		},
	}
	gen := p.generationRecord()
	guard := p.guardConfigRecord()
	for _, job := range p.Plan.Jobs {
		post := p.Post
		rec.Jobs = append(rec.Jobs, runlog.JobRecord{
			ID:                 job.ID,
			Mode:               job.Mode,
			Time:               job.Time,
			Weather:            job.Weather,
			InputImages:        job.InputImages,
			Prompt:             job.Prompt,
			Status:             string(domain.JobStatusPlanned),
			PlannedGeneration:  &gen,
			PlannedPostprocess: &post,
			PlannedOutputGuard: &guard,
		})
	}
	return rec
}

func timeTag(stage domain.Stage, tod domain.TimeOfDay) string {
	if !stage.WantsTime() {
		return ""
	}
	return string(tod)
}

func weatherTag(stage domain.Stage, weather domain.Weather) string {
	if !stage.WantsWeather() {
		return ""
	}
	return string(weather)
}
