package pipeline

import (
	"context"
	"time"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/runlog"
)

// dryRunExecutor intercepts dry-mode requests it can resolve and defers
// everything else to its inner handler. A dry run materializes the planned
// run artifact without invoking any external or paid operation.
type dryRunExecutor struct {
	inner Executor
	deps  Deps
}

func (e *dryRunExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	if req.Mode != domain.ModeDry {
		return e.inner.Execute(ctx, req)
	}
	plan, err := resolvePlan(e.deps, req)
	if err != nil {
		return Result{}, err
	}
	if plan == nil {
		return e.inner.Execute(ctx, req)
	}
	return e.run(req, plan)
}

func (e *dryRunExecutor) run(req Request, plan *runPlan) (Result, error) {
	if err := plan.Layout.EnsureModeLayout(req.Options.Stage); err != nil {
		return Result{}, err
	}

	now := e.deps.now()
	logPath := plan.Layout.RunLogPath(req.Options.Stage, now)
	rec := plan.newRecord(req, now.UTC().Format(time.RFC3339))
	if err := runlog.Write(logPath, rec); err != nil {
		return Result{}, err
	}

	var out outputBuffer
	out.header(req.Options.Stage, req.Mode)
	for _, job := range plan.Plan.Jobs {
		out.linef("  planned %s (%d input images)", job.ID, len(job.InputImages))
	}
	out.finish(runlog.Summary{
		RunLogPath:  logPath,
		ProjectSlug: rec.Project,
		ProjectRoot: plan.ProjectRoot,
		Jobs:        len(plan.Plan.Jobs),
		Mode:        string(req.Mode),
	}, "planned")

	e.deps.Logger.Info().
		Str("project", rec.Project).
		Str("run_log", logPath).
		Int("jobs", len(plan.Plan.Jobs)).
		Msg("dry run planned")

	return Result{
		Mode:    string(req.Mode),
		Stdout:  out.String(),
		Adapter: e.deps.AdapterName,
	}, nil
}
