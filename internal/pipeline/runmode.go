package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/outputguard"
	"github.com/ldco/Kroma-sub000/internal/planning"
	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/tooling"
)

// runModeExecutor intercepts run-mode requests it can resolve, rejecting
// unconfirmed spend before anything executes. Jobs run in manifest order and
// candidates within a job strictly in index order; the run log is written
// once, after every job has been processed.
type runModeExecutor struct {
	inner Executor
	deps  Deps
}

func (e *runModeExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	if req.Mode != domain.ModeRun {
		return e.inner.Execute(ctx, req)
	}
	if !req.ConfirmSpend {
		return Result{}, domain.ErrMissingSpendConfirmation
	}
	plan, err := resolvePlan(e.deps, req)
	if err != nil {
		return Result{}, err
	}
	if plan == nil {
		return e.inner.Execute(ctx, req)
	}
	return e.run(ctx, req, plan)
}

func (e *runModeExecutor) run(ctx context.Context, req Request, plan *runPlan) (Result, error) {
	if err := plan.Layout.EnsureModeLayout(req.Options.Stage); err != nil {
		return Result{}, err
	}

	jobsFile, err := writePlannedJobsFile(plan.Plan.Jobs)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(jobsFile)

	now := e.deps.now()
	logPath := plan.Layout.RunLogPath(req.Options.Stage, now)
	rec := plan.newRecord(req, now.UTC().Format(time.RFC3339))

	var out outputBuffer
	out.header(req.Options.Stage, req.Mode)

	failedJobs := 0
	for i := range rec.Jobs {
		job := &rec.Jobs[i]
		if err := e.runJob(ctx, plan, job); err != nil {
			// An adapter failure aborts the run before its log exists.
			return Result{}, err
		}
		if job.Status == string(domain.JobStatusDone) {
			out.linef("  %s done (candidate %d)", job.ID, *job.SelectedCandidate)
		} else {
			failedJobs++
			out.linef("  %s failed the output guard", job.ID)
		}
	}

	out.finish(runlog.Summary{
		RunLogPath:  logPath,
		ProjectSlug: rec.Project,
		ProjectRoot: plan.ProjectRoot,
		Jobs:        len(rec.Jobs),
		Mode:        string(req.Mode),
	}, "completed")

	if err := runlog.Write(logPath, rec); err != nil {
		return Result{}, err
	}

	e.deps.Logger.Info().
		Str("project", rec.Project).
		Str("run_log", logPath).
		Int("jobs", len(rec.Jobs)).
		Int("failed", failedJobs).
		Msg("run completed")

	if failedJobs > 0 {
		// The aggregate failure keeps the full stdout so the post-run
		// decorator can still locate and ingest the written run log.
		return Result{}, &domain.CommandError{
			Program:    "kroma-pipeline",
			StatusCode: 1,
			Stdout:     out.String(),
			Stderr:     fmt.Sprintf("%d of %d jobs failed the output guard", failedJobs, len(rec.Jobs)),
		}
	}
	return Result{
		Mode:    string(req.Mode),
		Stdout:  out.String(),
		Adapter: e.deps.AdapterName,
	}, nil
}

// runJob processes every candidate of one job in index order and selects the
// winner: the lowest-indexed candidate that cleared the guard.
func (e *runModeExecutor) runJob(ctx context.Context, plan *runPlan, job *runlog.JobRecord) error {
	total := plan.Plan.Candidates
	for idx := 1; idx <= total; idx++ {
		cand, err := e.runCandidate(ctx, plan, job, idx, total)
		if err != nil {
			return err
		}
		job.Candidates = append(job.Candidates, cand)
	}

	for i := range job.Candidates {
		if job.Candidates[i].Status == string(domain.CandidateStatusDone) {
			job.Status = string(domain.JobStatusDone)
			idx := job.Candidates[i].Index
			final := job.Candidates[i].FinalOutput
			job.SelectedCandidate = &idx
			job.FinalOutput = &final
			job.BgRemoval = job.Candidates[i].BgRemoval
			job.Upscale = job.Candidates[i].Upscale
			job.Color = job.Candidates[i].Color
			job.GuardResult = job.Candidates[i].GuardResult
			return nil
		}
	}
	job.Status = string(domain.JobStatusFailedOutputGuard)
	job.SelectedCandidate = nil
	job.FinalOutput = nil
	job.FailureReason = domain.FailureReasonAllCandidatesFailed
	return nil
}

// runCandidate runs the full chain for one candidate: generate, the enabled
// postprocessing passes in fixed order, then the output guard.
func (e *runModeExecutor) runCandidate(ctx context.Context, plan *runPlan, job *runlog.JobRecord, idx, total int) (runlog.CandidateRecord, error) {
	name, err := CandidateOutputFileName(job.ID, idx, total)
	if err != nil {
		return runlog.CandidateRecord{}, err
	}
	stage := domain.Stage(job.Mode)
	path := filepath.Join(plan.Layout.OutputDir(stage), name)

	cand := runlog.CandidateRecord{
		Index:  idx,
		Status: string(domain.CandidateStatusGenerated),
	}

	genRes, err := e.deps.Tools.Generator.Generate(ctx, tooling.GenerateRequest{
		JobID:       job.ID,
		Prompt:      job.Prompt,
		InputImages: job.InputImages,
		OutputPath:  path,
		Model:       plan.Settings.Model,
		Size:        plan.Settings.Size,
		Quality:     plan.Settings.Quality,
	})
	if err != nil {
		return cand, adapterFailure("generate", err)
	}
	path = genRes.OutputPath
	cand.Generate = &runlog.StageRecord{Output: path}

	if plan.Post.BgRemove {
		bgRes, err := e.deps.Tools.BgRemover.RemoveBackground(ctx, tooling.BgRemovalRequest{
			InputPath:     path,
			OutputPath:    path,
			Backend:       plan.Post.BgBackend,
			RefineEnabled: plan.Post.RefineEnabled,
		})
		if err != nil {
			return cand, adapterFailure("bg_remove", err)
		}
		if plan.Post.RefineRequired && bgRes.RefineError != "" {
			return cand, adapterFailure("bg_refine_openai", fmt.Errorf("%s", bgRes.RefineError))
		}
		path = bgRes.OutputPath
		cand.BgRemoval = &runlog.BgRemovalRecord{
			Backend:     plan.Post.BgBackend,
			Output:      path,
			RefineNote:  bgRes.RefineNote,
			RefineError: bgRes.RefineError,
		}
	}

	if plan.Post.Upscale {
		upRes, err := e.deps.Tools.Upscaler.Upscale(ctx, tooling.UpscaleRequest{
			InputPath:  path,
			OutputPath: path,
			Backend:    plan.Post.UpscaleBackend,
			Scale:      plan.Post.UpscaleScale,
		})
		if err != nil {
			return cand, adapterFailure("upscale", err)
		}
		path = upRes.OutputPath
		cand.Upscale = &runlog.StageRecord{Backend: plan.Post.UpscaleBackend, Output: path}
	}

	if plan.Post.Color {
		colRes, err := e.deps.Tools.Color.CorrectColor(ctx, tooling.ColorRequest{
			InputPath:  path,
			OutputPath: path,
			Profile:    plan.Post.ColorProfile,
		})
		if err != nil {
			return cand, adapterFailure("color", err)
		}
		path = colRes.OutputPath
		cand.Color = &runlog.StageRecord{Profile: plan.Post.ColorProfile, Output: path}
	}

	if !plan.guardEnabled() {
		cand.Status = string(domain.CandidateStatusDone)
		cand.FinalOutput = path
		return cand, nil
	}

	report, err := e.deps.Tools.Quality.CheckQuality(ctx, path)
	if err != nil {
		return cand, adapterFailure("quality_check", err)
	}
	rank := outputguard.RankReport(report, plan.Plan.Manifest.OutputGuard)
	cand.GuardResult = &runlog.GuardResultRecord{Rank: rank}
	if rank.Passes() {
		cand.Status = string(domain.CandidateStatusDone)
		cand.FinalOutput = path
		return cand, nil
	}

	archived, err := e.deps.Tools.Archiver.Archive(ctx, path, plan.Layout.ArchiveDir())
	if err != nil {
		return cand, adapterFailure("archive", err)
	}
	cand.GuardResult.ArchivedTo = archived
	cand.Status = string(domain.CandidateStatusFailedOutputGuard)
	return cand, nil
}

func adapterFailure(program string, err error) error {
	return &domain.CommandError{
		Program:    program,
		StatusCode: 1,
		Stderr:     err.Error(),
	}
}

// writePlannedJobsFile materializes the job set as a scratch file for
// exec-style adapters. The caller removes it when the run ends.
func writePlannedJobsFile(jobs []planning.PlannedJob) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("kroma_jobs_%s.json", uuid.NewString()))
	raw, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return "", &domain.PlannedJobsTempFileError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o600); err != nil {
		return "", &domain.PlannedJobsTempFileError{Path: path, Err: err}
	}
	return path, nil
}
