package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/runlog"
)

// postRunExecutor is the outermost link. Whatever the inner chain returned,
// it looks for a run-log reference in the inner output and best-effort
// normalizes, patches and ingests that artifact. Failures in this phase are
// demoted to warnings on the diagnostic channel; they never override or mask
// the inner outcome.
type postRunExecutor struct {
	inner Executor
	deps  Deps
}

func (e *postRunExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	res, innerErr := e.inner.Execute(ctx, req)

	stdout := res.Stdout
	var cmdErr *domain.CommandError
	if innerErr != nil {
		if !errors.As(innerErr, &cmdErr) {
			return res, innerErr
		}
		stdout = cmdErr.Stdout
	}

	logPath, ok := runlog.FindRunLogPath(stdout)
	if !ok {
		return res, innerErr
	}

	warnings := e.reconcile(ctx, req, logPath)
	if len(warnings) > 0 {
		joined := strings.Join(warnings, "\n")
		if cmdErr != nil {
			cmdErr.Stderr = appendDiagnostic(cmdErr.Stderr, joined)
		} else {
			res.Stderr = appendDiagnostic(res.Stderr, joined)
		}
	}
	return res, innerErr
}

// reconcile patches and ingests the run log at logPath, returning warnings
// instead of errors.
func (e *postRunExecutor) reconcile(ctx context.Context, req Request, logPath string) []string {
	var warnings []string
	warnf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		e.deps.Logger.Warn().Str("run_log", logPath).Msg(msg)
		warnings = append(warnings, "warning: "+msg)
	}

	plan, err := resolvePlan(e.deps, req)
	if err != nil || plan == nil {
		if err != nil {
			warnf("post-run: rebuild planning summary: %v", err)
		}
	} else if err := runlog.PatchFile(logPath, plan.planSummary()); err != nil {
		warnf("post-run: patch run log: %v", err)
	}

	rec, err := runlog.Load(logPath)
	if err != nil {
		warnf("post-run: load run log: %v", err)
		return warnings
	}

	if e.deps.Ingestor != nil {
		if err := e.deps.Ingestor.IngestRunLog(ctx, logPath, rec); err != nil {
			warnf("post-run: ingest run log: %v", err)
		}
	}

	if req.Mode == domain.ModeRun && req.Options.StorageSyncS3 && e.deps.Syncer != nil {
		if err := e.deps.Syncer.SyncRun(ctx, rec.Project, rec.Storage.ProjectRoot); err != nil {
			warnf("post-run: storage sync: %v", err)
		}
	}
	return warnings
}

func appendDiagnostic(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return strings.TrimRight(existing, "\n") + "\n" + addition
}
