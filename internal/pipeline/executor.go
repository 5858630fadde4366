package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/tooling"
)

// Result is the observable outcome of one executed request. Stdout carries
// the human-readable status lines plus the machine-parseable summary line;
// Stderr is the diagnostic channel the post-run decorator appends its
// warnings to.
type Result struct {
	Mode       string `json:"mode"`
	StatusCode int    `json:"status_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Adapter    string `json:"adapter"`
}

// Executor is one link of the orchestration chain. Each decorator holds an
// inner Executor of the same interface and either intercepts the request or
// fully defers to it.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Ingestor reconciles a written run log into the external relational store.
// Ingestion is keyed by the run-log path and replaces on conflict, so
// repeated ingestion of the same path is idempotent.
type Ingestor interface {
	IngestRunLog(ctx context.Context, path string, rec runlog.Record) error
}

// Syncer mirrors a project's run artifacts to the configured sync target.
type Syncer interface {
	SyncRun(ctx context.Context, slug, projectRoot string) error
}

// Deps is everything the chain needs at construction time. Ingestor and
// Syncer may be nil; the post-run decorator then skips the corresponding
// best-effort step.
type Deps struct {
	Logger      zerolog.Logger
	Resolver    SettingsResolver
	ConfigRoot  string
	BatchLimit  int
	Tools       tooling.Toolchain
	AdapterName string
	Ingestor    Ingestor
	Syncer      Syncer
	Now         func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewChain assembles the chain innermost-out: the terminal handler, the
// dry-run decorator, the run-mode decorator, and the post-run decorator on
// the outside.
func NewChain(d Deps) Executor {
	var exec Executor = terminalExecutor{}
	exec = &dryRunExecutor{inner: exec, deps: d}
	exec = &runModeExecutor{inner: exec, deps: d}
	exec = &postRunExecutor{inner: exec, deps: d}
	return exec
}
