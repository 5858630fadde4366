package pipeline

import (
	"context"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// terminalExecutor is the innermost link. A request that reaches it was not
// intercepted by any mode handler, which means preflight could not resolve
// it into a plan.
type terminalExecutor struct{}

func (terminalExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	return Result{}, domain.Preflightf(
		"request carries no plannable input: supply an input directory, scene refs, a manifest, or a jobs file")
}
