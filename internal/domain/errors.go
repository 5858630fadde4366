package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSpendConfirmation rejects run-mode execution without an explicit
// confirmation that paid generation may happen.
var ErrMissingSpendConfirmation = errors.New("run mode requires spend confirmation (confirm_spend=true)")

// InvalidProjectSlugError reports a project identifier that cannot address a
// project namespace.
type InvalidProjectSlugError struct {
	Slug string
}

func (e *InvalidProjectSlugError) Error() string {
	return fmt.Sprintf("invalid project slug %q", e.Slug)
}

// InvalidRequestError reports a trigger-level request shape violation.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// PreflightError reports that planning could not turn the request into a
// valid, size-bounded job set: manifest or jobs-file parse failures, missing
// scene references, missing prompt keys, an exceeded batch limit, an unknown
// postprocess backend, or an invalid candidate count.
type PreflightError struct {
	Message string
	Err     error
}

func (e *PreflightError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *PreflightError) Unwrap() error { return e.Err }

// Preflightf builds a PreflightError from a format string.
func Preflightf(format string, args ...any) *PreflightError {
	return &PreflightError{Message: fmt.Sprintf(format, args...)}
}

// CommandError carries the full observable outcome of a failed pipeline
// command: a tool-adapter invocation that failed, or the aggregate condition
// where jobs were rejected by the output guard. Stdout is preserved because a
// run log reference may already have been emitted before the failure.
type CommandError struct {
	Program    string
	StatusCode int
	Stdout     string
	Stderr     string
}

func (e *CommandError) Error() string {
	line := FirstStderrLine(e.Stderr)
	if line == "" {
		return fmt.Sprintf("%s failed with status %d", e.Program, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Program, e.StatusCode, line)
}

// FirstStderrLine returns the first non-empty line of a diagnostic stream,
// which is how command failures are summarized at the HTTP boundary.
func FirstStderrLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// PlannedJobsTempFileError reports a failure to materialize the planned-jobs
// scratch file handed to tool adapters.
type PlannedJobsTempFileError struct {
	Path string
	Err  error
}

func (e *PlannedJobsTempFileError) Error() string {
	return fmt.Sprintf("write planned jobs temp file %s: %v", e.Path, e.Err)
}

func (e *PlannedJobsTempFileError) Unwrap() error { return e.Err }
