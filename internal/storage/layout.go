package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/settings"
)

// ResolveProjectRoot derives a project's storage root from the effective
// settings. An explicit override wins; otherwise the root follows the
// configured backend. The second return value records how the root was
// resolved, for the run log's storage block.
func ResolveProjectRoot(eff settings.Effective, slug, override string) (string, string, error) {
	if !domain.ValidProjectSlug(slug) {
		return "", "", &domain.InvalidProjectSlugError{Slug: slug}
	}
	if override != "" {
		return override, "override", nil
	}
	switch eff.StorageBackend {
	case "local":
		return filepath.Join(eff.LocalRoot, slug), "local", nil
	case "s3":
		return filepath.Join(eff.S3Mirror, slug), "s3", nil
	default:
		return "", "", fmt.Errorf("storage: unsupported backend %q", eff.StorageBackend)
	}
}

// Layout names the directories a project root is organized into.
type Layout struct {
	ProjectRoot string
}

func (l Layout) RunsDir() string    { return filepath.Join(l.ProjectRoot, "runs") }
func (l Layout) ArchiveDir() string { return filepath.Join(l.ProjectRoot, "archive") }

// OutputDir is where a stage's finished candidates land.
func (l Layout) OutputDir(stage domain.Stage) string {
	return filepath.Join(l.ProjectRoot, "out", string(stage))
}

// EnsureModeLayout creates the directory skeleton a run needs before any
// artifact is written.
func (l Layout) EnsureModeLayout(stage domain.Stage) error {
	for _, dir := range []string{l.RunsDir(), l.OutputDir(stage), l.ArchiveDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: ensure layout %s: %w", dir, err)
		}
	}
	return nil
}

// RunLogPath computes a fresh timestamp-stamped run-log path. A short random
// suffix keeps paths unique when two runs start within the same second.
func (l Layout) RunLogPath(stage domain.Stage, now time.Time) string {
	stamp := now.UTC().Format("20060102T150405Z")
	suffix := strings.Split(uuid.NewString(), "-")[0]
	name := fmt.Sprintf("run_%s_%s_%s.json", stage, stamp, suffix)
	return filepath.Join(l.RunsDir(), name)
}
