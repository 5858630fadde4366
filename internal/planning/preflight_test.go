package planning

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

func writePlanFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPreflightNoInputShapeReturnsNil(t *testing.T) {
	p := Preflighter{DefaultBatchLimit: 12}
	plan, err := p.Plan(Inputs{Stage: domain.StageStyle})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan != nil {
		t.Fatalf("plan = %+v, want nil for empty request", plan)
	}
}

func TestPreflightRejectsCombinedInputShapes(t *testing.T) {
	p := Preflighter{DefaultBatchLimit: 12}
	_, err := p.Plan(Inputs{
		Stage:     domain.StageStyle,
		SceneRefs: []string{"a.png"},
		InputDir:  "somewhere",
	})
	var perr *domain.PreflightError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PreflightError", err)
	}
	if !strings.Contains(err.Error(), "at most one") {
		t.Fatalf("err = %v, want the exclusivity message", err)
	}
}

func TestPreflightFromSceneRefs(t *testing.T) {
	p := Preflighter{DefaultBatchLimit: 12}
	plan, err := p.Plan(Inputs{
		Stage:     domain.StageStyle,
		SceneRefs: []string{"scenes/a.png", "scenes/b.png"},
		StyleRefs: []string{"style/sheet.png"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(plan.Jobs))
	}
	if plan.Candidates != 1 {
		t.Fatalf("Candidates = %d, want manifest default 1", plan.Candidates)
	}
	if got := plan.Jobs[0].InputImages; len(got) != 2 || got[1] != "style/sheet.png" {
		t.Fatalf("InputImages = %v, want scene plus style refs", got)
	}
}

func TestPreflightBatchLimit(t *testing.T) {
	p := Preflighter{DefaultBatchLimit: 2}
	in := Inputs{
		Stage:     domain.StageStyle,
		SceneRefs: []string{"a.png", "b.png", "c.png"},
	}
	_, err := p.Plan(in)
	var perr *domain.PreflightError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PreflightError", err)
	}
	if !strings.Contains(err.Error(), "safe batch limit") {
		t.Fatalf("err = %v, want batch limit message", err)
	}

	in.AllowLargeBatch = true
	plan, err := p.Plan(in)
	if err != nil {
		t.Fatalf("Plan with override: %v", err)
	}
	if len(plan.Jobs) != 3 {
		t.Fatalf("len(Jobs) = %d, want 3 with override", len(plan.Jobs))
	}
}

func TestPreflightCandidateBounds(t *testing.T) {
	p := Preflighter{DefaultBatchLimit: 12}
	for _, bad := range []int{-1, 7} {
		_, err := p.Plan(Inputs{
			Stage:      domain.StageStyle,
			SceneRefs:  []string{"a.png"},
			Candidates: bad,
		})
		var perr *domain.PreflightError
		if !errors.As(err, &perr) {
			t.Fatalf("candidates=%d: err = %v, want *PreflightError", bad, err)
		}
	}

	plan, err := p.Plan(Inputs{
		Stage:      domain.StageStyle,
		SceneRefs:  []string{"a.png"},
		Candidates: 3,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Candidates != 3 {
		t.Fatalf("Candidates = %d, want 3", plan.Candidates)
	}
}

func TestPreflightFromManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, "manifest.yaml", `
prompts:
  style_base: BASE
scene_refs:
  - scenes/a.png
style_refs:
  - style/s.png
safe_batch_limit: 5
generation:
  candidates: 2
  max_candidates: 4
`)
	p := Preflighter{DefaultBatchLimit: 12}
	plan, err := p.Plan(Inputs{Stage: domain.StageStyle, ManifestPath: path})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.ManifestPath != path {
		t.Fatalf("ManifestPath = %q, want %q", plan.ManifestPath, path)
	}
	if plan.Candidates != 2 {
		t.Fatalf("Candidates = %d, want manifest default 2", plan.Candidates)
	}
	if len(plan.Jobs) != 1 || plan.Jobs[0].Prompt != "BASE" {
		t.Fatalf("unexpected jobs: %+v", plan.Jobs)
	}
}

func TestPreflightManifestMissingPrompt(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, "manifest.yaml", `
prompts:
  style_base: BASE
scene_refs:
  - scenes/a.png
`)
	p := Preflighter{DefaultBatchLimit: 12}
	_, err := p.Plan(Inputs{Stage: domain.StageTime, Time: domain.TimeDay, ManifestPath: path})
	var perr *domain.PreflightError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PreflightError", err)
	}
	if !strings.Contains(err.Error(), "time_day") {
		t.Fatalf("err = %v, want missing prompt key named", err)
	}
}

func TestPreflightManifestMissingStyleBase(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, "manifest.yaml", `
prompts:
  time_day: DAY
scene_refs:
  - scenes/a.png
`)
	p := Preflighter{DefaultBatchLimit: 12}
	_, err := p.Plan(Inputs{Stage: domain.StageTime, Time: domain.TimeDay, ManifestPath: path})
	var perr *domain.PreflightError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PreflightError", err)
	}
	if !errors.Is(err, ErrMissingStyleBasePrompt) {
		t.Fatalf("err = %v, want ErrMissingStyleBasePrompt in the chain", err)
	}
}

func TestPreflightFromInputDir(t *testing.T) {
	dir := t.TempDir()
	writePlanFile(t, dir, "b/second.png", "x")
	writePlanFile(t, dir, "a/first.PNG", "x")
	writePlanFile(t, dir, "notes.txt", "x")

	p := Preflighter{DefaultBatchLimit: 12}
	plan, err := p.Plan(Inputs{Stage: domain.StageStyle, InputDir: dir})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want the two images only", len(plan.Jobs))
	}
	if !strings.HasSuffix(plan.Jobs[0].InputImages[0], "first.PNG") {
		t.Fatalf("jobs should be sorted by scanned path: %+v", plan.Jobs)
	}
}

func TestPreflightFromJobsFile(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, "jobs.json", `[
  {"id":"style_1_a","mode":"style","input_images":["scenes/a.png"],"prompt":"BASE"}
]`)
	p := Preflighter{DefaultBatchLimit: 12}
	plan, err := p.Plan(Inputs{Stage: domain.StageStyle, JobsFile: path})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !plan.FromJobsFile {
		t.Fatal("FromJobsFile should be set")
	}
	if len(plan.Jobs) != 1 || plan.Jobs[0].ID != "style_1_a" {
		t.Fatalf("unexpected jobs: %+v", plan.Jobs)
	}
}

func TestPreflightJobsFileRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := writePlanFile(t, dir, "jobs.json", `[
  {"mode":"style","input_images":["scenes/a.png"],"prompt":"BASE"}
]`)
	p := Preflighter{DefaultBatchLimit: 12}
	_, err := p.Plan(Inputs{Stage: domain.StageStyle, JobsFile: path})
	var perr *domain.PreflightError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PreflightError", err)
	}
	if !strings.Contains(err.Error(), "no id") {
		t.Fatalf("err = %v, want missing id message", err)
	}
}
