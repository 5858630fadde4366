package planning

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// Inputs are the planning-relevant fields of a run request. At most one of
// JobsFile, ManifestPath, InputDir and SceneRefs may be set.
type Inputs struct {
	JobsFile     string
	ManifestPath string
	InputDir     string
	SceneRefs    []string
	StyleRefs    []string

	Stage   domain.Stage
	Time    domain.TimeOfDay
	Weather domain.Weather

	Candidates      int
	AllowLargeBatch bool
}

// Plan is a validated, size-bounded job set ready for execution.
type Plan struct {
	Manifest     Manifest
	Jobs         []PlannedJob
	Candidates   int
	ManifestPath string
	FromJobsFile bool
}

// Preflighter turns raw request inputs into a Plan. DefaultBatchLimit seeds
// the built-in manifest when no manifest file is involved.
type Preflighter struct {
	DefaultBatchLimit int
}

// Plan validates in and builds the job set. It returns (nil, nil) when none
// of the four input shapes is present, signalling the caller that the request
// carries nothing to plan.
func (p Preflighter) Plan(in Inputs) (*Plan, error) {
	shapes := 0
	for _, set := range []bool{in.JobsFile != "", in.ManifestPath != "", in.InputDir != "", len(in.SceneRefs) > 0} {
		if set {
			shapes++
		}
	}
	if shapes > 1 {
		return nil, domain.Preflightf("supply at most one of jobs file, manifest path, input directory, or scene refs")
	}
	if shapes == 0 {
		return nil, nil
	}

	if in.JobsFile != "" {
		return p.planFromJobsFile(in)
	}

	var (
		m   Manifest
		err error
	)
	switch {
	case in.ManifestPath != "":
		m, err = LoadManifest(in.ManifestPath)
		if err != nil {
			return nil, err
		}
	case in.InputDir != "":
		m = DefaultManifest(p.DefaultBatchLimit)
		scenes, err := ScanInputDir(in.InputDir)
		if err != nil {
			return nil, err
		}
		m.SceneRefs = scenes
	default:
		m = DefaultManifest(p.DefaultBatchLimit)
		m.SceneRefs = in.SceneRefs
	}
	if len(in.StyleRefs) > 0 {
		m.StyleRefs = in.StyleRefs
	}

	candidates, err := resolveCandidates(in.Candidates, m.Generation)
	if err != nil {
		return nil, err
	}

	jobs, err := BuildGenerationJobs(m, in.Stage, in.Time, in.Weather)
	if err != nil {
		var missing *MissingPromptError
		if errors.Is(err, ErrNoSceneReferences) || errors.Is(err, ErrMissingStyleBasePrompt) || errors.As(err, &missing) {
			return nil, &domain.PreflightError{Message: err.Error(), Err: err}
		}
		return nil, err
	}
	if err := checkBatchLimit(len(jobs), m.SafeBatchLimit, in.AllowLargeBatch); err != nil {
		return nil, err
	}

	return &Plan{
		Manifest:     m,
		Jobs:         jobs,
		Candidates:   candidates,
		ManifestPath: in.ManifestPath,
	}, nil
}

func (p Preflighter) planFromJobsFile(in Inputs) (*Plan, error) {
	jobs, err := loadJobsFile(in.JobsFile)
	if err != nil {
		return nil, err
	}
	m := DefaultManifest(p.DefaultBatchLimit)
	candidates, err := resolveCandidates(in.Candidates, m.Generation)
	if err != nil {
		return nil, err
	}
	if err := checkBatchLimit(len(jobs), m.SafeBatchLimit, in.AllowLargeBatch); err != nil {
		return nil, err
	}
	return &Plan{
		Manifest:     m,
		Jobs:         jobs,
		Candidates:   candidates,
		FromJobsFile: true,
	}, nil
}

// loadJobsFile reads a pre-built job list, bypassing composition. YAML and
// JSON are both accepted.
func loadJobsFile(path string) ([]PlannedJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Preflightf("read jobs file %s: %v", path, err)
	}

	var jobs []PlannedJob
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&jobs); err != nil && !errors.Is(err, io.EOF) {
			return nil, domain.Preflightf("parse jobs file %s: %v", path, err)
		}
	} else {
		if err := json.Unmarshal(raw, &jobs); err != nil {
			return nil, domain.Preflightf("parse jobs file %s: %v", path, err)
		}
	}

	if len(jobs) == 0 {
		return nil, domain.Preflightf("jobs file %s contains no jobs", path)
	}
	for i, job := range jobs {
		if strings.TrimSpace(job.ID) == "" {
			return nil, domain.Preflightf("jobs file %s: job %d has no id", path, i+1)
		}
		if len(job.InputImages) == 0 {
			return nil, domain.Preflightf("jobs file %s: job %q has no input images", path, job.ID)
		}
	}
	return jobs, nil
}

func resolveCandidates(requested int, gen GenerationDefaults) (int, error) {
	if requested == 0 {
		return gen.Candidates, nil
	}
	if requested < 1 || requested > gen.MaxCandidates {
		return 0, domain.Preflightf("candidates must be between 1 and %d, got %d", gen.MaxCandidates, requested)
	}
	return requested, nil
}

func checkBatchLimit(jobCount, limit int, allowLarge bool) error {
	if allowLarge || jobCount <= limit {
		return nil
	}
	return domain.Preflightf(
		"planned %d jobs, above the safe batch limit of %d; pass the large-batch override to run anyway",
		jobCount, limit)
}
