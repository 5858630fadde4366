package runlog

import (
	"github.com/ldco/Kroma-sub000/internal/outputguard"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
)

// Record is the single durable artifact of a run. It is created once at a
// timestamp-derived path and afterwards mutated in place only through the
// idempotent patch operations in this package.
type Record struct {
	Timestamp   string            `json:"timestamp"`
	Project     string            `json:"project"`
	Mode        string            `json:"mode"`
	Stage       string            `json:"stage"`
	Time        string            `json:"time,omitempty"`
	Weather     string            `json:"weather,omitempty"`
	Model       string            `json:"model"`
	Size        string            `json:"size"`
	Quality     string            `json:"quality"`
	Generation  GenerationRecord  `json:"generation"`
	Postprocess postprocess.Plan  `json:"postprocess"`
	OutputGuard GuardConfigRecord `json:"output_guard"`
	Storage     StorageRecord     `json:"storage"`
	Jobs        []JobRecord       `json:"jobs"`
}

// GenerationRecord captures the candidate limits a run was planned with.
type GenerationRecord struct {
	Candidates    int `json:"candidates"`
	MaxCandidates int `json:"max_candidates"`
}

// GuardConfigRecord captures the output-guard configuration of a run.
type GuardConfigRecord struct {
	Enabled            bool    `json:"enabled"`
	EnforceGrayscale   bool    `json:"enforce_grayscale"`
	MaxChromaDelta     float64 `json:"max_chroma_delta"`
	FailOnChromaExceed bool    `json:"fail_on_chroma_exceed"`
}

// StorageRecord captures where the run's artifacts live and how the location
// was resolved.
type StorageRecord struct {
	ProjectRoot         string `json:"project_root"`
	ResolvedFromBackend string `json:"resolved_from_backend"`
}

// JobRecord is one planned job with its execution outcome. The bg_removal,
// upscale, color and output_guard sub-records mirror the winning candidate's
// and are maintained by NormalizeFinalization.
type JobRecord struct {
	ID          string   `json:"id"`
	Mode        string   `json:"mode"`
	Time        string   `json:"time,omitempty"`
	Weather     string   `json:"weather,omitempty"`
	InputImages []string `json:"input_images"`
	Prompt      string   `json:"prompt"`

	Status            string            `json:"status"`
	SelectedCandidate *int              `json:"selected_candidate"`
	FinalOutput       *string           `json:"final_output"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	Candidates        []CandidateRecord `json:"candidates,omitempty"`

	BgRemoval   *BgRemovalRecord   `json:"bg_removal,omitempty"`
	Upscale     *StageRecord       `json:"upscale,omitempty"`
	Color       *StageRecord       `json:"color,omitempty"`
	GuardResult *GuardResultRecord `json:"output_guard,omitempty"`

	PlannedGeneration  *GenerationRecord  `json:"planned_generation,omitempty"`
	PlannedPostprocess *postprocess.Plan  `json:"planned_postprocess,omitempty"`
	PlannedOutputGuard *GuardConfigRecord `json:"planned_output_guard,omitempty"`
}

// CandidateRecord is one generation attempt and the chain of outputs it
// produced, one sub-record per postprocessing stage it passed through.
type CandidateRecord struct {
	Index       int                `json:"index"`
	Status      string             `json:"status"`
	FinalOutput string             `json:"final_output,omitempty"`
	Generate    *StageRecord       `json:"generate,omitempty"`
	BgRemoval   *BgRemovalRecord   `json:"bg_removal,omitempty"`
	Upscale     *StageRecord       `json:"upscale,omitempty"`
	Color       *StageRecord       `json:"color,omitempty"`
	GuardResult *GuardResultRecord `json:"output_guard,omitempty"`
}

// StageRecord is the outcome of one postprocessing pass.
type StageRecord struct {
	Backend string `json:"backend,omitempty"`
	Profile string `json:"profile,omitempty"`
	Output  string `json:"output,omitempty"`
}

// BgRemovalRecord is the outcome of the background-removal pass, including
// the optional refinement note and error, which are recorded but not fatal.
type BgRemovalRecord struct {
	Backend     string `json:"backend"`
	Output      string `json:"output,omitempty"`
	RefineNote  string `json:"refine_note,omitempty"`
	RefineError string `json:"refine_error,omitempty"`
}

// GuardResultRecord is the output-guard grade of one candidate.
type GuardResultRecord struct {
	outputguard.Rank
	ArchivedTo string `json:"archived_to,omitempty"`
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// JobByID returns a pointer into the record's job array, or nil.
func (r *Record) JobByID(id string) *JobRecord {
	for i := range r.Jobs {
		if r.Jobs[i].ID == id {
			return &r.Jobs[i]
		}
	}
	return nil
}
