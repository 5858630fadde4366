package runlog

import (
	"reflect"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
)

// PlanSummary is a freshly rebuilt planning view of a run, used to patch
// planned metadata onto an existing document.
type PlanSummary struct {
	Generation  GenerationRecord
	Postprocess postprocess.Plan
	OutputGuard GuardConfigRecord
	Storage     StorageRecord
}

// NormalizeFinalization recomputes every job's finalization fields from its
// candidate array. The lowest-indexed done candidate wins: its index, final
// output and stage sub-records are mirrored onto the job. When candidates
// exist but none is done, the job is marked failed with the mirrored
// sub-records removed. Jobs without candidates are left untouched. The input
// is not modified; applying the function twice yields the same document.
func NormalizeFinalization(rec Record) Record {
	out := cloneRecord(rec)
	for i := range out.Jobs {
		normalizeJob(&out.Jobs[i])
	}
	return out
}

func normalizeJob(job *JobRecord) {
	if len(job.Candidates) == 0 {
		return
	}

	var winner *CandidateRecord
	for i := range job.Candidates {
		if job.Candidates[i].Status == string(domain.CandidateStatusDone) {
			winner = &job.Candidates[i]
			break
		}
	}

	if winner == nil {
		job.Status = string(domain.JobStatusFailedOutputGuard)
		job.SelectedCandidate = nil
		job.FinalOutput = nil
		job.FailureReason = domain.FailureReasonAllCandidatesFailed
		job.BgRemoval = nil
		job.Upscale = nil
		job.Color = nil
		job.GuardResult = nil
		return
	}

	job.Status = string(domain.JobStatusDone)
	job.SelectedCandidate = intPtr(winner.Index)
	job.FinalOutput = strPtr(winner.FinalOutput)
	job.FailureReason = ""
	job.BgRemoval = cloneBgRemoval(winner.BgRemoval)
	job.Upscale = cloneStage(winner.Upscale)
	job.Color = cloneStage(winner.Color)
	job.GuardResult = cloneGuardResult(winner.GuardResult)
}

// ApplyPlannedMetadata copies the run-level generation, postprocess, output
// guard and storage metadata plus the per-job planned-* fields from summary
// onto rec. Fields already equal stay untouched, so re-applying the same
// summary is a no-op.
func ApplyPlannedMetadata(rec Record, summary PlanSummary) Record {
	out := cloneRecord(rec)
	out.Generation = summary.Generation
	out.Postprocess = summary.Postprocess
	out.OutputGuard = summary.OutputGuard
	out.Storage = summary.Storage
	for i := range out.Jobs {
		gen := summary.Generation
		post := summary.Postprocess
		guard := summary.OutputGuard
		out.Jobs[i].PlannedGeneration = &gen
		out.Jobs[i].PlannedPostprocess = &post
		out.Jobs[i].PlannedOutputGuard = &guard
	}
	return out
}

// PatchFile loads the run log at path, normalizes job finalization, applies
// the planned metadata and rewrites the file only when the document actually
// changed.
func PatchFile(path string, summary PlanSummary) error {
	rec, err := Load(path)
	if err != nil {
		return err
	}
	patched := ApplyPlannedMetadata(NormalizeFinalization(rec), summary)
	if reflect.DeepEqual(rec, patched) {
		return nil
	}
	return Write(path, patched)
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Postprocess.Order = cloneStrings(rec.Postprocess.Order)
	if rec.Jobs != nil {
		out.Jobs = make([]JobRecord, len(rec.Jobs))
		for i, job := range rec.Jobs {
			out.Jobs[i] = cloneJob(job)
		}
	}
	return out
}

func cloneJob(job JobRecord) JobRecord {
	out := job
	out.InputImages = cloneStrings(job.InputImages)
	if job.SelectedCandidate != nil {
		out.SelectedCandidate = intPtr(*job.SelectedCandidate)
	}
	if job.FinalOutput != nil {
		out.FinalOutput = strPtr(*job.FinalOutput)
	}
	if job.Candidates != nil {
		out.Candidates = make([]CandidateRecord, len(job.Candidates))
		for i, cand := range job.Candidates {
			out.Candidates[i] = cloneCandidate(cand)
		}
	}
	out.BgRemoval = cloneBgRemoval(job.BgRemoval)
	out.Upscale = cloneStage(job.Upscale)
	out.Color = cloneStage(job.Color)
	out.GuardResult = cloneGuardResult(job.GuardResult)
	if job.PlannedGeneration != nil {
		gen := *job.PlannedGeneration
		out.PlannedGeneration = &gen
	}
	if job.PlannedPostprocess != nil {
		post := *job.PlannedPostprocess
		post.Order = cloneStrings(job.PlannedPostprocess.Order)
		out.PlannedPostprocess = &post
	}
	if job.PlannedOutputGuard != nil {
		guard := *job.PlannedOutputGuard
		out.PlannedOutputGuard = &guard
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneCandidate(cand CandidateRecord) CandidateRecord {
	out := cand
	out.Generate = cloneStage(cand.Generate)
	out.BgRemoval = cloneBgRemoval(cand.BgRemoval)
	out.Upscale = cloneStage(cand.Upscale)
	out.Color = cloneStage(cand.Color)
	out.GuardResult = cloneGuardResult(cand.GuardResult)
	return out
}

func cloneStage(s *StageRecord) *StageRecord {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func cloneBgRemoval(b *BgRemovalRecord) *BgRemovalRecord {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}

func cloneGuardResult(g *GuardResultRecord) *GuardResultRecord {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}
