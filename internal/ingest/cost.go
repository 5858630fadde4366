package ingest

import (
	"strings"

	"github.com/ldco/Kroma-sub000/internal/runlog"
)

// CostEvent is one billable operation derived from a run log: a generation
// per candidate, plus one refinement event wherever the background-removal
// pass reported an auxiliary refinement.
type CostEvent struct {
	JobID          string
	CandidateIndex int
	Operation      string
	Model          string
	Size           string
	Quality        string
	AmountUSD      float64
}

// Per-image price estimate by quality tier. These mirror the published image
// API tiers closely enough for spend tracking.
var generateCostUSD = map[string]float64{
	"low":    0.02,
	"medium": 0.07,
	"high":   0.19,
}

const refineCostUSD = 0.04

// DeriveCostEvents lists the cost events a run log implies. The derivation
// is pure: the same record always yields the same events in the same order.
func DeriveCostEvents(rec runlog.Record) []CostEvent {
	var events []CostEvent
	for _, job := range rec.Jobs {
		for _, cand := range job.Candidates {
			amount, ok := generateCostUSD[strings.ToLower(rec.Quality)]
			if !ok {
				amount = generateCostUSD["medium"]
			}
			events = append(events, CostEvent{
				JobID:          job.ID,
				CandidateIndex: cand.Index,
				Operation:      "generate",
				Model:          rec.Model,
				Size:           rec.Size,
				Quality:        rec.Quality,
				AmountUSD:      amount,
			})
			if cand.BgRemoval != nil && cand.BgRemoval.RefineNote != "" {
				events = append(events, CostEvent{
					JobID:          job.ID,
					CandidateIndex: cand.Index,
					Operation:      "bg_refine_openai",
					Model:          rec.Model,
					AmountUSD:      refineCostUSD,
				})
			}
		}
	}
	return events
}
