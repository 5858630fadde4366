package ingest

import (
	"testing"

	"github.com/ldco/Kroma-sub000/internal/runlog"
)

func TestDeriveCostEvents(t *testing.T) {
	rec := runlog.Record{
		Model:   "gpt-image-1",
		Size:    "1024x1024",
		Quality: "high",
		Jobs: []runlog.JobRecord{
			{
				ID: "style_1_forest",
				Candidates: []runlog.CandidateRecord{
					{Index: 1, Status: "done"},
					{
						Index:     2,
						Status:    "failed_output_guard",
						BgRemoval: &runlog.BgRemovalRecord{Backend: "rembg", RefineNote: "refined"},
					},
				},
			},
		},
	}

	events := DeriveCostEvents(rec)
	if len(events) != 3 {
		t.Fatalf("derived %d events, want 3", len(events))
	}
	if events[0].Operation != "generate" || events[0].CandidateIndex != 1 {
		t.Fatalf("event 0 = %+v", events[0])
	}
	if events[0].AmountUSD != 0.19 {
		t.Fatalf("high tier amount = %v, want 0.19", events[0].AmountUSD)
	}
	if events[2].Operation != "bg_refine_openai" || events[2].CandidateIndex != 2 {
		t.Fatalf("event 2 = %+v", events[2])
	}

	again := DeriveCostEvents(rec)
	if len(again) != len(events) {
		t.Fatalf("derivation is not stable: %d vs %d", len(again), len(events))
	}
}

func TestDeriveCostEventsUnknownQualityFallsBack(t *testing.T) {
	rec := runlog.Record{
		Quality: "ultra",
		Jobs: []runlog.JobRecord{
			{ID: "j", Candidates: []runlog.CandidateRecord{{Index: 1}}},
		},
	}
	events := DeriveCostEvents(rec)
	if len(events) != 1 || events[0].AmountUSD != 0.07 {
		t.Fatalf("events = %+v, want medium-tier fallback", events)
	}
}
