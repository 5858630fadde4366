package outputguard

import (
	"math"
	"testing"

	"github.com/ldco/Kroma-sub000/internal/planning"
)

func gateConfig(failOnExceed bool) planning.GuardConfig {
	return planning.GuardConfig{
		EnforceGrayscale:   true,
		MaxChromaDelta:     8,
		FailOnChromaExceed: failOnExceed,
	}
}

func TestRankReportCleanPasses(t *testing.T) {
	rep := Report{Files: []FileMeasurement{
		{Path: "a.png", ChromaDelta: 2},
		{Path: "b.png", ChromaDelta: 8},
	}}
	rank := RankReport(rep, gateConfig(true))
	if !rank.Passes() {
		t.Fatalf("rank = %+v, want pass", rank)
	}
	if rank.HardFailures != 0 || rank.SoftWarnings != 0 {
		t.Fatalf("rank = %+v, want no findings at or below threshold", rank)
	}
	if rank.AvgChromaExcess != 0 {
		t.Fatalf("AvgChromaExcess = %v, want 0", rank.AvgChromaExcess)
	}
}

func TestRankReportHardFailures(t *testing.T) {
	rep := Report{Files: []FileMeasurement{
		{Path: "a.png", ChromaDelta: 10},
		{Path: "b.png", ChromaDelta: 12},
		{Path: "c.png", ChromaDelta: 3},
	}}
	rank := RankReport(rep, gateConfig(true))
	if rank.HardFailures != 2 {
		t.Fatalf("HardFailures = %d, want 2", rank.HardFailures)
	}
	if rank.Passes() {
		t.Fatal("rank with hard failures must not pass")
	}
	if got, want := rank.AvgChromaExcess, 3.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("AvgChromaExcess = %v, want %v", got, want)
	}
}

func TestRankReportSoftWarningsWhenNotFailing(t *testing.T) {
	rep := Report{Files: []FileMeasurement{
		{Path: "a.png", ChromaDelta: 10},
	}}
	rank := RankReport(rep, gateConfig(false))
	if rank.HardFailures != 0 {
		t.Fatalf("HardFailures = %d, want 0 when gate only warns", rank.HardFailures)
	}
	if rank.SoftWarnings != 1 {
		t.Fatalf("SoftWarnings = %d, want 1", rank.SoftWarnings)
	}
	if !rank.Passes() {
		t.Fatal("soft warnings alone must pass the gate")
	}
}

func TestRankReportEmptyReport(t *testing.T) {
	rank := RankReport(Report{}, gateConfig(true))
	if !rank.Passes() || rank.AvgChromaExcess != 0 {
		t.Fatalf("rank = %+v, want clean pass for empty report", rank)
	}
}
