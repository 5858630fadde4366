package outputguard

import (
	"github.com/ldco/Kroma-sub000/internal/planning"
)

// Report is the typed result of one quality-check adapter call: a chroma
// deviation measurement per inspected file.
type Report struct {
	Files []FileMeasurement `json:"files"`
}

// FileMeasurement is one file's color deviation from pure grayscale.
type FileMeasurement struct {
	Path        string  `json:"path"`
	ChromaDelta float64 `json:"chroma_delta"`
}

// Rank grades a report against the configured gate. Hard failures block a
// candidate; soft warnings are recorded but let it pass.
type Rank struct {
	HardFailures    int     `json:"hard_failures"`
	SoftWarnings    int     `json:"soft_warnings"`
	AvgChromaExcess float64 `json:"avg_chroma_excess"`
}

// Passes reports whether the rank clears the gate.
func (r Rank) Passes() bool {
	return r.HardFailures == 0
}

// RankReport scores a quality-check report. Files whose chroma delta exceeds
// the configured maximum count as hard failures when the gate is set to fail
// on excess, and as soft warnings otherwise. The severity figure is the mean
// excess over the threshold across exceeding files, zero when none exceed.
func RankReport(rep Report, cfg planning.GuardConfig) Rank {
	var rank Rank
	var totalExcess float64
	exceeding := 0
	for _, f := range rep.Files {
		if f.ChromaDelta <= cfg.MaxChromaDelta {
			continue
		}
		exceeding++
		totalExcess += f.ChromaDelta - cfg.MaxChromaDelta
	}
	if cfg.FailOnChromaExceed {
		rank.HardFailures = exceeding
	} else {
		rank.SoftWarnings = exceeding
	}
	if exceeding > 0 {
		rank.AvgChromaExcess = totalExcess / float64(exceeding)
	}
	return rank
}
