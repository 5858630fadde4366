package domain

import "strings"

// Mode selects how a triggered pipeline execution behaves.
type Mode string

const (
	// ModeDry plans a run and writes its artifact without invoking any paid operation.
	ModeDry Mode = "dry"
	// ModeRun executes generation, postprocessing and grading for real.
	ModeRun Mode = "run"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	return m == ModeDry || m == ModeRun
}

// Stage enumerates the variation axis a run produces.
type Stage string

const (
	StageStyle   Stage = "style"
	StageTime    Stage = "time"
	StageWeather Stage = "weather"
)

// Valid reports whether the stage is one of the supported values.
func (s Stage) Valid() bool {
	return s == StageStyle || s == StageTime || s == StageWeather
}

// WantsTime reports whether jobs for this stage carry a time-of-day variant.
func (s Stage) WantsTime() bool {
	return s == StageTime || s == StageWeather
}

// WantsWeather reports whether jobs for this stage carry a weather variant.
func (s Stage) WantsWeather() bool {
	return s == StageWeather
}

// TimeOfDay is the lighting variant selector for time/weather stages.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeNight TimeOfDay = "night"
)

// Valid reports whether the time-of-day is one of the supported values.
func (t TimeOfDay) Valid() bool {
	return t == TimeDay || t == TimeNight
}

// Weather is the weather variant selector for weather-stage runs.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
)

// Valid reports whether the weather is one of the supported values.
func (w Weather) Valid() bool {
	return w == WeatherClear || w == WeatherRain
}

// JobStatus enumerates the lifecycle states recorded for a planned job.
type JobStatus string

const (
	JobStatusPlanned           JobStatus = "planned"
	JobStatusDone              JobStatus = "done"
	JobStatusFailedOutputGuard JobStatus = "failed_output_guard"
)

// CandidateStatus enumerates the lifecycle states of one generation attempt.
type CandidateStatus string

const (
	CandidateStatusGenerated         CandidateStatus = "generated"
	CandidateStatusDone              CandidateStatus = "done"
	CandidateStatusFailedOutputGuard CandidateStatus = "failed_output_guard"
)

// FailureReasonAllCandidatesFailed is recorded on a job when every candidate
// was rejected by the output guard.
const FailureReasonAllCandidatesFailed = "all_candidates_failed_output_guard"

// ValidProjectSlug reports whether slug is a usable project identifier:
// lowercase alphanumerics, dash and underscore, starting with an alphanumeric.
func ValidProjectSlug(slug string) bool {
	if slug == "" || len(slug) > 64 {
		return false
	}
	for i, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case (r == '-' || r == '_') && i > 0:
		default:
			return false
		}
	}
	return true
}

// NormalizeSlug lowercases and trims a raw project identifier before validation.
func NormalizeSlug(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
