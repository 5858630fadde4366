package runlog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SummaryMarker prefixes the single machine-parseable output line every
// executor emits. Downstream tooling greps for it verbatim.
const SummaryMarker = "KROMA_PIPELINE_SUMMARY_JSON: "

// legacyRunLogPrefix is the older plain-text form still emitted and still
// parsed for backward compatibility.
const legacyRunLogPrefix = "Run log: "

// Summary is the machine-parseable digest of one run.
type Summary struct {
	RunLogPath  string `json:"run_log_path"`
	ProjectSlug string `json:"project_slug"`
	ProjectRoot string `json:"project_root"`
	Jobs        int    `json:"jobs"`
	Mode        string `json:"mode"`
}

// FormatSummaryLine renders the marker line for s.
func FormatSummaryLine(s Summary) string {
	raw, err := json.Marshal(s)
	if err != nil {
		// Summary has no unmarshalable fields; keep the marker contract anyway.
		return SummaryMarker + "{}"
	}
	return SummaryMarker + string(raw)
}

// LegacyLines renders the plain-text status lines that accompany the marker.
func LegacyLines(s Summary, jobState string) []string {
	return []string{
		fmt.Sprintf("Run log: %s", s.RunLogPath),
		fmt.Sprintf("Project: %s", s.ProjectSlug),
		fmt.Sprintf("Project root: %s", s.ProjectRoot),
		fmt.Sprintf("Jobs: %d (%s/%s)", s.Jobs, s.Mode, jobState),
	}
}

// ParseSummary scans output for the marker line and decodes it.
func ParseSummary(output string) (Summary, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, SummaryMarker) {
			continue
		}
		var s Summary
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, SummaryMarker)), &s); err != nil {
			return Summary{}, false
		}
		return s, true
	}
	return Summary{}, false
}

// FindRunLogPath extracts the run-log path from executor output, preferring
// the summary marker and falling back to the legacy plain-text line.
func FindRunLogPath(output string) (string, bool) {
	if s, ok := ParseSummary(output); ok && s.RunLogPath != "" {
		return s.RunLogPath, true
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, legacyRunLogPrefix) {
			path := strings.TrimSpace(strings.TrimPrefix(line, legacyRunLogPrefix))
			if path != "" {
				return path, true
			}
		}
	}
	return "", false
}
