package planning

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// ErrNoSceneReferences is returned when a manifest offers nothing to render.
var ErrNoSceneReferences = errors.New("manifest has no scene references")

// PlannedJob is one unit of work: one scene reference rendered for one
// stage/time/weather combination. The input image list always starts with the
// scene reference, followed by the style references in manifest order.
type PlannedJob struct {
	ID          string   `yaml:"id" json:"id"`
	Mode        string   `yaml:"mode" json:"mode"`
	Time        string   `yaml:"time,omitempty" json:"time,omitempty"`
	Weather     string   `yaml:"weather,omitempty" json:"weather,omitempty"`
	InputImages []string `yaml:"input_images" json:"input_images"`
	Prompt      string   `yaml:"prompt" json:"prompt"`
}

// BuildGenerationJobs expands a manifest into one job per scene reference, in
// scene-reference order. All jobs of a run share the same composed prompt.
func BuildGenerationJobs(m Manifest, stage domain.Stage, tod domain.TimeOfDay, weather domain.Weather) ([]PlannedJob, error) {
	if len(m.SceneRefs) == 0 {
		return nil, ErrNoSceneReferences
	}
	prompt, err := ComposePrompt(m.Prompts, stage, tod, weather, m.NoInvention)
	if err != nil {
		return nil, err
	}

	jobs := make([]PlannedJob, 0, len(m.SceneRefs))
	for i, scene := range m.SceneRefs {
		job := PlannedJob{
			ID:          jobID(stage, i+1, scene),
			Mode:        string(stage),
			InputImages: append([]string{scene}, m.StyleRefs...),
			Prompt:      prompt,
		}
		if stage.WantsTime() {
			job.Time = string(tod)
		}
		if stage.WantsWeather() {
			job.Weather = string(weather)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

var stemCleaner = regexp.MustCompile(`[^a-z0-9_-]+`)

// jobID derives a stable identifier from the stage, the 1-based ordinal and
// the sanitized scene filename stem. When sanitization leaves nothing, the
// ordinal alone identifies the job.
func jobID(stage domain.Stage, ordinal int, scene string) string {
	stem := sanitizeStem(scene)
	if stem == "" {
		return fmt.Sprintf("%s_%d", stage, ordinal)
	}
	return fmt.Sprintf("%s_%d_%s", stage, ordinal, stem)
}

func sanitizeStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ToLower(stem)
	stem = stemCleaner.ReplaceAllString(stem, "_")
	return strings.TrimRight(stem, "_")
}
