package planning

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// Prompt slot names the composer looks up in a manifest.
const (
	PromptStyleBase     = "style_base"
	promptTimePrefix    = "time_"
	promptWeatherPrefix = "weather_"
)

// Manifest drives planning for one run: prompt fragments, the references to
// render, batch limits and the quality gate configuration. It is loaded fresh
// per request and never mutated afterwards.
type Manifest struct {
	Prompts        map[string]string  `yaml:"prompts" json:"prompts"`
	SceneRefs      []string           `yaml:"scene_refs" json:"scene_refs"`
	StyleRefs      []string           `yaml:"style_refs" json:"style_refs"`
	NoInvention    bool               `yaml:"no_invention" json:"no_invention"`
	SafeBatchLimit int                `yaml:"safe_batch_limit" json:"safe_batch_limit"`
	Generation     GenerationDefaults `yaml:"generation" json:"generation"`
	OutputGuard    GuardConfig        `yaml:"output_guard" json:"output_guard"`
}

// GenerationDefaults bounds how many candidates a job may produce.
type GenerationDefaults struct {
	Candidates    int `yaml:"candidates" json:"candidates"`
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
}

// GuardConfig configures the output guard applied to finished candidates.
type GuardConfig struct {
	EnforceGrayscale   bool    `yaml:"enforce_grayscale" json:"enforce_grayscale"`
	MaxChromaDelta     float64 `yaml:"max_chroma_delta" json:"max_chroma_delta"`
	FailOnChromaExceed bool    `yaml:"fail_on_chroma_exceed" json:"fail_on_chroma_exceed"`
}

// DefaultManifest returns the built-in manifest used when a run supplies its
// own scene references instead of a manifest file.
func DefaultManifest(safeBatchLimit int) Manifest {
	if safeBatchLimit < 1 {
		safeBatchLimit = 12
	}
	return Manifest{
		Prompts: map[string]string{
			PromptStyleBase: "Render the scene in the established grayscale concept style, preserving composition and perspective.",
			"time_day":      "Set the lighting to full daylight with soft shadows.",
			"time_night":    "Set the lighting to night with moonlit ambience and practical light sources.",
			"weather_clear": "Keep the sky clear with no precipitation.",
			"weather_rain":  "Add steady rain with wet, reflective surfaces.",
		},
		NoInvention:    true,
		SafeBatchLimit: safeBatchLimit,
		Generation:     GenerationDefaults{Candidates: 1, MaxCandidates: 6},
		OutputGuard: GuardConfig{
			EnforceGrayscale:   true,
			MaxChromaDelta:     8,
			FailOnChromaExceed: true,
		},
	}
}

// LoadManifest reads a manifest from path, accepting YAML or JSON by content.
// Every failure is a preflight error: a missing or unreadable manifest means
// the run cannot be planned.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, domain.Preflightf("read manifest %s: %v", path, err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, domain.Preflightf("parse manifest %s: %v", path, err)
	}
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return Manifest{}, domain.Preflightf("manifest %s: %v", path, err)
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Prompts == nil {
		m.Prompts = map[string]string{}
	}
	if m.SafeBatchLimit == 0 {
		m.SafeBatchLimit = 12
	}
	if m.Generation.Candidates == 0 {
		m.Generation.Candidates = 1
	}
	if m.Generation.MaxCandidates == 0 {
		m.Generation.MaxCandidates = 6
	}
	if m.OutputGuard.MaxChromaDelta == 0 {
		m.OutputGuard.MaxChromaDelta = 8
	}
}

func (m Manifest) validate() error {
	if m.SafeBatchLimit < 1 {
		return fmt.Errorf("safe_batch_limit must be positive, got %d", m.SafeBatchLimit)
	}
	if m.Generation.MaxCandidates < 1 {
		return fmt.Errorf("generation.max_candidates must be positive, got %d", m.Generation.MaxCandidates)
	}
	if m.Generation.Candidates < 1 || m.Generation.Candidates > m.Generation.MaxCandidates {
		return fmt.Errorf("generation.candidates must be between 1 and %d, got %d",
			m.Generation.MaxCandidates, m.Generation.Candidates)
	}
	if m.OutputGuard.MaxChromaDelta < 0 {
		return fmt.Errorf("output_guard.max_chroma_delta must not be negative, got %v", m.OutputGuard.MaxChromaDelta)
	}
	return nil
}
