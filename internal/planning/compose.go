package planning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

// noInventionClause is appended verbatim when the manifest's no-invention
// policy is set.
const noInventionClause = "Do not invent new objects, characters, or scenery; only restyle what the reference images already contain."

// ErrMissingStyleBasePrompt is returned when the manifest has no style base
// prompt at all; nothing can be composed without it.
var ErrMissingStyleBasePrompt = errors.New("manifest is missing the style_base prompt")

// MissingPromptError reports a manifest that lacks a prompt slot the selected
// stage requires.
type MissingPromptError struct {
	Key string
}

func (e *MissingPromptError) Error() string {
	return fmt.Sprintf("manifest is missing required prompt %q", e.Key)
}

// ComposePrompt assembles the prompt text for one stage/time/weather
// combination. The style base always leads; time and weather fragments follow
// when the stage calls for them; the no-invention clause closes the prompt.
// Fragments are joined with single spaces.
func ComposePrompt(prompts map[string]string, stage domain.Stage, tod domain.TimeOfDay, weather domain.Weather, noInvention bool) (string, error) {
	base, ok := lookupPrompt(prompts, PromptStyleBase)
	if !ok {
		return "", ErrMissingStyleBasePrompt
	}
	parts := []string{base}

	if stage.WantsTime() {
		key := promptTimePrefix + string(tod)
		frag, ok := lookupPrompt(prompts, key)
		if !ok {
			return "", &MissingPromptError{Key: key}
		}
		parts = append(parts, frag)
	}
	if stage.WantsWeather() {
		key := promptWeatherPrefix + string(weather)
		frag, ok := lookupPrompt(prompts, key)
		if !ok {
			return "", &MissingPromptError{Key: key}
		}
		parts = append(parts, frag)
	}
	if noInvention {
		parts = append(parts, noInventionClause)
	}
	return strings.Join(parts, " "), nil
}

func lookupPrompt(prompts map[string]string, key string) (string, bool) {
	frag, ok := prompts[key]
	frag = strings.TrimSpace(frag)
	if !ok || frag == "" {
		return "", false
	}
	return frag, true
}
