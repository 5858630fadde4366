package postprocess

import (
	"fmt"
	"slices"
)

// Pipeline stage names, in the only order they may run.
const (
	StageGenerate     = "generate"
	StageBgRemove     = "bg_remove"
	StageBgRefine     = "bg_refine_openai"
	StageUpscale      = "upscale"
	StageColorCorrect = "color"
)

// InvalidUpscaleBackendError rejects an upscale backend outside the
// enumeration.
type InvalidUpscaleBackendError struct {
	Name string
}

func (e *InvalidUpscaleBackendError) Error() string {
	return fmt.Sprintf("invalid upscale backend %q (want one of %v)", e.Name, UpscaleBackends)
}

// InvalidBgBackendError rejects a background-removal backend outside the
// enumeration.
type InvalidBgBackendError struct {
	Name string
}

func (e *InvalidBgBackendError) Error() string {
	return fmt.Sprintf("invalid background removal backend %q (want one of %v)", e.Name, BgBackends)
}

// Toggles are the per-request postprocess switches and overrides.
type Toggles struct {
	Upscale        bool
	UpscaleBackend string
	Color          bool
	ColorProfile   string
	BgRemove       bool
	BgBackend      string
}

// Plan is the resolved per-run postprocess decision: which passes run, with
// which backend or profile, in which order.
type Plan struct {
	Upscale        bool   `json:"upscale"`
	UpscaleBackend string `json:"upscale_backend"`
	UpscaleScale   int    `json:"upscale_scale,omitempty"`
	Color          bool   `json:"color"`
	ColorProfile   string `json:"color_profile"`
	BgRemove       bool   `json:"bg_remove"`
	BgBackend      string `json:"bg_backend"`
	RefineEnabled  bool   `json:"bg_refine_openai"`
	RefineRequired bool   `json:"bg_refine_required,omitempty"`

	Order []string `json:"order"`
}

// Resolve merges request toggles with the loaded configuration and validates
// every backend name, whether or not its pass is enabled.
func Resolve(cfg Config, t Toggles) (Plan, error) {
	p := Plan{
		Upscale:        t.Upscale,
		UpscaleBackend: firstNonEmpty(t.UpscaleBackend, cfg.Upscale.Backend, DefaultUpscaleBackend),
		UpscaleScale:   cfg.Upscale.Scale,
		Color:          t.Color,
		ColorProfile:   firstNonEmpty(t.ColorProfile, cfg.Color.Profile, DefaultColorProfile),
		BgRemove:       t.BgRemove,
		BgBackend:      firstNonEmpty(t.BgBackend, cfg.BgRemoval.Backend, DefaultBgBackend),
		RefineEnabled:  cfg.BgRemoval.Refine.Enabled,
		RefineRequired: cfg.BgRemoval.Refine.Required,
	}

	if !slices.Contains(UpscaleBackends, p.UpscaleBackend) {
		return Plan{}, &InvalidUpscaleBackendError{Name: p.UpscaleBackend}
	}
	if !slices.Contains(BgBackends, p.BgBackend) {
		return Plan{}, &InvalidBgBackendError{Name: p.BgBackend}
	}

	p.Order = []string{StageGenerate}
	if p.BgRemove {
		p.Order = append(p.Order, StageBgRemove)
		if p.RefineEnabled {
			p.Order = append(p.Order, StageBgRefine)
		}
	}
	if p.Upscale {
		p.Order = append(p.Order, StageUpscale)
	}
	if p.Color {
		p.Order = append(p.Order, StageColorCorrect)
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
