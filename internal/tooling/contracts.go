package tooling

import (
	"context"

	"github.com/ldco/Kroma-sub000/internal/outputguard"
)

// GenerateRequest asks a generation adapter to produce one candidate image.
type GenerateRequest struct {
	JobID       string
	Prompt      string
	InputImages []string
	OutputPath  string
	Model       string
	Size        string
	Quality     string
}

// GenerateResult is the typed response of a generation adapter.
type GenerateResult struct {
	OutputPath string
	CostUSD    float64
}

// Generator produces candidate images.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// BgRemovalRequest pipes a candidate through background removal. Backend is
// the plan-resolved backend name used by registry routing.
type BgRemovalRequest struct {
	InputPath     string
	OutputPath    string
	Backend       string
	RefineEnabled bool
}

// BgRemovalResult carries the pass output plus the optional refinement note
// and error. A refinement error is reported here rather than failing the
// call; the caller decides whether it is fatal.
type BgRemovalResult struct {
	OutputPath  string
	RefineNote  string
	RefineError string
}

// BackgroundRemover strips backgrounds from candidate images.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, req BgRemovalRequest) (BgRemovalResult, error)
}

// UpscaleRequest pipes a candidate through upscaling. Backend is the
// plan-resolved backend name used by registry routing.
type UpscaleRequest struct {
	InputPath  string
	OutputPath string
	Backend    string
	Scale      int
}

// UpscaleResult is the typed response of an upscale adapter.
type UpscaleResult struct {
	OutputPath string
}

// Upscaler enlarges candidate images.
type Upscaler interface {
	Upscale(ctx context.Context, req UpscaleRequest) (UpscaleResult, error)
}

// ColorRequest pipes a candidate through color correction.
type ColorRequest struct {
	InputPath  string
	OutputPath string
	Profile    string
}

// ColorResult is the typed response of a color-correction adapter.
type ColorResult struct {
	OutputPath string
}

// ColorCorrector applies a color profile to candidate images.
type ColorCorrector interface {
	CorrectColor(ctx context.Context, req ColorRequest) (ColorResult, error)
}

// QualityChecker measures a finished candidate for the output guard.
type QualityChecker interface {
	CheckQuality(ctx context.Context, path string) (outputguard.Report, error)
}

// Archiver moves a rejected candidate out of the output tree and returns its
// new path.
type Archiver interface {
	Archive(ctx context.Context, path, archiveDir string) (string, error)
}

// Toolchain bundles the adapters one run needs. The executor only ever talks
// to these interfaces; which concrete adapters back them is decided at
// process wiring time.
type Toolchain struct {
	Generator Generator
	BgRemover BackgroundRemover
	Upscaler  Upscaler
	Color     ColorCorrector
	Quality   QualityChecker
	Archiver  Archiver
}
