package pipeline

import (
	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
	"github.com/ldco/Kroma-sub000/internal/settings"
)

// Request is one triggered pipeline execution. It is passed by value through
// the decorator chain; decorators derive copies rather than mutating it.
type Request struct {
	Project      string
	Mode         domain.Mode
	ConfirmSpend bool
	Options      Options
}

// Options is the request's options bag. Exactly one of InputDir and SceneRefs
// is expected for trigger-originated requests; ManifestPath and JobsFile are
// operator-side alternatives.
type Options struct {
	ProjectRoot string

	InputDir  string
	SceneRefs []string
	StyleRefs []string

	Stage   domain.Stage
	Time    domain.TimeOfDay
	Weather domain.Weather

	Candidates      int
	ManifestPath    string
	JobsFile        string
	AllowLargeBatch bool

	Postprocess postprocess.Toggles
	Settings    settings.Overlay

	StorageSyncS3 bool
}
