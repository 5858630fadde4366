package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/pipeline"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
	"github.com/ldco/Kroma-sub000/internal/settings"
)

type triggerRequest struct {
	Project      string `json:"project"`
	Mode         string `json:"mode"`
	ConfirmSpend bool   `json:"confirm_spend"`

	ProjectRoot string   `json:"project_root,omitempty"`
	Input       string   `json:"input,omitempty"`
	SceneRefs   []string `json:"scene_refs,omitempty"`
	StyleRefs   []string `json:"style_refs,omitempty"`

	Stage   string `json:"stage,omitempty"`
	Time    string `json:"time,omitempty"`
	Weather string `json:"weather,omitempty"`

	Candidates int `json:"candidates,omitempty"`

	Upscale        bool   `json:"upscale,omitempty"`
	UpscaleBackend string `json:"upscale_backend,omitempty"`
	Color          bool   `json:"color,omitempty"`
	ColorProfile   string `json:"color_profile,omitempty"`
	BgRemove       bool   `json:"bg_remove,omitempty"`
	BgBackend      string `json:"bg_backend,omitempty"`

	Settings settings.Overlay `json:"settings,omitempty"`

	StorageSyncS3   bool `json:"storage_sync_s3,omitempty"`
	AllowLargeBatch bool `json:"allow_large_batch,omitempty"`
}

func (req triggerRequest) toPipeline() pipeline.Request {
	return pipeline.Request{
		Project:      req.Project,
		Mode:         domain.Mode(req.Mode),
		ConfirmSpend: req.ConfirmSpend,
		Options: pipeline.Options{
			ProjectRoot: req.ProjectRoot,
			InputDir:    req.Input,
			SceneRefs:   req.SceneRefs,
			StyleRefs:   req.StyleRefs,
			Stage:       domain.Stage(req.Stage),
			Time:        domain.TimeOfDay(req.Time),
			Weather:     domain.Weather(req.Weather),
			Candidates:  req.Candidates,
			Postprocess: postprocess.Toggles{
				Upscale:        req.Upscale,
				UpscaleBackend: req.UpscaleBackend,
				Color:          req.Color,
				ColorProfile:   req.ColorProfile,
				BgRemove:       req.BgRemove,
				BgBackend:      req.BgBackend,
			},
			Settings:        req.Settings,
			AllowLargeBatch: req.AllowLargeBatch,
			StorageSyncS3:   req.StorageSyncS3,
		},
	}
}

// PipelineTrigger runs the pipeline for one validated request and reports
// the execution outcome verbatim.
func (a *App) PipelineTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	res, err := a.Service.Trigger(r.Context(), req.toPipeline())
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"ok":               true,
		"pipeline_trigger": res,
	})
}

// pipelineError maps the pipeline error taxonomy onto HTTP responses.
// Validation, preflight and confirmation failures echo their message;
// command failures are summarized to the first non-empty stderr line;
// anything else is a generic server error with details logged, not echoed.
func (a *App) pipelineError(w http.ResponseWriter, err error) {
	var (
		reqErr     *domain.InvalidRequestError
		slugErr    *domain.InvalidProjectSlugError
		preErr     *domain.PreflightError
		parseErr   *settings.ParseError
		upErr      *postprocess.InvalidUpscaleBackendError
		bgErr      *postprocess.InvalidBgBackendError
		cmdErr     *domain.CommandError
		scratchErr *domain.PlannedJobsTempFileError
	)
	switch {
	case errors.Is(err, domain.ErrMissingSpendConfirmation):
		a.error(w, http.StatusBadRequest, "missing_spend_confirmation", err.Error())
	case errors.As(err, &reqErr):
		a.error(w, http.StatusBadRequest, "invalid_request", reqErr.Message)
	case errors.As(err, &slugErr):
		a.error(w, http.StatusBadRequest, "invalid_project_slug", slugErr.Error())
	case errors.As(err, &preErr), errors.As(err, &parseErr), errors.As(err, &upErr), errors.As(err, &bgErr):
		a.error(w, http.StatusBadRequest, "planning_preflight", err.Error())
	case errors.As(err, &cmdErr):
		msg := domain.FirstStderrLine(cmdErr.Stderr)
		if msg == "" {
			msg = cmdErr.Error()
		}
		a.error(w, http.StatusUnprocessableEntity, "command_failed", msg)
	case errors.As(err, &scratchErr):
		a.Logger.Error().Err(err).Msg("planned jobs scratch file failed")
		a.error(w, http.StatusInternalServerError, "internal", "pipeline execution failed")
	default:
		a.Logger.Error().Err(err).Msg("pipeline execution failed")
		a.error(w, http.StatusInternalServerError, "internal", "pipeline execution failed")
	}
}
