package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ldco/Kroma-sub000/internal/pipeline"
)

// PipelineValidate resolves and validates the full settings, manifest and
// postprocess stack for a request without executing anything.
func (a *App) PipelineValidate(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	normalized, err := pipeline.Normalize(req.toPipeline())
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	report, err := pipeline.ValidateConfig(a.Deps, normalized)
	if err != nil {
		a.pipelineError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"ok":     true,
		"config": report,
	})
}
