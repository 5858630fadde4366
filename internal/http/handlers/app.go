package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ldco/Kroma-sub000/internal/infra"
	"github.com/ldco/Kroma-sub000/internal/pipeline"
)

// App is the handler container: shared dependencies injected once at wiring
// time, one method per route.
type App struct {
	Cfg     *infra.Config
	Logger  infra.Logger
	Service *pipeline.Service
	Deps    pipeline.Deps
}

func NewApp(cfg *infra.Config, logger infra.Logger, svc *pipeline.Service, deps pipeline.Deps) *App {
	return &App{Cfg: cfg, Logger: logger, Service: svc, Deps: deps}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"ok":    false,
		"error": map[string]string{"kind": kind, "message": message},
	})
}
