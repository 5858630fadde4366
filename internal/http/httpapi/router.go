package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ldco/Kroma-sub000/internal/http/handlers"
	"github.com/ldco/Kroma-sub000/internal/infra/geoip"
	mw "github.com/ldco/Kroma-sub000/internal/middleware"
)

// NewRouter wires the operator API. Every route sits behind the bearer-token
// check except the health probe; the trigger route additionally sits behind
// the concurrency gate because each run executes synchronously inside its
// request worker.
func NewRouter(app *handlers.App, country geoip.CountryResolver) http.Handler {
	r := chi.NewRouter()

	var lookup mw.CountryLookup
	if country != nil {
		lookup = country.CountryCode
	}

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(app.Logger),
		mw.Audit(app.Logger, lookup),
		mw.CORS(nil),
		mw.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/pipeline", func(r chi.Router) {
		r.Use(mw.AuthToken(app.Cfg.APIToken))
		r.With(mw.ConcurrencyLimit(int64(app.Cfg.MaxConcurrentRuns))).
			Post("/trigger", app.PipelineTrigger)
		r.Post("/validate", app.PipelineValidate)
	})

	return r
}
