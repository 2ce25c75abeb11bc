package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cesink/api/controllers"
	"github.com/angelmondragon/cesink/api/middleware"
	"github.com/angelmondragon/cesink/internal/sink"
	"github.com/angelmondragon/cesink/pkg/logger"
)

// Dependencies bundles what the router hands to controllers.
type Dependencies struct {
	Logger   *logger.Logger
	Sink     sink.Service
	Prober   controllers.TimeProber
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Post("/", controllers.IngestEvent(deps.Sink, logg))

	r.Route("/health", func(r chi.Router) {
		r.Get("/started", controllers.HealthStarted())
		r.Get("/ready", controllers.HealthReady())
		r.Get("/live", controllers.HealthLive(deps.Prober, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
