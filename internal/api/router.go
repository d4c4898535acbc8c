package api

import (
	"delivery-route-engine/internal/api/handlers"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/ports"
	"delivery-route-engine/internal/services"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Repo          ports.PackageRepository
	Oracle        ports.DistanceOracle
	Base          services.PlanDeliveriesRequest
	Day           time.Time
	MileageTarget float64
	// Gatherer backs /metrics; the endpoint is omitted when nil.
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()
	store := &handlers.RunStore{}

	log := deps.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	handlers.SetLogger(log)

	pkgHandler := &handlers.PackageHandler{
		Repo:     deps.Repo,
		Store:    store,
		Day:      deps.Day,
		EndOfDay: deps.Base.Model.EndOfDay,
	}
	planHandler := &handlers.PlanHandler{
		Repo:          deps.Repo,
		Oracle:        deps.Oracle,
		Base:          deps.Base,
		Day:           deps.Day,
		MileageTarget: deps.MileageTarget,
		Store:         store,
	}

	health := &handlers.HealthHandler{Store: store, Day: deps.Day}

	mux.HandleFunc("/health", health.Check)
	mux.HandleFunc("/packages", pkgHandler.List)
	mux.HandleFunc("/packages/{id}", pkgHandler.Get)
	mux.HandleFunc("/plans", planHandler.Plan)
	mux.HandleFunc("/plans/latest", planHandler.Latest)
	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return requestIDMiddleware(loggingMiddleware(log, mux))
}
