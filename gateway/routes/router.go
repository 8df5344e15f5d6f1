package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hashmelody/gateway/middleware"
)

type Config struct {
	Ledger        Ledger
	History       History
	Stream        *Stream
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	// RateLimitKey selects the limit applied to every /v1 route.
	RateLimitKey  string
}

// New builds the read-only HTTP surface of the ledger.
func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("routes: ledger required")
	}
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, nil)
	}
	r.Handle("/metrics", obs.MetricsHandler())

	lr := &ledgerRoutes{ledger: cfg.Ledger, history: cfg.History}
	r.Route("/v1", func(sr chi.Router) {
		if cfg.RateLimiter != nil && cfg.RateLimitKey != "" {
			sr.Use(cfg.RateLimiter.Middleware(cfg.RateLimitKey))
		}
		lr.mount(sr, obs)
		if cfg.Stream != nil {
			sr.With(obs.Middleware("events")).Get("/events/stream", cfg.Stream.ServeHTTP)
		}
	})

	return otelhttp.NewHandler(r, "hashmelody-gateway"), nil
}
