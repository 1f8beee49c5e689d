package chi

import (
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// CORSConfig lists what the browser front-end may send.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// NewRouter mounts the API on a chi router with the standard middleware stack.
func NewRouter(s *Server, corsCfg CORSConfig) http.Handler {
	origins := corsCfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chirouter.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         corsCfg.MaxAge,
	}))
	r.Use(metrics.Middleware())

	r.Post("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	if s.usage != nil {
		r.Get("/usage", s.Usage)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
