package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/criteria"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

const maxBodyBytes = 1 << 20

// Searcher runs a hybrid product search.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (searchuc.Outcome, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports dense-embedding token consumption.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	health        HealthChecker
	usage         UsageReporter
	limits        request.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, limits request.Limits, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		limits: limits,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests),
	}
	return s
}

// WithUsage enables GET /usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		logger.FromContext(r.Context()).Debug("Malformed search body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := criteriaFromBody(body.Filters)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	req, err := request.New(body.Query, c, body.Limit, s.limits)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	ctx := logger.With(r.Context(),
		zap.Int("limit", req.Limit()),
		zap.Bool("filtered", !c.IsEmpty()),
	)
	out, err := s.search.Search(ctx, req)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse(req, body.Filters, out))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Usage handles GET /usage?period=day|month.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse(s.usage.GetReport(r.Context(), period)))
}

func criteriaFromBody(f *FiltersBody) (criteria.Criteria, error) {
	var c criteria.Criteria
	if f == nil {
		return c, nil
	}
	if f.Color != nil && strings.TrimSpace(*f.Color) != "" {
		c.Color = f.Color
	}
	if f.Gender != nil && strings.TrimSpace(*f.Gender) != "" {
		g := criteria.Gender(*f.Gender)
		c.Gender = &g
	}
	if f.Price != nil {
		if len(f.Price) != 2 {
			return c, fmt.Errorf("%w: price must be [min, max]", domain.ErrInvalidFilter)
		}
		c.Price = &criteria.PriceRange{Min: f.Price[0], Max: f.Price[1]}
	}
	return c, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees only the sentinel message, never the wrapped detail.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Info("Request rejected", zap.Error(err))
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		log.Info("Request canceled by client", zap.Error(err))
	} else {
		log.Error("Search failed", zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
