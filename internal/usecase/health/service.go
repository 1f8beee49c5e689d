package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopsearch/internal/logger"
)

// Status is the aggregated health of the service.
type Status string

const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentBackend = "backend"
	ComponentDense   = "dense_embedding"
	ComponentSparse  = "sparse_embedding"
	ComponentBudget  = "budget_store"
)

// DefaultProbeTimeout bounds each component check.
const DefaultProbeTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the backend, both embedding models and the optional budget store.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. budget can be nil when no budget store is configured.
func New(backend Pinger, dense, sparse ModelChecker, budget Pinger) *Service {
	probes := []probe{
		{ComponentBackend, backend.Ping},
		{ComponentDense, dense.Probe},
		{ComponentSparse, sparse.Probe},
	}
	if budget != nil {
		probes = append(probes, probe{ComponentBudget, budget.Ping})
	}
	return &Service{probes: probes, timeout: DefaultProbeTimeout}
}

// WithProbeTimeout overrides the per-component deadline.
func (s *Service) WithProbeTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all probes concurrently. Model probes double as lazy warm-up:
// a provider that has not been initialized yet is initialized here.
func (s *Service) Check(ctx context.Context) Report {
	errs := make([]error, len(s.probes))

	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			errs[i] = p.run(pctx)
			return nil
		})
	}
	_ = g.Wait()

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	for i, p := range s.probes {
		if errs[i] == nil {
			r.Checks[p.name] = CheckOK
			continue
		}
		r.Checks[p.name] = CheckError
		r.Status = Degraded
		logger.FromContext(ctx).Warn("Health probe failed",
			zap.String("component", p.name), zap.Error(errs[i]))
	}
	return r
}
