package shopsearch

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component → "ok"/"error"
}

// Health checks the backend and both embedding providers.
// The first call also warms up providers that load lazily.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	var err error
	if report.Status != healthuc.Healthy {
		err = ErrBackendUnavailable
		if report.Checks[healthuc.ComponentBackend] == healthuc.CheckOK {
			err = ErrEmbeddingUnavailable
		}
	}
	c.obs.observe("health", start, err)

	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
