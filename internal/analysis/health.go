package analysis

import (
	"context"
	"net/http"
	"time"

	"breathplat/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthStatus is the outcome of one health check.
type HealthStatus struct {
	Service string        `json:"service"`
	URL     string        `json:"url"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Health calls GET /health on one service. Concurrent checks of the same
// service share a single request, which runs detached from any one caller's
// cancellation and is bounded by the service timeout.
func (c *Client) Health(ctx context.Context, service string) HealthStatus {
	ch := c.checks.DoChan(service, func() (any, error) {
		return c.check(context.WithoutCancel(ctx), service), nil
	})
	select {
	case res := <-ch:
		return res.Val.(HealthStatus)
	case <-ctx.Done():
		return HealthStatus{Service: service, URL: c.BaseURL(service), Error: ctx.Err().Error()}
	}
}

func (c *Client) check(ctx context.Context, service string) HealthStatus {
	st := HealthStatus{Service: service, URL: c.BaseURL(service)}
	start := time.Now()
	_, err := c.do(ctx, service, http.MethodGet, "/health", "", nil)
	st.Latency = time.Since(start)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.OK = true
	return st
}

// CheckAll checks the named services concurrently. Results keep the order of
// services.
func (c *Client) CheckAll(ctx context.Context, services []string) []HealthStatus {
	results := make([]HealthStatus, len(services))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range services {
		eg.Go(func() error {
			results[i] = c.Health(egCtx, name)
			return nil
		})
	}
	_ = eg.Wait()

	down := 0
	for _, r := range results {
		if !r.OK {
			down++
		}
	}
	logging.Get(logging.CategoryServices).Info("checked services",
		zap.Int("total", len(results)), zap.Int("down", down))

	return results
}
