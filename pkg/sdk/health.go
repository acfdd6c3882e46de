package quickai

import (
	"context"
	"slices"

	healthuc "github.com/quickai/quickai/internal/usecase/health"
)

// HealthStatus is the outcome of Client.Health. The embedded client has no
// generator, so only "storage" is checked.
type HealthStatus struct {
	Status string            // "ok" or "error"
	Checks map[string]string // component → "ok"/"error"
}

// Healthy reports whether quota checks can currently succeed.
func (h HealthStatus) Healthy() bool {
	return h.Status == string(healthuc.Healthy)
}

// Failing lists the failing components in name order.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, result := range h.Checks {
		if result != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health pings the storage backend. While it is failing, CheckAndConsume
// refuses every request with ErrStorageUnavailable.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
