package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means the relay can still decide quotas but cannot generate.
	Degraded Status = "degraded"
	// Unhealthy means storage is down; every quota check fails closed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	storage   StoragePinger
	generator GeneratorChecker
	timeout   time.Duration
}

// New creates a Service. generator can be nil.
func New(storage StoragePinger, generator GeneratorChecker, timeout time.Duration) *Service {
	return &Service{storage: storage, generator: generator, timeout: timeout}
}

// Check runs all checks, each bounded by the configured timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)

	storageOK := s.run(ctx, s.storage.Ping)
	checks["storage"] = result(storageOK)

	generatorOK := true
	if s.generator != nil {
		generatorOK = s.run(ctx, s.generator.HealthCheck)
		checks["generator"] = result(generatorOK)
	}

	status := Healthy
	switch {
	case !storageOK:
		status = Unhealthy
	case !generatorOK:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) bool {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return check(ctx) == nil
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
