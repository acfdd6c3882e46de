package quickai

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes used as the "outcome" metric label.
const (
	outcomeOK          = "ok"
	outcomeAllowed     = "allowed"
	outcomeDenied      = "denied"
	outcomeRejected    = "rejected"    // caller input: bad user id, resource or duration
	outcomeUnavailable = "unavailable" // storage failed; the request was refused
	outcomeError       = "error"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	denials    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickai",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by outcome.",
		}, []string{"operation", "outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickai",
			Subsystem: "sdk",
			Name:      "denials_total",
			Help:      "Requests refused by the quota engine, by resource and reason.",
		}, []string{"resource", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quickai",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.denials); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("quickai: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("quickai: register metric: %w", err)
	}
	return nil
}

// outcomeOf classifies an operation error.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrStorageUnavailable):
		return outcomeUnavailable
	case errors.Is(err, ErrInvalidUser), errors.Is(err, ErrUnknownResource), errors.Is(err, ErrInvalidDuration):
		return outcomeRejected
	default:
		return outcomeError
	}
}

// observer logs and counts SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records an operation whose outcome follows from err alone.
func (o *observer) observe(op string, start time.Time, err error) {
	o.record(op, start, outcomeOf(err), err)
}

// observeDecision records a CheckAndConsume call. Denials are counted
// by resource and reason on top of the operation counter.
func (o *observer) observeDecision(r Resource, d Decision, start time.Time, err error) {
	if o == nil {
		return
	}
	outcome := outcomeOf(err)
	if err == nil {
		outcome = outcomeAllowed
		if !d.Allowed {
			outcome = outcomeDenied
		}
	}
	if outcome == outcomeDenied && o.metrics != nil {
		o.metrics.denials.WithLabelValues(string(r), string(d.Reason)).Inc()
	}
	if outcome == outcomeDenied && o.logger != nil {
		o.logger.Debug("request denied", "resource", string(r), "reason", string(d.Reason))
	}
	o.record("check_and_consume", start, outcome, err)
}

func (o *observer) record(op string, start time.Time, outcome string, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	switch outcome {
	case outcomeUnavailable, outcomeError:
		o.logger.Warn("operation failed", "op", op, "outcome", outcome, "duration", dur, "error", err)
	case outcomeRejected:
		o.logger.Debug("operation rejected", "op", op, "error", err)
	default:
		o.logger.Debug("operation completed", "op", op, "outcome", outcome, "duration", dur)
	}
}
