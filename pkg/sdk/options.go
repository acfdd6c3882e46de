package quickai

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quickai/quickai/internal/domain/clock"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "memory"
	addrs    []string
	password string

	keyPrefix  string
	textLimit  int64
	imageLimit int64
	timezone   string
	retention  time.Duration

	clock clock.Clock

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps all state in process memory. Nothing survives a restart.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix sets the storage key prefix. Default: "quickai:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDailyLimits sets the free-tier caps. Defaults: 50 text, 15 image.
func WithDailyLimits(text, image int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.textLimit = text
		c.imageLimit = image
	})
}

// WithTimezone sets the IANA timezone whose midnight resets the counters. Default: UTC.
func WithTimezone(tz string) Option {
	return optionFunc(func(c *clientConfig) {
		c.timezone = tz
	})
}

// WithUsageRetention sets how long daily counters are kept. Default: 90 days.
func WithUsageRetention(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retention = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// withClock replaces the wall clock. Tests only.
func withClock(cl clock.Clock) Option {
	return optionFunc(func(c *clientConfig) {
		c.clock = cl
	})
}
