package quickai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/quota"
)

func newMemoryClient(t *testing.T, opts ...Option) (*Client, *clock.Manual) {
	t.Helper()
	manual := clock.NewManual(time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC))
	opts = append([]Option{WithMemory(), withClock(manual)}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, manual
}

func TestNew_NoStorage(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error when no storage configured")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_EmptyAddress(t *testing.T) {
	if _, err := New(context.Background(), WithValkey("", "")); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestNew_BadTimezone(t *testing.T) {
	if _, err := New(context.Background(), WithMemory(), WithTimezone("Nowhere/City")); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNew_NegativeLimits(t *testing.T) {
	if _, err := New(context.Background(), WithMemory(), WithDailyLimits(-1, 5)); err == nil {
		t.Fatal("expected error for negative limit")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	cfg2 := &clientConfig{}
	WithRedis("localhost:6380", "pass").apply(cfg2)
	if cfg2.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg2.driver)
	}

	cfg3 := &clientConfig{}
	WithDailyLimits(10, 3).apply(cfg3)
	WithKeyPrefix("bot:").apply(cfg3)
	WithTimezone("Europe/Moscow").apply(cfg3)
	WithUsageRetention(48 * time.Hour).apply(cfg3)
	if cfg3.textLimit != 10 || cfg3.imageLimit != 3 {
		t.Errorf("limits = (%d, %d), want (10, 3)", cfg3.textLimit, cfg3.imageLimit)
	}
	if cfg3.keyPrefix != "bot:" || cfg3.timezone != "Europe/Moscow" || cfg3.retention != 48*time.Hour {
		t.Errorf("unexpected config %+v", cfg3)
	}

	cfg4 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg4)
	if cfg4.logger != logger {
		t.Error("expected logger to be set")
	}

	cfg5 := &clientConfig{}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

// --- end to end on the memory driver ---

func TestClient_FreeTierCountsDownAndResets(t *testing.T) {
	c, manual := newMemoryClient(t, WithDailyLimits(2, 1))
	ctx := context.Background()

	for want := int64(1); want >= 0; want-- {
		d, err := c.CheckAndConsume(ctx, "u1", Text, false)
		if err != nil {
			t.Fatalf("CheckAndConsume: %v", err)
		}
		if !d.Allowed || d.Remaining != want {
			t.Fatalf("got %+v, want allowed with %d remaining", d, want)
		}
	}

	d, err := c.CheckAndConsume(ctx, "u1", Text, false)
	if err != nil {
		t.Fatalf("CheckAndConsume: %v", err)
	}
	if d.Allowed || d.Reason != ReasonDailyLimitReached {
		t.Fatalf("expected daily limit denial, got %+v", d)
	}

	manual.Advance(3 * time.Hour) // past midnight UTC
	d, err = c.CheckAndConsume(ctx, "u1", Text, false)
	if err != nil {
		t.Fatalf("CheckAndConsume: %v", err)
	}
	if !d.Allowed || d.Remaining != 1 {
		t.Errorf("expected reset next day, got %+v", d)
	}
}

func TestClient_PremiumLifecycle(t *testing.T) {
	c, manual := newMemoryClient(t)
	ctx := context.Background()

	d, _ := c.CheckAndConsume(ctx, "u1", Image, true)
	if d.Allowed || d.Reason != ReasonPremiumModelRequired {
		t.Fatalf("expected premium gate, got %+v", d)
	}

	e, err := c.Grant(ctx, "u1", "1d")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if e.ExpiresAt == nil || !e.ExpiresAt.Equal(manual.Now().Add(24*time.Hour)) {
		t.Errorf("unexpected expiry %v", e.ExpiresAt)
	}

	d, err = c.CheckAndConsume(ctx, "u1", Image, true)
	if err != nil {
		t.Fatalf("CheckAndConsume: %v", err)
	}
	if !d.Allowed || d.Remaining != Unlimited {
		t.Errorf("expected unlimited allow, got %+v", d)
	}

	st, err := c.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.IsPremium || st.ImageUsedToday != 0 || st.Day != "2025-01-31" {
		t.Errorf("unexpected status %+v", st)
	}

	manual.Advance(25 * time.Hour)
	if st, _ := c.Status(ctx, "u1"); st.IsPremium {
		t.Error("expected premium to lapse after expiry")
	}

	existed, err := c.Revoke(ctx, "u1")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !existed {
		t.Error("expected expired record to still exist before revoke")
	}
	if existed, _ := c.Revoke(ctx, "u1"); existed {
		t.Error("second revoke must report no record")
	}
}

func TestClient_Grant_InvalidDuration(t *testing.T) {
	c, _ := newMemoryClient(t)

	_, err := c.Grant(context.Background(), "u1", "forty")
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestClient_UnknownResource(t *testing.T) {
	c, _ := newMemoryClient(t)

	_, err := c.CheckAndConsume(context.Background(), "u1", Resource("video"), false)
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}

func TestClient_Preferences(t *testing.T) {
	c, _ := newMemoryClient(t)
	ctx := context.Background()

	p, err := c.Preferences(ctx, "u1")
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if p.TextModel != "openai" || p.ImageModel != "flux" || p.Agent != "agent-1" {
		t.Errorf("unexpected defaults %+v", p)
	}

	model := "mistral"
	p, err = c.SetPreferences(ctx, "u1", PreferencesPatch{TextModel: &model})
	if err != nil {
		t.Fatalf("SetPreferences: %v", err)
	}
	if p.TextModel != "mistral" || p.ImageModel != "flux" {
		t.Errorf("unexpected patched prefs %+v", p)
	}
}

func TestClient_Health(t *testing.T) {
	c, _ := newMemoryClient(t)

	if h := c.Health(context.Background()); !h.Healthy() || h.Checks["storage"] != "ok" || len(h.Failing()) != 0 {
		t.Errorf("unexpected health %+v", h)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	c.Close()
	h := c.Health(context.Background())
	if h.Healthy() || h.Status != "error" {
		t.Errorf("expected error after close, got %+v", h)
	}
	if f := h.Failing(); len(f) != 1 || f[0] != "storage" {
		t.Errorf("Failing() = %v, want [storage]", f)
	}
}

// --- mocked engine ---

func TestClient_StorageFailureIsDenial(t *testing.T) {
	storageErr := fmt.Errorf("%w: timeout", domain.ErrStorageUnavailable)
	c := testClient(&mockEngine{
		checkFn: func(context.Context, string, domain.Resource, bool) (quota.Decision, error) {
			return quota.Deny(quota.ReasonNone), storageErr
		},
	})

	d, err := c.CheckAndConsume(context.Background(), "u1", Text, false)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if d.Allowed {
		t.Error("storage failure must not allow")
	}
}

func TestClient_GrantPassesParsedDuration(t *testing.T) {
	var got entitlement.Duration
	c := testClient(&mockEngine{
		grantFn: func(_ context.Context, userID string, d entitlement.Duration) (entitlement.Entitlement, error) {
			got = d
			return entitlement.New(userID, time.Unix(0, 0), d), nil
		},
	})

	e, err := c.Grant(context.Background(), "u1", "unlimited")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !got.IsUnlimited() || e.ExpiresAt != nil {
		t.Errorf("expected unlimited grant, got %v / %+v", got, e)
	}
}

// --- observer ---

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
	obs.observeDecision(Text, Decision{Reason: ReasonDailyLimitReached}, time.Now(), nil)
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, outcomeOK},
		{fmt.Errorf("read usage: %w", ErrStorageUnavailable), outcomeUnavailable},
		{ErrInvalidUser, outcomeRejected},
		{ErrUnknownResource, outcomeRejected},
		{fmt.Errorf("%w: \"soon\"", ErrInvalidDuration), outcomeRejected},
		{errors.New("boom"), outcomeError},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	m := obs.metrics

	obs.observeDecision(Text, Decision{Allowed: true, Remaining: 4}, time.Now(), nil)
	obs.observeDecision(Text, Decision{Reason: ReasonDailyLimitReached}, time.Now(), nil)
	obs.observeDecision(Image, Decision{Reason: ReasonPremiumModelRequired}, time.Now(), nil)
	obs.observeDecision(Text, Decision{}, time.Now(), ErrStorageUnavailable)
	obs.observe("grant", time.Now(), ErrInvalidDuration)

	counts := map[[2]string]float64{
		{"check_and_consume", outcomeAllowed}:     1,
		{"check_and_consume", outcomeDenied}:      2,
		{"check_and_consume", outcomeUnavailable}: 1,
		{"grant", outcomeRejected}:                1,
	}
	for labels, want := range counts {
		if got := testutil.ToFloat64(m.operations.WithLabelValues(labels[0], labels[1])); got != want {
			t.Errorf("operations%v = %v, want %v", labels, got, want)
		}
	}
	if got := testutil.ToFloat64(m.denials.WithLabelValues("text", string(ReasonDailyLimitReached))); got != 1 {
		t.Errorf("text daily-limit denials = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.denials.WithLabelValues("image", string(ReasonPremiumModelRequired))); got != 1 {
		t.Errorf("image premium denials = %v, want 1", got)
	}
	// A storage failure is not a denial.
	if got := testutil.CollectAndCount(m.denials); got != 2 {
		t.Errorf("denial series = %d, want 2", got)
	}
}

func TestClient_ObservesDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, _ := newMemoryClient(t, WithDailyLimits(1, 1), WithPrometheus(reg))
	ctx := context.Background()

	_, _ = c.CheckAndConsume(ctx, "u1", Text, false)
	_, _ = c.CheckAndConsume(ctx, "u1", Text, false)
	_, _ = c.CheckAndConsume(ctx, "u1", "video", false)

	m := c.obs.metrics
	if got := testutil.ToFloat64(m.operations.WithLabelValues("check_and_consume", outcomeDenied)); got != 1 {
		t.Errorf("denied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("check_and_consume", outcomeRejected)); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first observer: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second observer on the same registry: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("grant", time.Now(), nil)
	obs.observe("grant", time.Now(), errors.New("test error"))
}
