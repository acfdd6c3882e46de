package quickai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickai/quickai/internal/db"
	"github.com/quickai/quickai/internal/db/memory"
	dbRedis "github.com/quickai/quickai/internal/db/redis"
	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
	entitlementrepo "github.com/quickai/quickai/internal/repository/entitlement"
	preferencesrepo "github.com/quickai/quickai/internal/repository/preferences"
	usagerepo "github.com/quickai/quickai/internal/repository/usage"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
	entitlementuc "github.com/quickai/quickai/internal/usecase/entitlement"
	healthuc "github.com/quickai/quickai/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "quickai:"
	defaultRetention        = 90 * 24 * time.Hour
)

// engineUseCase is the internal interface for substitution in tests.
type engineUseCase interface {
	CheckAndConsume(ctx context.Context, userID string, r domain.Resource, premiumGated bool) (quota.Decision, error)
	GrantEntitlement(ctx context.Context, userID string, d entitlement.Duration) (entitlement.Entitlement, error)
	RevokeEntitlement(ctx context.Context, userID string) (bool, error)
	Status(ctx context.Context, userID string) (engineuc.Status, error)
	GetPreferences(ctx context.Context, userID string) (preferences.Preferences, error)
	SetPreferences(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error)
}

// Client is the embedded engine entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	engine    engineUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:  defaultKeyPrefix,
		textLimit:  quota.DefaultTextLimit,
		imageLimit: quota.DefaultImageLimit,
		retention:  defaultRetention,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("quickai: storage required (use WithValkey, WithRedis or WithMemory)")
	}
	if cfg.textLimit < 0 || cfg.imageLimit < 0 {
		return nil, errors.New("quickai: daily limits must not be negative")
	}

	cal, err := clock.LoadCalendar(cfg.clock, cfg.timezone)
	if err != nil {
		return nil, fmt.Errorf("quickai: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("quickai: database not ready: %w", err)
	}

	return wireClient(store, cfg, cal, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, fmt.Errorf("quickai: %s address required", cfg.driver)
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("quickai: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		if cfg.clock != nil {
			return memory.NewWithClock(cfg.clock.Now), nil
		}
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("quickai: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, cal *clock.Calendar, obs *observer) *Client {
	ents := entitlementuc.New(entitlementrepo.New(store, cfg.keyPrefix), cal)
	counter := usagerepo.New(store, cfg.keyPrefix, cfg.retention)
	prefs := preferencesrepo.New(store, cfg.keyPrefix)
	limits := quota.Limits{Text: cfg.textLimit, Image: cfg.imageLimit}

	return &Client{
		store:     store,
		engine:    engineuc.New(ents, counter, prefs, cal, limits, nil),
		healthSvc: healthuc.New(store, nil, 0),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CheckAndConsume decides whether userID may use r now and, for an allowed
// free-tier request, counts it. premiumGated marks a premium-only model.
// A storage failure returns a denial together with ErrStorageUnavailable.
func (c *Client) CheckAndConsume(ctx context.Context, userID string, r Resource, premiumGated bool) (d Decision, err error) {
	start := time.Now()
	defer func() { c.obs.observeDecision(r, d, start, err) }()

	res, err := domain.ParseResource(string(r))
	if err != nil {
		return Decision{Reason: ReasonNone}, err
	}
	dd, err := c.engine.CheckAndConsume(ctx, userID, res, premiumGated)
	return decisionFromDomain(dd), err
}

// Grant installs premium for duration ("1d", "7d", "1m", "3m", "1y", "3y",
// "unlimited" or "<n>d"). The new grant replaces any existing one.
func (c *Client) Grant(ctx context.Context, userID, duration string) (e Entitlement, err error) {
	start := time.Now()
	defer func() { c.obs.observe("grant", start, err) }()

	d, err := entitlement.ParseDuration(duration)
	if err != nil {
		return Entitlement{}, err
	}
	ent, err := c.engine.GrantEntitlement(ctx, userID, d)
	if err != nil {
		return Entitlement{}, err
	}
	return entitlementFromDomain(ent), nil
}

// Revoke removes premium. It reports whether a record existed.
func (c *Client) Revoke(ctx context.Context, userID string) (existed bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("revoke", start, err) }()

	return c.engine.RevokeEntitlement(ctx, userID)
}

// Status returns the premium state and today's usage of userID.
func (c *Client) Status(ctx context.Context, userID string) (s Status, err error) {
	start := time.Now()
	defer func() { c.obs.observe("status", start, err) }()

	st, err := c.engine.Status(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return statusFromDomain(st), nil
}

// Preferences returns the user's selections with defaults filled in.
func (c *Client) Preferences(ctx context.Context, userID string) (p Preferences, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_preferences", start, err) }()

	pp, err := c.engine.GetPreferences(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	return preferencesFromDomain(pp), nil
}

// SetPreferences applies a partial update. Names are stored as given; callers
// validate them against their own model list.
func (c *Client) SetPreferences(ctx context.Context, userID string, patch PreferencesPatch) (p Preferences, err error) {
	start := time.Now()
	defer func() { c.obs.observe("set_preferences", start, err) }()

	pp, err := c.engine.SetPreferences(ctx, userID, patch.toDomain())
	if err != nil {
		return Preferences{}, err
	}
	return preferencesFromDomain(pp), nil
}
