package quickai

import (
	"context"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
)

// --- engineUseCase mock ---

type mockEngine struct {
	checkFn  func(ctx context.Context, userID string, r domain.Resource, gated bool) (quota.Decision, error)
	grantFn  func(ctx context.Context, userID string, d entitlement.Duration) (entitlement.Entitlement, error)
	revokeFn func(ctx context.Context, userID string) (bool, error)
	statusFn func(ctx context.Context, userID string) (engineuc.Status, error)
	getFn    func(ctx context.Context, userID string) (preferences.Preferences, error)
	setFn    func(ctx context.Context, userID string, p preferences.Patch) (preferences.Preferences, error)
}

func (m *mockEngine) CheckAndConsume(
	ctx context.Context, userID string, r domain.Resource, gated bool,
) (quota.Decision, error) {
	return m.checkFn(ctx, userID, r, gated)
}

func (m *mockEngine) GrantEntitlement(
	ctx context.Context, userID string, d entitlement.Duration,
) (entitlement.Entitlement, error) {
	return m.grantFn(ctx, userID, d)
}

func (m *mockEngine) RevokeEntitlement(ctx context.Context, userID string) (bool, error) {
	return m.revokeFn(ctx, userID)
}

func (m *mockEngine) Status(ctx context.Context, userID string) (engineuc.Status, error) {
	return m.statusFn(ctx, userID)
}

func (m *mockEngine) GetPreferences(ctx context.Context, userID string) (preferences.Preferences, error) {
	return m.getFn(ctx, userID)
}

func (m *mockEngine) SetPreferences(
	ctx context.Context, userID string, p preferences.Patch,
) (preferences.Preferences, error) {
	return m.setFn(ctx, userID, p)
}

// --- helpers ---

func testClient(engine engineUseCase) *Client {
	return &Client{engine: engine}
}
