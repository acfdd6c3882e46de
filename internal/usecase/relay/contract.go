package relay

import (
	"context"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
)

// Engine is the quota and entitlement decision point.
type Engine interface {
	CheckAndConsume(ctx context.Context, userID string, r domain.Resource, premiumGated bool) (quota.Decision, error)
	IsPremium(ctx context.Context, userID string) (bool, error)
	GetPreferences(ctx context.Context, userID string) (preferences.Preferences, error)
	SetPreferences(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error)
}

// Generator talks to the upstream generation provider.
type Generator interface {
	GenerateText(ctx context.Context, model, systemPrompt, prompt string) (string, error)
	ImageURL(ctx context.Context, model, prompt string) (string, error)
}
