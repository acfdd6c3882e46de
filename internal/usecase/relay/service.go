// Package relay gates generation requests behind the entitlement engine.
package relay

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/catalog"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
)

// MaxPromptLen caps prompt size in characters.
const MaxPromptLen = 4000

// Result is one generated answer. Text is set for text requests, URL for image requests.
type Result struct {
	ID        string
	Resource  domain.Resource
	Model     string
	Text      string
	URL       string
	Remaining int64 // quota.Unlimited for premium users
}

// DeniedError reports a quota decision that refused the request.
type DeniedError struct {
	Resource   domain.Resource
	Model      string
	Decision   quota.Decision
	FreeModels []catalog.Model // set for premium_model_required
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s request with %s denied: %s", e.Resource, e.Model, e.Decision.Reason)
}

// Unwrap maps the decision reason onto the transport sentinels.
func (e *DeniedError) Unwrap() error {
	if e.Decision.Reason == quota.ReasonPremiumModelRequired {
		return domain.ErrPremiumRequired
	}
	return domain.ErrQuotaExceeded
}

// Service resolves the model, consults the engine and calls the generator.
type Service struct {
	engine    Engine
	catalog   *catalog.Catalog
	generator Generator
}

// New creates a relay service.
func New(engine Engine, cat *catalog.Catalog, generator Generator) *Service {
	return &Service{engine: engine, catalog: cat, generator: generator}
}

// Catalog returns the model catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Generate serves one request. An empty model falls back to the user's preference.
// Quota is consumed once the engine allows the request, even if the upstream call then fails.
func (s *Service) Generate(ctx context.Context, userID string, r domain.Resource, prompt, model string) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > MaxPromptLen {
		return Result{}, fmt.Errorf("%w: length must be 1..%d", domain.ErrInvalidPrompt, MaxPromptLen)
	}
	if !r.Valid() {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownResource, r)
	}

	prefs, err := s.engine.GetPreferences(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if model == "" {
		model = prefs.TextModel
		if r == domain.ResourceImage {
			model = prefs.ImageModel
		}
	}
	m, err := s.catalog.Model(r, model)
	if err != nil {
		return Result{}, err
	}

	d, err := s.engine.CheckAndConsume(ctx, userID, r, m.Premium)
	if err != nil {
		return Result{}, err
	}
	if !d.Allowed {
		denied := &DeniedError{Resource: r, Model: m.Name, Decision: d}
		if d.Reason == quota.ReasonPremiumModelRequired {
			denied.FreeModels = s.catalog.FreeModels(r)
		}
		return Result{}, denied
	}

	res := Result{ID: uuid.NewString(), Resource: r, Model: m.Name, Remaining: d.Remaining}
	switch r {
	case domain.ResourceText:
		res.Text, err = s.generator.GenerateText(ctx, m.Name, s.catalog.SystemPrompt(m.Name, prefs.Agent), prompt)
	case domain.ResourceImage:
		res.URL, err = s.generator.ImageURL(ctx, m.Name, prompt)
	}
	if err != nil {
		return Result{}, fmt.Errorf("generate %s: %w", r, err)
	}
	return res, nil
}

// UpdatePreferences validates the patch against the catalog and stores it.
// Selecting a premium model requires an active entitlement.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error) {
	gated := false
	check := func(r domain.Resource, name *string) error {
		if name == nil {
			return nil
		}
		m, err := s.catalog.Model(r, *name)
		if err != nil {
			return err
		}
		gated = gated || m.Premium
		return nil
	}
	if err := check(domain.ResourceText, patch.TextModel); err != nil {
		return preferences.Preferences{}, err
	}
	if err := check(domain.ResourceImage, patch.ImageModel); err != nil {
		return preferences.Preferences{}, err
	}
	if patch.Agent != nil {
		if _, err := s.catalog.Agent(*patch.Agent); err != nil {
			return preferences.Preferences{}, err
		}
	}

	if gated {
		premium, err := s.engine.IsPremium(ctx, userID)
		if err != nil {
			return preferences.Preferences{}, err
		}
		if !premium {
			return preferences.Preferences{}, fmt.Errorf("select premium model: %w", domain.ErrPremiumRequired)
		}
	}
	return s.engine.SetPreferences(ctx, userID, patch)
}
