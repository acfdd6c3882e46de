package preferences

import (
	"context"
	"fmt"

	"github.com/quickai/quickai/internal/domain"
	dompref "github.com/quickai/quickai/internal/domain/preferences"
)

// store is the consumer interface for preference records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

const (
	fieldTextModel  = "text_model"
	fieldImageModel = "image_model"
	fieldAgent      = "agent"
)

// Repo keeps one hash per user.
type Repo struct {
	store  store
	prefix string
}

// New creates a preferences repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) key(userID string) string {
	return r.prefix + "prefs:" + userID
}

// Get returns the stored preferences with defaults filled in.
func (r *Repo) Get(ctx context.Context, userID string) (dompref.Preferences, error) {
	m, err := r.store.HGetAll(ctx, r.key(userID))
	if err != nil {
		return dompref.Preferences{}, fmt.Errorf("%w: get preferences %s: %w", domain.ErrStorageUnavailable, userID, err)
	}
	p := dompref.Preferences{
		TextModel:  m[fieldTextModel],
		ImageModel: m[fieldImageModel],
		Agent:      m[fieldAgent],
	}
	return p.WithDefaults(), nil
}

// Update writes only the patched fields, then returns the merged record.
func (r *Repo) Update(ctx context.Context, userID string, patch dompref.Patch) (dompref.Preferences, error) {
	fields := make(map[string]string, 3)
	if patch.TextModel != nil {
		fields[fieldTextModel] = *patch.TextModel
	}
	if patch.ImageModel != nil {
		fields[fieldImageModel] = *patch.ImageModel
	}
	if patch.Agent != nil {
		fields[fieldAgent] = *patch.Agent
	}
	if len(fields) > 0 {
		if err := r.store.HSet(ctx, r.key(userID), fields); err != nil {
			return dompref.Preferences{}, fmt.Errorf("%w: update preferences %s: %w", domain.ErrStorageUnavailable, userID, err)
		}
	}
	return r.Get(ctx, userID)
}
