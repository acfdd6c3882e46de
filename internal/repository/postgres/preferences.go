package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quickai/quickai/internal/domain/preferences"
)

const (
	selectPreferencesSQL = `SELECT text_model, image_model, agent FROM preferences WHERE user_id = $1`

	// Nil parameters keep the stored value, or the default on first write.
	upsertPreferencesSQL = `INSERT INTO preferences (user_id, text_model, image_model, agent)
VALUES ($1, COALESCE($2::text, $5::text), COALESCE($3::text, $6::text), COALESCE($4::text, $7::text))
ON CONFLICT (user_id) DO UPDATE SET
    text_model  = COALESCE($2::text, preferences.text_model),
    image_model = COALESCE($3::text, preferences.image_model),
    agent       = COALESCE($4::text, preferences.agent),
    updated_at  = now()
RETURNING text_model, image_model, agent`
)

type preferencesRow struct {
	TextModel  string `db:"text_model"`
	ImageModel string `db:"image_model"`
	Agent      string `db:"agent"`
}

func (r preferencesRow) toDomain() preferences.Preferences {
	return preferences.Preferences{TextModel: r.TextModel, ImageModel: r.ImageModel, Agent: r.Agent}.WithDefaults()
}

// PreferencesRepo stores one row per user who changed a setting.
type PreferencesRepo struct {
	q querier
}

// NewPreferencesRepo creates a preferences repository.
func NewPreferencesRepo(q querier) *PreferencesRepo {
	return &PreferencesRepo{q: q}
}

// Get returns stored preferences, or defaults when the user has none.
func (r *PreferencesRepo) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	var row preferencesRow
	if err := r.q.GetContext(ctx, &row, selectPreferencesSQL, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return preferences.Defaults(), nil
		}
		return preferences.Preferences{}, storageErr("get preferences "+userID, err)
	}
	return row.toDomain(), nil
}

// Update merges the patch into the stored row in one statement.
func (r *PreferencesRepo) Update(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error) {
	if patch.IsEmpty() {
		return r.Get(ctx, userID)
	}
	d := preferences.Defaults()
	var row preferencesRow
	err := r.q.GetContext(ctx, &row, upsertPreferencesSQL,
		userID, patch.TextModel, patch.ImageModel, patch.Agent,
		d.TextModel, d.ImageModel, d.Agent)
	if err != nil {
		return preferences.Preferences{}, storageErr("update preferences "+userID, err)
	}
	return row.toDomain(), nil
}
