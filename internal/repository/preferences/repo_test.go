package preferences

import (
	"context"
	"errors"
	"testing"

	"github.com/quickai/quickai/internal/db/memory"
	"github.com/quickai/quickai/internal/domain"
	dompref "github.com/quickai/quickai/internal/domain/preferences"
)

type mockStore struct {
	hsetFn    func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	return m.hsetFn(ctx, key, fields)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return m.hgetAllFn(ctx, key)
}

func ptr(s string) *string { return &s }

func TestGet_DefaultsForNewUser(t *testing.T) {
	repo := New(memory.New(), "t:")
	got, err := repo.Get(context.Background(), "42")
	if err != nil {
		t.Fatal(err)
	}
	if got != dompref.Defaults() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
}

func TestUpdate_OnlyPatchedFields(t *testing.T) {
	var written map[string]string
	s := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			if key != "t:prefs:42" {
				t.Errorf("key = %q", key)
			}
			written = fields
			return nil
		},
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{fieldImageModel: "flux-anime"}, nil
		},
	}

	got, err := New(s, "t:").Update(context.Background(), "42", dompref.Patch{ImageModel: ptr("flux-anime")})
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 || written[fieldImageModel] != "flux-anime" {
		t.Errorf("written = %v", written)
	}
	if got.ImageModel != "flux-anime" || got.TextModel != dompref.DefaultTextModel {
		t.Errorf("Update() = %+v", got)
	}
}

func TestUpdate_KeepsOtherFields(t *testing.T) {
	repo := New(memory.New(), "t:")
	ctx := context.Background()

	if _, err := repo.Update(ctx, "42", dompref.Patch{TextModel: ptr("mistral")}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Update(ctx, "42", dompref.Patch{Agent: ptr("agent-3")})
	if err != nil {
		t.Fatal(err)
	}
	want := dompref.Preferences{TextModel: "mistral", ImageModel: dompref.DefaultImageModel, Agent: "agent-3"}
	if got != want {
		t.Errorf("Update() = %+v, want %+v", got, want)
	}
}

func TestUpdate_EmptyPatchSkipsWrite(t *testing.T) {
	s := &mockStore{
		hsetFn: func(context.Context, string, map[string]string) error {
			t.Fatal("HSet must not be called")
			return nil
		},
		hgetAllFn: func(context.Context, string) (map[string]string, error) { return map[string]string{}, nil },
	}
	if _, err := New(s, "t:").Update(context.Background(), "42", dompref.Patch{}); err != nil {
		t.Fatal(err)
	}
}

func TestGet_StorageError(t *testing.T) {
	s := &mockStore{hgetAllFn: func(context.Context, string) (map[string]string, error) {
		return nil, errors.New("down")
	}}
	if _, err := New(s, "t:").Get(context.Background(), "42"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}
