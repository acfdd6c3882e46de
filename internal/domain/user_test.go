package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"discord snowflake", "1352720597997850695", false},
		{"opaque", "user-abc_1", false},
		{"empty", "", true},
		{"colon", "a:b", true},
		{"space", "a b", true},
		{"tab", "a\tb", true},
		{"too long", strings.Repeat("x", MaxUserIDLen+1), true},
		{"max length", strings.Repeat("x", MaxUserIDLen), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUser) {
					t.Fatalf("expected ErrInvalidUser, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseResource(t *testing.T) {
	for _, r := range Resources() {
		got, err := ParseResource(string(r))
		if err != nil {
			t.Fatalf("ParseResource(%q): %v", r, err)
		}
		if got != r || !got.Valid() {
			t.Errorf("ParseResource(%q) = %q", r, got)
		}
	}

	if _, err := ParseResource("video"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("expected ErrUnknownResource, got %v", err)
	}
	if Resource("audio").Valid() {
		t.Error("audio should not be valid")
	}
}
