package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockGenerator struct {
	err error
}

func (m *mockGenerator) HealthCheck(_ context.Context) error { return m.err }

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name      string
		storage   error
		generator error
		want      Status
	}{
		{"all healthy", nil, nil, Healthy},
		{"generator down", nil, down, Degraded},
		{"storage down", down, nil, Unhealthy},
		{"both down", down, down, Unhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&mockPinger{err: tc.storage}, &mockGenerator{err: tc.generator}, 0).Check(context.Background())
			if r.Status != tc.want {
				t.Errorf("status = %q, want %q", r.Status, tc.want)
			}
			if (tc.storage == nil) != (r.Checks["storage"] == CheckOK) {
				t.Errorf("storage check = %q", r.Checks["storage"])
			}
			if (tc.generator == nil) != (r.Checks["generator"] == CheckOK) {
				t.Errorf("generator check = %q", r.Checks["generator"])
			}
		})
	}
}

func TestCheck_NilGenerator(t *testing.T) {
	r := New(&mockPinger{}, nil, 0).Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["generator"]; ok {
		t.Error("generator check must be absent when not configured")
	}
}

func TestCheck_Timeout(t *testing.T) {
	start := time.Now()
	r := New(slowPinger{}, nil, 20*time.Millisecond).Check(context.Background())
	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if time.Since(start) > time.Second {
		t.Error("check must respect the timeout")
	}
}
