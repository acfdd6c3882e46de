package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickai/quickai/internal/domain/clock"
)

// --- Mocks ---

type mockUsage struct {
	before clock.Day
	n      int64
	err    error
}

func (m *mockUsage) DeleteBefore(_ context.Context, day clock.Day) (int64, error) {
	m.before = day
	return m.n, m.err
}

type mockEnts struct {
	now   time.Time
	calls int
	err   error
}

func (m *mockEnts) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.calls++
	m.now = now
	return 2, m.err
}

func calendar() *clock.Calendar {
	return clock.NewCalendar(clock.NewManual(time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC)), time.UTC)
}

// --- Tests ---

func TestNew_RejectsNonPositiveRetention(t *testing.T) {
	if _, err := New(&mockUsage{}, nil, calendar(), 0, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_UsesCutoff(t *testing.T) {
	u := &mockUsage{n: 10}
	e := &mockEnts{}
	job, err := New(u, e, calendar(), 30, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if u.before.String() != "2025-03-31" {
		t.Errorf("cutoff = %s, want 2025-03-31", u.before)
	}
	if e.calls != 1 || !e.now.Equal(time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("entitlement pruner: calls=%d now=%v", e.calls, e.now)
	}
}

func TestRun_NilEntitlementPruner(t *testing.T) {
	job, _ := New(&mockUsage{}, nil, calendar(), 90, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRun_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	job, _ := New(&mockUsage{err: boom}, &mockEnts{}, calendar(), 90, nil)
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected usage error, got %v", err)
	}

	job, _ = New(&mockUsage{}, &mockEnts{err: boom}, calendar(), 90, nil)
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected entitlement error, got %v", err)
	}
}

func TestSchedule_InvalidSpec(t *testing.T) {
	job, _ := New(&mockUsage{}, nil, calendar(), 90, nil)
	if _, err := Schedule(job, "every day", time.UTC, time.Minute, nil); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSchedule_StartStop(t *testing.T) {
	job, _ := New(&mockUsage{}, nil, calendar(), 90, nil)
	s, err := Schedule(job, "15 3 * * *", time.UTC, time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
