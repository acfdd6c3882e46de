package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pgdb "github.com/quickai/quickai/internal/db/postgres"
	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
)

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

type mockQuerier struct {
	getFn  func(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	execFn func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (m *mockQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return m.getFn(ctx, dest, query, args...)
}

func (m *mockQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return m.execFn(ctx, query, args...)
}

func TestEntitlementRepo_GetMissing(t *testing.T) {
	q := &mockQuerier{getFn: func(context.Context, interface{}, string, ...interface{}) error {
		return sql.ErrNoRows
	}}
	_, ok, err := NewEntitlementRepo(q).Get(context.Background(), "42")
	if err != nil || ok {
		t.Fatalf("Get() = %v, %v; want false, nil", ok, err)
	}
}

func TestEntitlementRepo_PutUnlimitedWritesNull(t *testing.T) {
	var got []any
	q := &mockQuerier{execFn: func(_ context.Context, _ string, args ...any) (sql.Result, error) {
		got = args
		return fakeResult(1), nil
	}}
	err := NewEntitlementRepo(q).Put(context.Background(), entitlement.New("42", time.Now(), entitlement.Unlimited))
	if err != nil {
		t.Fatal(err)
	}
	if nt, ok := got[1].(sql.NullTime); !ok || nt.Valid {
		t.Errorf("expires_at arg = %#v, want invalid NullTime", got[1])
	}
}

func TestEntitlementRepo_DeleteReportsExistence(t *testing.T) {
	affected := int64(1)
	q := &mockQuerier{execFn: func(context.Context, string, ...any) (sql.Result, error) {
		return fakeResult(affected), nil
	}}
	repo := NewEntitlementRepo(q)

	if ok, _ := repo.Delete(context.Background(), "42"); !ok {
		t.Error("expected true for an existing row")
	}
	affected = 0
	if ok, _ := repo.Delete(context.Background(), "42"); ok {
		t.Error("expected false when nothing was deleted")
	}
}

func TestUsageCounter_LimitReachedReadsCurrent(t *testing.T) {
	q := &mockQuerier{getFn: func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
		if strings.HasPrefix(query, "INSERT") {
			return sql.ErrNoRows
		}
		*dest.(*int64) = 15
		return nil
	}}
	n, ok, err := NewUsageCounter(q).IncrementIfBelow(context.Background(), "42", domain.ResourceImage, 0, 15)
	if err != nil || ok || n != 15 {
		t.Fatalf("IncrementIfBelow() = (%d, %v, %v), want (15, false, nil)", n, ok, err)
	}
}

func TestUsageCounter_ZeroLimitSkipsInsert(t *testing.T) {
	q := &mockQuerier{getFn: func(_ context.Context, _ interface{}, query string, _ ...interface{}) error {
		if strings.HasPrefix(query, "INSERT") {
			t.Fatal("zero limit must not insert")
		}
		return sql.ErrNoRows
	}}
	n, ok, err := NewUsageCounter(q).IncrementIfBelow(context.Background(), "42", domain.ResourceText, 0, 0)
	if err != nil || ok || n != 0 {
		t.Fatalf("IncrementIfBelow() = (%d, %v, %v)", n, ok, err)
	}
}

func TestUsageCounter_StorageError(t *testing.T) {
	q := &mockQuerier{getFn: func(context.Context, interface{}, string, ...interface{}) error {
		return errors.New("connection refused")
	}}
	_, _, err := NewUsageCounter(q).IncrementIfBelow(context.Background(), "42", domain.ResourceText, 0, 5)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestPreferencesRepo_MissingIsDefaults(t *testing.T) {
	q := &mockQuerier{getFn: func(context.Context, interface{}, string, ...interface{}) error {
		return sql.ErrNoRows
	}}
	got, err := NewPreferencesRepo(q).Get(context.Background(), "42")
	if err != nil || got != preferences.Defaults() {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}

// Integration tests run against QUICKAI_TEST_DATABASE_URL and are skipped without it.
func openTestDB(t *testing.T) *pgdb.DB {
	t.Helper()
	url := os.Getenv("QUICKAI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("QUICKAI_TEST_DATABASE_URL not set")
	}
	if err := pgdb.RunMigrations(url); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	d, err := pgdb.Open(pgdb.Config{URL: url, MaxOpenConns: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if _, err := d.Exec(`TRUNCATE entitlements, usage, preferences`); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestIntegration_IncrementIfBelowConcurrent(t *testing.T) {
	d := openTestDB(t)
	c := NewUsageCounter(d)
	ctx := context.Background()
	day := clock.FromDate(time.Now())

	const limit = 15
	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := c.IncrementIfBelow(ctx, "42", domain.ResourceImage, day, limit); err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != limit {
		t.Errorf("allowed = %d, want %d", allowed.Load(), limit)
	}
	n, err := c.CurrentCount(ctx, "42", domain.ResourceImage, day)
	if err != nil || n != limit {
		t.Errorf("CurrentCount() = %d, %v", n, err)
	}
}

func TestIntegration_EntitlementRoundTrip(t *testing.T) {
	d := openTestDB(t)
	repo := NewEntitlementRepo(d)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	dur, _ := entitlement.Days(7)

	if err := repo.Put(ctx, entitlement.New("42", now, dur)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := repo.Get(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if exp, _ := got.ExpiresAt(); !exp.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("ExpiresAt() = %v", exp)
	}

	n, err := repo.DeleteExpired(ctx, now.AddDate(0, 0, 8))
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired() = %d, %v", n, err)
	}
}

func TestIntegration_PreferencesPatch(t *testing.T) {
	d := openTestDB(t)
	repo := NewPreferencesRepo(d)
	ctx := context.Background()
	agent := "agent-2"

	got, err := repo.Update(ctx, "42", preferences.Patch{Agent: &agent})
	if err != nil {
		t.Fatal(err)
	}
	want := preferences.Defaults()
	want.Agent = agent
	if got != want {
		t.Errorf("Update() = %+v, want %+v", got, want)
	}
}
