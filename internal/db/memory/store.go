// Package memory is a single-node db.Store kept in process memory.
// It backs tests and the "memory" driver for local runs without Redis.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/quickai/quickai/internal/db"
)

var _ db.Store = (*Store)(nil)

type entry struct {
	value    []byte
	hash     map[string]string
	expireAt time.Time // zero = no expiry
}

// Store is an in-memory db.Store. Every operation takes one mutex, which gives
// IncrIfBelow the same atomicity the Redis script has.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	data   map[string]*entry
	closed bool
}

// New creates an empty store using the wall clock for TTLs.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store with a custom time source for TTLs.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now, data: make(map[string]*entry)}
}

// lookup returns a live entry, dropping it if expired. Caller holds mu.
func (s *Store) lookup(key string) (*entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close marks the store closed; later pings fail.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok || e.hash != nil {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// IncrBy increments an integer value, creating it at zero.
func (s *Store) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incr(key, val)
}

func (s *Store) incr(key string, val int64) (int64, error) {
	e, ok := s.lookup(key)
	var cur int64
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpIncrBy, Err: err}
		}
		cur = n
	} else {
		e = &entry{}
		s.data[key] = e
	}
	cur += val
	e.value = []byte(strconv.FormatInt(cur, 10))
	return cur, nil
}

// Expire sets a TTL. With nx it only applies when the key has none.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return nil
	}
	if nx && !e.expireAt.IsZero() {
		return nil
	}
	e.expireAt = s.now().Add(ttl)
	return nil
}

// Del removes a key and reports whether it existed.
func (s *Store) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup(key)
	delete(s.data, key)
	return ok, nil
}

// HSet merges fields into a hash.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok || e.hash == nil {
		e = &entry{hash: make(map[string]string, len(fields))}
		s.data[key] = e
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

// HGetAll returns a copy of the hash, empty when missing.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	if e, ok := s.lookup(key); ok {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

// IncrIfBelow implements db.CounterStore under the store mutex.
func (s *Store) IncrIfBelow(_ context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur int64
	if e, ok := s.lookup(key); ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, false, &db.Error{Op: db.OpEval, Err: err}
		}
		cur = n
	}
	if cur >= limit {
		return cur, false, nil
	}

	n, err := s.incr(key, 1)
	if err != nil {
		return 0, false, err
	}
	if e := s.data[key]; ttl > 0 && e.expireAt.IsZero() {
		e.expireAt = s.now().Add(ttl)
	}
	return n, true, nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.data {
		if _, ok := s.lookup(k); ok {
			n++
		}
	}
	return n
}
