package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quickai/quickai/internal/db"
)

// incrIfBelowScript runs server-side, so the read and the increment of one key
// can never interleave with another caller's.
// KEYS[1] counter, ARGV[1] limit, ARGV[2] ttl seconds (0 = none).
// Returns {1, new} on increment, {0, current} when the limit is reached.
const incrIfBelowScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {0, current}
end
current = redis.call('INCR', KEYS[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 and redis.call('TTL', KEYS[1]) < 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return {1, current}
`

// IncrIfBelow implements db.CounterStore with a Lua script (EVALSHA, EVAL fallback).
func (s *Store) IncrIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	args := []string{strconv.FormatInt(limit, 10), strconv.FormatInt(int64(ttl.Seconds()), 10)}
	res, err := s.incr.Exec(ctx, s.client, []string{key}, args).AsIntSlice()
	if err != nil {
		return 0, false, &db.Error{Op: db.OpEval, Err: err}
	}
	if len(res) != 2 {
		return 0, false, &db.Error{Op: db.OpEval, Err: fmt.Errorf("unexpected reply length %d", len(res))}
	}
	return res[1], res[0] == 1, nil
}
