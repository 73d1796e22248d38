package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims expired events, admits the new one only when the
// window has room, and returns the score of the oldest admitted event.
// Numeric arguments arrive as strings so scores never pass through Lua's
// float formatting.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
redis.call("ZREMRANGEBYSCORE", key, "-inf", ARGV[2])
local count = redis.call("ZCARD", key)
local allowed = 0
if count < tonumber(ARGV[3]) then
  redis.call("ZADD", key, ARGV[1], ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", key, ARGV[5])
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local first = ARGV[1]
if oldest[2] then
  first = oldest[2]
end
return {allowed, count, first}
`)

// Limiter implements a sliding window rate limiter backed by Redis sorted
// sets. Rejected requests are not recorded, so a throttled client regains
// capacity as soon as its earlier requests leave the window.
type Limiter struct {
	Client redis.UniversalClient
	Prefix string
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	nowMicros := now.UnixMicro()
	windowMillis := window.Milliseconds()
	if windowMillis < 1 {
		windowMillis = 1
	}
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())
	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		strconv.FormatInt(nowMicros, 10),
		strconv.FormatInt(nowMicros-window.Microseconds(), 10),
		strconv.Itoa(max),
		member,
		strconv.FormatInt(windowMillis, 10),
	).Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	admitted, count, oldest, err := parseReply(res)
	if err != nil {
		return false, 0, now.Add(window), err
	}

	remaining = max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return admitted, remaining, time.UnixMicro(oldest).Add(window), nil
}

func parseReply(res []any) (admitted bool, count, oldestMicros int64, err error) {
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	flag, ok1 := res[0].(int64)
	count, ok2 := res[1].(int64)
	raw, ok3 := res[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return false, 0, 0, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, 0, 0, fmt.Errorf("ratelimit: oldest score: %w", err)
	}
	return flag == 1, count, int64(score), nil
}
