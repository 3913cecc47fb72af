package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLimit  = 100
	defaultWindow = 60 * time.Second
	defaultPrefix = "ratelimit:"
)

type Config struct {
	// Requests allowed per window
	Limit int

	Window time.Duration

	// Prefix of redis keys
	Prefix string

	// Clock, time.Now if not set
	Now func() time.Time
}

// Decision of a single admission check
type Decision struct {
	Allowed bool

	// Requests in the window including current one
	Count int64
	Limit int

	// Time left until the oldest request leaves the window. Zero if allowed
	RetryAfter time.Duration
}

// Limiter is a sliding window counter kept in redis sorted sets
// Every key is a client, every member is one request scored by its time in milliseconds
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func New(cfg Config, client redis.Cmdable) *Limiter {
	if cfg.Limit == 0 {
		cfg.Limit = defaultLimit
	}
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		client: client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix,
		now:    cfg.Now,
	}
}

// Allow records the request and decides whether it fits the window
// Record, prune, count and ttl refresh go in one MULTI/EXEC block
// Only entries newer than now - window are counted
// Denied requests are recorded too, so a client hammering the gate stays locked out
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - l.window.Milliseconds()
	redisKey := l.prefix + key

	// Members must be unique, otherwise requests within the same millisecond collapse into one
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	var (
		count  *redis.IntCmd
		oldest *redis.ZSliceCmd
	)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMs), Member: member})
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart, 10))
		count = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		pipe.Expire(ctx, redisKey, l.window+time.Second)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	d := Decision{
		Allowed: count.Val() <= int64(l.limit),
		Count:   count.Val(),
		Limit:   l.limit,
	}
	if !d.Allowed {
		d.RetryAfter = l.window
		if z := oldest.Val(); len(z) > 0 {
			d.RetryAfter = time.Duration(int64(z[0].Score)+l.window.Milliseconds()-nowMs) * time.Millisecond
		}
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
	}

	return d, nil
}

// RetryAfterSeconds rounds up, never less than 1
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
