// Package ratelimit enforces fixed-window request budgets backed by Redis.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 3 * time.Second

const keyPrefix = "insights:ratelimit:"

// fixedWindow increments the counter and starts the window on the first hit.
// Returns {count, remaining window in ms}.
var fixedWindow = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {current, ttl}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

// Limiter counts requests per key and window. A Limiter without a client
// allows everything.
type Limiter struct {
	client redis.UniversalClient
}

// New creates a Limiter on client. A nil client disables limiting.
func New(client redis.UniversalClient) *Limiter {
	return &Limiter{client: client}
}

// NewFromURL connects to the Redis at url. When the URL is empty, invalid or
// unreachable it logs a warning and returns a disabled Limiter.
func NewFromURL(ctx context.Context, url string) *Limiter {
	if url == "" {
		zap.L().Warn("ratelimit: no redis url configured, rate limiting disabled")
		return New(nil)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		zap.L().Warn("ratelimit: invalid redis url, rate limiting disabled", zap.Error(err))
		return New(nil)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		zap.L().Warn("ratelimit: redis unreachable, rate limiting disabled",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
		return New(nil)
	}

	zap.L().Info("ratelimit: connected to redis", zap.String("addr", opts.Addr))
	return New(client)
}

// Enabled reports whether requests are actually counted.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Allow records one request for (scope, identity) and reports whether it is
// within limit for the current window. The identity is hashed before it is
// used as a Redis key.
func (l *Limiter) Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	if !l.Enabled() || limit <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}

	res, err := fixedWindow.Run(ctx, l.client, []string{key(scope, identity)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, eris.Wrap(err, "ratelimit: run window script")
	}
	if len(res) != 2 {
		return Decision{}, eris.Errorf("ratelimit: unexpected script reply of %d values", len(res))
	}

	d := Decision{
		Count:   res[0],
		Limit:   limit,
		Allowed: res[0] <= int64(limit),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(res[1]) * time.Millisecond
	}
	return d, nil
}

// Close releases the Redis connection, if any.
func (l *Limiter) Close() error {
	if !l.Enabled() {
		return nil
	}
	return eris.Wrap(l.client.Close(), "ratelimit: close redis")
}

func key(scope, identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return keyPrefix + scope + ":" + hex.EncodeToString(sum[:8])
}
