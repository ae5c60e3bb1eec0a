// Package ratelimit throttles login attempts with fixed-window counters.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config defines the rate limit rule.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig returns the default login throttling rule.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 10,
		Window:      15 * time.Minute,
	}
}

func key(subject string) string {
	return fmt.Sprintf("rate:login:%s", subject)
}

// RedisLimiter counts attempts in Redis so the limit holds across server
// instances.
type RedisLimiter struct {
	rdb    *redis.Client
	config Config
}

func NewRedisLimiter(rdb *redis.Client, config Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, config: config}
}

// Allow reports whether subject may attempt another login.
func (rl *RedisLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	count, err := rl.rdb.Get(ctx, key(subject)).Int()
	if err == redis.Nil {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return count < rl.config.MaxAttempts, nil
}

// Record counts one failed attempt.
func (rl *RedisLimiter) Record(ctx context.Context, subject string) error {
	k := key(subject)
	count, err := rl.rdb.Incr(ctx, k).Result()
	if err != nil {
		return err
	}
	// Start the window on the first attempt
	if count == 1 {
		return rl.rdb.Expire(ctx, k, rl.config.Window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login.
func (rl *RedisLimiter) Reset(ctx context.Context, subject string) error {
	return rl.rdb.Del(ctx, key(subject)).Err()
}

type window struct {
	count   int
	expires time.Time
}

// MemoryLimiter is the single-process limiter used when Redis is not
// configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	config  Config
	windows map[string]window
	now     func() time.Time
}

func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{config: config, windows: make(map[string]window), now: time.Now}
}

func (ml *MemoryLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	w, ok := ml.windows[key(subject)]
	if !ok || !ml.now().Before(w.expires) {
		return true, nil
	}
	return w.count < ml.config.MaxAttempts, nil
}

func (ml *MemoryLimiter) Record(ctx context.Context, subject string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	k := key(subject)
	now := ml.now()
	w, ok := ml.windows[k]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(ml.config.Window)}
	}
	w.count++
	ml.windows[k] = w
	return nil
}

func (ml *MemoryLimiter) Reset(ctx context.Context, subject string) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.windows, key(subject))
	return nil
}
