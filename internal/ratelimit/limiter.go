// Package ratelimit implements fixed-window per-user request limits.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter is a shared fixed-window counter store, such as Redis.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type ActionConfig struct {
	Limit  int64
	Window time.Duration
}

const ActionRecordPractice = "record_practice"

// DefaultConfig applies to actions without an explicit entry.
var DefaultConfig = ActionConfig{Limit: 100, Window: time.Minute}

type Limiter struct {
	counter Counter
	limits  map[string]ActionConfig
	now     func() time.Time
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
	Limit     int64 `json:"limit"`
}

func NewLimiter(counter Counter, limits map[string]ActionConfig) *Limiter {
	if limits == nil {
		limits = map[string]ActionConfig{}
	}
	return &Limiter{counter: counter, limits: limits, now: time.Now}
}

func Key(clientID, action string) string {
	return fmt.Sprintf("rate:%s:%s", clientID, action)
}

func (l *Limiter) Check(ctx context.Context, clientID, action string) (*CheckResult, error) {
	cfg, ok := l.limits[action]
	if !ok {
		cfg = DefaultConfig
	}

	key := Key(clientID, action)

	count, err := l.counter.Incr(ctx, key, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}

	ttl, err := l.counter.TTL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get TTL: %w", err)
	}
	if ttl < 0 {
		ttl = cfg.Window
	}

	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= cfg.Limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl).Unix(),
		Limit:     cfg.Limit,
	}, nil
}
