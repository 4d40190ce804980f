package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memCounter struct {
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) TTL(context.Context, string) (time.Duration, error) {
	return 30 * time.Second, nil
}

func TestLimiterBlocksAfterLimit(t *testing.T) {
	c := &memCounter{counts: map[string]int64{}}
	l := NewLimiter(c, map[string]ActionConfig{ActionRecordPractice: {Limit: 2, Window: time.Minute}})
	fixed := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := l.Check(ctx, "7", ActionRecordPractice)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed || res.Remaining != int64(2-i) {
			t.Fatalf("check %d: got %+v", i, res)
		}
	}
	res, err := l.Check(ctx, "7", ActionRecordPractice)
	if err != nil {
		t.Fatalf("check 3: %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Fatalf("expected block, got %+v", res)
	}
	if res.ResetAt != fixed.Add(30*time.Second).Unix() {
		t.Fatalf("reset_at: got=%d", res.ResetAt)
	}

	// Other users have their own window.
	if res, _ := l.Check(ctx, "8", ActionRecordPractice); !res.Allowed {
		t.Fatalf("other client blocked: %+v", res)
	}
}

func TestLimiterDefaultAndErrors(t *testing.T) {
	c := &memCounter{counts: map[string]int64{}}
	l := NewLimiter(c, nil)
	res, err := l.Check(context.Background(), "1", "unknown")
	if err != nil || res.Limit != DefaultConfig.Limit {
		t.Fatalf("default config: res=%+v err=%v", res, err)
	}

	c.err = errors.New("redis down")
	if _, err := l.Check(context.Background(), "1", "unknown"); err == nil {
		t.Fatalf("expected counter error")
	}
}
