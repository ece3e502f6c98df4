package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time           { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	return Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
		MaxMFAAttempts:        2,
		MFACooldownDuration:   time.Minute,
	}
}

// exerciseLimiter drives the shared contract; advance moves time past the window.
func exerciseLimiter(t *testing.T, l Limiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := l.IncrementLogin(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on budget exhaustion, got %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected CheckLogin limited, got %v", err)
	}

	// Same IP, different identifier: still limited per IP.
	if err := l.CheckLogin(ctx, "bob", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected per-IP limit, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", "10.0.0.2"); err != nil {
		t.Fatalf("unrelated identifier and IP must pass: %v", err)
	}

	if err := l.ResetLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("expected reset to clear limit: %v", err)
	}

	_ = l.IncrementMFA(ctx, "u1")
	if err := l.IncrementMFA(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected MFA limit, got %v", err)
	}
	if err := l.CheckMFA(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected CheckMFA limited, got %v", err)
	}

	advance(2 * time.Minute)
	if err := l.CheckMFA(ctx, "u1"); err != nil {
		t.Fatalf("expected window to expire: %v", err)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	exerciseLimiter(t, NewRedis(rdb, testConfig()), mr.FastForward)

	_ = NewRedis(rdb, testConfig()).IncrementLogin(context.Background(), "dave", "")
	if ttl := mr.TTL("acl:l:dave"); ttl <= 0 {
		t.Fatalf("expected TTL on counter key, got %v", ttl)
	}
}

func TestRedisLimiterWindowIsFixed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, testConfig())
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "erin", "")
	mr.FastForward(40 * time.Second)
	_ = l.IncrementLogin(ctx, "erin", "")

	// The second hit must not extend the window.
	if ttl := mr.TTL("acl:l:erin"); ttl <= 0 || ttl > 20*time.Second {
		t.Fatalf("expected the original window to keep running, got TTL %v", ttl)
	}
}

func TestRedisLimiterArmsCounterWithoutTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, testConfig())

	// A counter left behind without an expiry.
	if err := mr.Set("acl:l:frank", "5"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	if err := l.IncrementLogin(context.Background(), "frank", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("acl:l:frank"); ttl <= 0 {
		t.Fatalf("expected increment to arm a TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(context.Background(), "frank", ""); err != nil {
		t.Fatalf("expected lockout to lapse with the window, got %v", err)
	}
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, testConfig())
	mr.Close()

	if err := l.CheckLogin(context.Background(), "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestRedisLoginAttempts(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedis(rdb, testConfig())
	ctx := context.Background()

	if n, err := l.LoginAttempts(ctx, "nobody"); err != nil || n != 0 {
		t.Fatalf("expected 0 attempts, got %d (%v)", n, err)
	}
	_ = l.IncrementLogin(ctx, "carol", "")
	if n, _ := l.LoginAttempts(ctx, "carol"); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}

func TestLocalLimiter(t *testing.T) {
	clock := &manualClock{t: time.Unix(1_700_000_000, 0)}
	exerciseLimiter(t, NewLocal(testConfig(), clock.Now), clock.Advance)
}

func TestLimitsDisabledWhenZero(t *testing.T) {
	l := NewLocal(Config{}, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := l.IncrementLogin(ctx, "x", ""); err != nil {
			t.Fatalf("zero budget must disable limiting: %v", err)
		}
	}
	if err := l.CheckLogin(ctx, "x", ""); err != nil {
		t.Fatalf("zero budget must disable limiting: %v", err)
	}
}
