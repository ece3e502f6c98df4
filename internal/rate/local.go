package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLocalKeys bounds memory; full buckets are pruned past it.
const maxLocalKeys = 100_000

// Local is an in-process [Limiter] built on token buckets. Each key gets a
// bucket of MaxAttempts tokens refilled evenly over the cooldown, so a burst
// of failures is blocked until the window has partially elapsed.
type Local struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewLocal returns a Local limiter. A nil now uses time.Now.
func NewLocal(cfg Config, now func() time.Time) *Local {
	if now == nil {
		now = time.Now
	}
	return &Local{
		config:  cfg,
		now:     now,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Local) bucket(key string, max int, cooldown time.Duration) *rate.Limiter {
	b, ok := l.buckets[key]
	if ok {
		return b
	}
	if len(l.buckets) >= maxLocalKeys {
		l.prune(max)
	}
	b = rate.NewLimiter(rate.Every(cooldown/time.Duration(max)), max)
	l.buckets[key] = b
	return b
}

func (l *Local) prune(max int) {
	now := l.now()
	for k, b := range l.buckets {
		if b.TokensAt(now) >= float64(max) {
			delete(l.buckets, k)
		}
	}
}

func (l *Local) check(key string, max int, cooldown time.Duration) error {
	if max <= 0 || cooldown <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return nil
	}
	if b.TokensAt(l.now()) < 1 {
		return ErrRateLimited
	}
	return nil
}

func (l *Local) consume(key string, max int, cooldown time.Duration) error {
	if max <= 0 || cooldown <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(key, max, cooldown)
	now := l.now()
	if !b.AllowN(now, 1) || b.TokensAt(now) < 1 {
		return ErrRateLimited
	}
	return nil
}

func (l *Local) reset(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		delete(l.buckets, k)
	}
}

func (l *Local) CheckLogin(_ context.Context, identifier, ip string) error {
	if err := l.check("l:"+identifier, l.config.MaxLoginAttempts, l.config.LoginCooldownDuration); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check("li:"+ip, l.config.MaxLoginAttempts, l.config.LoginCooldownDuration)
	}
	return nil
}

func (l *Local) IncrementLogin(_ context.Context, identifier, ip string) error {
	err := l.consume("l:"+identifier, l.config.MaxLoginAttempts, l.config.LoginCooldownDuration)
	if l.config.EnableIPThrottle && ip != "" {
		if ipErr := l.consume("li:"+ip, l.config.MaxLoginAttempts, l.config.LoginCooldownDuration); ipErr != nil {
			err = ipErr
		}
	}
	return err
}

func (l *Local) ResetLogin(_ context.Context, identifier, ip string) error {
	keys := []string{"l:" + identifier}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, "li:"+ip)
	}
	l.reset(keys...)
	return nil
}

func (l *Local) CheckMFA(_ context.Context, userID string) error {
	return l.check("m:"+userID, l.config.MaxMFAAttempts, l.config.MFACooldownDuration)
}

func (l *Local) IncrementMFA(_ context.Context, userID string) error {
	return l.consume("m:"+userID, l.config.MaxMFAAttempts, l.config.MFACooldownDuration)
}

func (l *Local) ResetMFA(_ context.Context, userID string) error {
	l.reset("m:" + userID)
	return nil
}

var _ Limiter = (*Local)(nil)
