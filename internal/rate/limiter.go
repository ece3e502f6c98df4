package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxMFAAttempts        int
	MFACooldownDuration   time.Duration
	// Prefix namespaces every key; "acl" when empty.
	Prefix string
}

// Limiter is the failure-counting contract used by the engine. Check
// reports whether another attempt is allowed, Increment records a failure
// and Reset clears the counters after a success.
type Limiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
	CheckMFA(ctx context.Context, userID string) error
	IncrementMFA(ctx context.Context, userID string) error
	ResetMFA(ctx context.Context, userID string) error
}

// Redis enforces per-identifier and per-IP limits with fixed-window
// counters shared by every engine instance pointing at the same Redis.
type Redis struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a [Redis] limiter backed by the given client.
func NewRedis(redisClient redis.UniversalClient, cfg Config) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "acl"
	}
	return &Redis{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Redis) loginUserKey(identifier string) string { return l.config.Prefix + ":l:" + identifier }
func (l *Redis) loginIPKey(ip string) string           { return l.config.Prefix + ":li:" + ip }
func (l *Redis) mfaKey(userID string) string           { return l.config.Prefix + ":m:" + userID }

// CheckLogin checks whether the identifier+IP pair is within
// the login attempt budget. Returns an error if rate-limited.
func (l *Redis) CheckLogin(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, l.loginUserKey(identifier), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt for the identifier+IP pair.
func (l *Redis) IncrementLogin(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.loginUserKey(identifier), l.config.LoginCooldownDuration)
	if err != nil {
		return err
	}
	exceeded := count >= int64(l.config.MaxLoginAttempts)

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.loginIPKey(ip), l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		exceeded = exceeded || count >= int64(l.config.MaxLoginAttempts)
	}

	if exceeded {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Redis) ResetLogin(ctx context.Context, identifier, ip string) error {
	keys := []string{l.loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// CheckMFA checks the per-user budget for MFA enrollment codes.
func (l *Redis) CheckMFA(ctx context.Context, userID string) error {
	return l.checkCounter(ctx, l.mfaKey(userID), l.config.MaxMFAAttempts)
}

// IncrementMFA records a wrong MFA enrollment code.
func (l *Redis) IncrementMFA(ctx context.Context, userID string) error {
	count, err := l.incrementWithTTL(ctx, l.mfaKey(userID), l.config.MFACooldownDuration)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxMFAAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetMFA clears the MFA counter after a successful confirmation.
func (l *Redis) ResetMFA(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.mfaKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current attempt counter for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Redis) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginUserKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Redis) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	if maxAttempts <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

// incrementWithTTL bumps the counter and arms its window in one MULTI/EXEC.
// EXPIRE NX only sets a TTL on a key that has none, so the window stays
// fixed and a counter can never be left without an expiry. Needs Redis 7.
func (l *Redis) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

var _ Limiter = (*Redis)(nil)
