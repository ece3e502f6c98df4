package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/credential"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/totp"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxUpdateRetries bounds the read-transition-CAS loop against concurrent writers.
const maxUpdateRetries = 4

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	store      credential.Store
	hasher     password.Hasher
	dummyHash  string
	jwtManager *jwt.Manager
	totp       *totp.Engine
	limiter    rate.Limiter
	notifier   Notifier
	logger     *zap.Logger
	clock      Clock
	validate   *validator.Validate
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close drains and stops the audit dispatcher. It does not close the store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped returns the number of audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.hasher != nil && e.jwtManager != nil
}

// VerifyToken describes the verifytoken operation and its observable behavior.
//
// VerifyToken returns ErrTokenExpired for a correctly signed token past its
// expiry and ErrTokenInvalid for anything else it cannot accept. It performs
// no store access and takes no locks.
func (e *Engine) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}
	claims, err := e.jwtManager.Verify(token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			e.metricInc(MetricTokenExpired)
			return nil, ErrTokenExpired
		}
		e.metricInc(MetricTokenVerifyFailure)
		e.emitAudit(ctx, auditEventTokenInvalid, false, "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricTokenVerifySuccess)
	return claims, nil
}

// GetUser returns the public view of a stored account.
func (e *Engine) GetUser(ctx context.Context, userID string) (*UserInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.storeError("get_user", err)
	}
	return &UserInfo{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		MFAState:  user.MFA.State,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

func (e *Engine) issueSession(user *credential.User) (*AuthResult, error) {
	token, expiresAt, err := e.jwtManager.Issue(user.ID, user.Email, user.Name, e.config.JWT.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		MFAEnabled: user.MFAEnabled(),
		Token:      token,
		ExpiresAt:  expiresAt,
	}, nil
}

// updateUser re-reads the user, applies fn and compare-and-swaps the result.
// On a version conflict the whole read-apply cycle repeats so fn always sees
// the latest committed state. Errors returned by fn abort the loop unchanged.
func (e *Engine) updateUser(ctx context.Context, userID string, fn func(*credential.User) error) (*credential.User, error) {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		user, err := e.store.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, credential.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, e.storeError("update_read", err)
		}

		if err := fn(user); err != nil {
			return nil, err
		}
		user.UpdatedAt = e.now()

		err = e.store.Update(ctx, user)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, credential.ErrVersionConflict):
			e.metricInc(MetricStoreConflictRetry)
			continue
		case errors.Is(err, credential.ErrNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, e.storeError("update_write", err)
		}
	}
	return nil, fmt.Errorf("%w: update retries exhausted", ErrStoreUnavailable)
}

// storeError maps a storage failure to ErrStoreUnavailable and logs the cause.
func (e *Engine) storeError(op string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("credential store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func mfaError(err error) error {
	switch {
	case errors.Is(err, credential.ErrMFAAlreadyEnabled):
		return ErrMFAAlreadyEnabled
	case errors.Is(err, credential.ErrMFANotPending):
		return ErrMFANotPending
	default:
		return err
	}
}
