package authcore

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/totp"
	"go.uber.org/zap"
)

// SetupMFA describes the setupmfa operation and its observable behavior.
//
// SetupMFA generates a fresh secret, stores it as pending and returns it with
// its provisioning URI. A pending secret from an earlier call is replaced;
// ErrMFAAlreadyEnabled is returned while MFA is enabled.
func (e *Engine) SetupMFA(ctx context.Context, userID string) (*MFASetupResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var key totp.Key
	_, err := e.updateUser(ctx, userID, func(u *credential.User) error {
		if u.MFAEnabled() {
			return ErrMFAAlreadyEnabled
		}
		if key.Secret == "" {
			generated, err := e.totp.GenerateSecret(u.Email)
			if err != nil {
				return err
			}
			key = generated
		}
		return mfaError(u.MFA.BeginSetup(key.Secret))
	})
	if err != nil {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, err, func() map[string]string {
			return map[string]string{"stage": "setup"}
		})
		return nil, err
	}

	e.metricInc(MetricMFASetup)
	e.emitAudit(ctx, auditEventMFASetupRequested, true, userID, nil, nil)
	return &MFASetupResult{Secret: key.Secret, URI: key.URI}, nil
}

// VerifyMFA describes the verifymfa operation and its observable behavior.
//
// VerifyMFA confirms a pending enrollment. code must be valid for the pending
// secret within the configured skew; a non-empty secret must equal the
// pending one. On success the pending secret becomes active. Concurrent
// confirmations of the same enrollment succeed at most once; the losers
// observe ErrMFANotPending.
func (e *Engine) VerifyMFA(ctx context.Context, userID, code, secret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if e.limiter != nil {
		if err := e.limiter.CheckMFA(ctx, userID); err != nil {
			if errors.Is(err, rate.ErrRedisUnavailable) {
				e.logger.Warn("mfa limiter unavailable", zap.Error(err))
			}
			e.metricInc(MetricMFARateLimited)
			e.emitRateLimit(ctx, "mfa", func() map[string]string {
				return map[string]string{"user_id": userID}
			})
			return ErrMFARateLimited
		}
	}

	_, err := e.updateUser(ctx, userID, func(u *credential.User) error {
		if u.MFA.State != credential.MFAPending {
			return ErrMFANotPending
		}
		if secret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(u.MFA.PendingSecret)) != 1 {
			return ErrInvalidMFACode
		}
		ok, step, err := e.totp.Verify(u.MFA.PendingSecret, code, uint(e.config.TOTP.Skew))
		if err != nil || !ok {
			return ErrInvalidMFACode
		}
		if err := u.MFA.Confirm(); err != nil {
			return mfaError(err)
		}
		// The confirming code counts as used for replay tracking.
		u.MFA.LastUsedStep = step
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidMFACode) && e.limiter != nil {
			if limErr := e.limiter.IncrementMFA(ctx, userID); limErr != nil && !errors.Is(limErr, rate.ErrRateLimited) {
				e.logger.Warn("mfa limiter increment failed", zap.Error(limErr))
			}
		}
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, err, func() map[string]string {
			return map[string]string{"stage": "confirm"}
		})
		return err
	}

	if e.limiter != nil {
		if err := e.limiter.ResetMFA(ctx, userID); err != nil {
			e.logger.Warn("mfa limiter reset failed", zap.Error(err))
		}
	}

	e.metricInc(MetricMFAEnabled)
	e.emitAudit(ctx, auditEventMFAEnabled, true, userID, nil, nil)
	return nil
}

// DisableMFA describes the disablemfa operation and its observable behavior.
//
// DisableMFA clears both the active and the pending secret. It succeeds from
// any state.
func (e *Engine) DisableMFA(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	_, err := e.updateUser(ctx, userID, func(u *credential.User) error {
		u.MFA.Disable()
		return nil
	})
	if err != nil {
		e.emitAudit(ctx, auditEventMFAFailure, false, userID, err, func() map[string]string {
			return map[string]string{"stage": "disable"}
		})
		return err
	}

	e.metricInc(MetricMFADisabled)
	e.emitAudit(ctx, auditEventMFADisabled, true, userID, nil, nil)
	return nil
}
