package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal/rate"
	"go.uber.org/zap"
)

var errRehashSuperseded = errors.New("password changed during rehash")

// Login describes the login operation and its observable behavior.
//
// Login returns ErrInvalidCredentials for an unknown email and for a wrong
// password alike, ErrMFARequired when the account has MFA enabled and no code
// was supplied, ErrInvalidMFACode for a wrong code and ErrLoginRateLimited
// once the attempt budget is spent. Store outages surface as
// ErrStoreUnavailable and are never reported as bad credentials.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	identifier := credential.NormalizeEmail(req.Email)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRedisUnavailable) {
				e.logger.Warn("login limiter unavailable", zap.Error(err))
			}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrLoginRateLimited
		}
	}

	if identifier == "" || req.Password == "" {
		return nil, e.loginFailure(ctx, identifier, ip, "", "empty_credentials", ErrInvalidCredentials)
	}

	user, err := e.store.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			// Equalize timing with the wrong-password path.
			_, _ = e.hasher.Verify(req.Password, e.dummyHash)
			return nil, e.loginFailure(ctx, identifier, ip, "", "user_not_found", ErrInvalidCredentials)
		}
		storeErr := e.storeError("login_lookup", err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", storeErr, nil)
		return nil, storeErr
	}

	ok, err := e.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		e.logger.Warn("stored password hash rejected by hasher", zap.String("user_id", user.ID), zap.Error(err))
	}
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, identifier, ip, user.ID, "password_mismatch", ErrInvalidCredentials)
	}

	if user.MFAEnabled() {
		if req.MFACode == "" {
			e.metricInc(MetricMFARequired)
			e.emitAudit(ctx, auditEventMFARequired, false, user.ID, ErrMFARequired, nil)
			return nil, ErrMFARequired
		}
		if err := e.checkLoginCode(ctx, user, req.MFACode); err != nil {
			if errors.Is(err, ErrInvalidMFACode) {
				e.metricInc(MetricMFAFailure)
				return nil, e.loginFailure(ctx, identifier, ip, user.ID, "mfa_code", ErrInvalidMFACode)
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, err, nil)
			return nil, err
		}
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, req.Password)
	}
	req.Password = ""

	result, err := e.issueSession(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, err, func() map[string]string {
			return map[string]string{"reason": "issue_token"}
		})
		return nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
			e.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)
	return result, nil
}

// loginFailure records a failed attempt against the throttle and returns err.
func (e *Engine) loginFailure(ctx context.Context, identifier, ip, userID, reason string, err error) error {
	if e.limiter != nil && identifier != "" {
		if limErr := e.limiter.IncrementLogin(ctx, identifier, ip); limErr != nil && !errors.Is(limErr, rate.ErrRateLimited) {
			e.logger.Warn("login limiter increment failed", zap.Error(limErr))
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, err, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return err
}

// checkLoginCode verifies code against the active secret. With replay
// protection on, the accepted step must be newer than the last one used and
// is recorded through a CAS update.
func (e *Engine) checkLoginCode(ctx context.Context, user *credential.User, code string) error {
	ok, step, err := e.totp.Verify(user.MFA.Secret, code, uint(e.config.TOTP.Skew))
	if err != nil {
		e.logger.Warn("stored mfa secret rejected", zap.String("user_id", user.ID), zap.Error(err))
		return ErrInvalidMFACode
	}
	if !ok {
		return ErrInvalidMFACode
	}
	if !e.config.TOTP.EnforceReplayProtection {
		return nil
	}

	_, err = e.updateUser(ctx, user.ID, func(u *credential.User) error {
		if !u.MFAEnabled() || u.MFA.Secret != user.MFA.Secret {
			return ErrInvalidMFACode
		}
		if step <= u.MFA.LastUsedStep {
			e.metricInc(MetricMFAReplayAttempt)
			e.emitAudit(ctx, auditEventMFAReplay, false, u.ID, ErrInvalidMFACode, nil)
			return ErrInvalidMFACode
		}
		u.MFA.LastUsedStep = step
		return nil
	})
	return err
}

// upgradePasswordHash rehashes with current parameters. It is best-effort and
// never fails the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *credential.User, plaintext string) {
	needsUpgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		e.logger.Warn("password hash upgrade generation failed", zap.String("user_id", user.ID))
		return
	}

	previous := user.PasswordHash
	_, err = e.updateUser(ctx, user.ID, func(u *credential.User) error {
		if u.PasswordHash != previous {
			return errRehashSuperseded
		}
		u.PasswordHash = upgraded
		return nil
	})
	if err != nil {
		if !errors.Is(err, errRehashSuperseded) {
			e.logger.Warn("password hash upgrade update failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		return
	}
	e.metricInc(MetricPasswordRehash)
}
