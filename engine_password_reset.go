package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal"
	"go.uber.org/zap"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset returns nil whether or not the email is registered. For
// a registered email it stores a fresh single-use token digest, superseding
// any earlier token, and hands the raw token to the configured Notifier. The
// token is never returned to the caller.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	identifier := credential.NormalizeEmail(email)
	if identifier == "" {
		return fmt.Errorf("%w: missing email", ErrValidation)
	}
	e.metricInc(MetricPasswordResetRequest)

	user, err := e.store.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, true, "", nil, func() map[string]string {
				return map[string]string{"identifier": identifier, "outcome": "unknown_email"}
			})
			return nil
		}
		return e.storeError("reset_lookup", err)
	}

	token, digest, err := internal.NewResetToken()
	if err != nil {
		return err
	}
	expiresAt := e.now().Add(e.config.PasswordReset.TTL)

	if _, err := e.updateUser(ctx, user.ID, func(u *credential.User) error {
		u.ResetTokenHash = digest
		u.ResetExpiresAt = expiresAt
		return nil
	}); err != nil {
		return err
	}

	if e.notifier != nil {
		if err := e.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
			e.logger.Warn("password reset notification failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, nil, func() map[string]string {
		return map[string]string{"identifier": identifier, "outcome": "issued"}
	})
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword returns ErrInvalidToken unless token matches an outstanding,
// unexpired reset for some user. On success the new password is hashed and
// stored and the token is cleared, so a token succeeds at most once even
// under concurrent use.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	digest, err := internal.HashResetToken(token)
	if err != nil {
		return e.resetRejected(ctx, "", "malformed", ErrInvalidToken)
	}

	user, err := e.store.FindByResetToken(ctx, digest)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return e.resetRejected(ctx, "", "unknown_token", ErrInvalidToken)
		}
		return e.storeError("reset_lookup", err)
	}
	if !user.HasResetToken(e.now()) {
		return e.resetRejected(ctx, user.ID, "expired", ErrInvalidToken)
	}

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return e.resetRejected(ctx, user.ID, "password_policy", err)
	}
	hash, err := e.hashPassword(newPassword)
	if err != nil {
		return e.resetRejected(ctx, user.ID, "hash", err)
	}

	_, err = e.updateUser(ctx, user.ID, func(u *credential.User) error {
		if subtle.ConstantTimeCompare([]byte(u.ResetTokenHash), []byte(digest)) != 1 || !u.HasResetToken(e.now()) {
			return ErrInvalidToken
		}
		u.PasswordHash = hash
		u.ClearResetToken()
		return nil
	})
	if err != nil {
		return e.resetRejected(ctx, user.ID, "consume", err)
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, nil, nil)
	return nil
}

func (e *Engine) resetRejected(ctx context.Context, userID, reason string, err error) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetRejected, false, userID, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
