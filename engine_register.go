package authcore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/password"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Register describes the register operation and its observable behavior.
//
// Register returns ErrValidation when a field is empty, ErrPasswordPolicy when
// the password violates the configured length policy and ErrDuplicateEmail
// when the normalized email is taken. On success the account exists with MFA
// disabled and a session token is returned.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if err := e.validateRegistration(req); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "validation"}
		})
		return nil, err
	}

	hash, err := e.hashPassword(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "hash"}
		})
		return nil, err
	}

	now := e.now()
	user := &credential.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.store.Insert(ctx, user); err != nil {
		if errors.Is(err, credential.ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", ErrDuplicateEmail, nil)
			return nil, ErrDuplicateEmail
		}
		storeErr := e.storeError("register_insert", err)
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", storeErr, nil)
		return nil, storeErr
	}

	result, err := e.issueSession(user)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, user.ID, err, func() map[string]string {
			return map[string]string{"reason": "issue_token"}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, nil)
	return result, nil
}

func (e *Engine) validateRegistration(req RegisterRequest) error {
	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			sort.Strings(fields)
			return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if e.config.Registration.StrictEmail {
		if err := e.validate.Var(req.Email, "email"); err != nil {
			return fmt.Errorf("%w: malformed email", ErrValidation)
		}
	}

	return e.checkPasswordPolicy(req.Password)
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if plaintext == "" {
		return fmt.Errorf("%w: missing password", ErrValidation)
	}
	if minLen := e.config.Password.MinLength; minLen > 0 && utf8.RuneCountInString(plaintext) < minLen {
		return fmt.Errorf("%w: password shorter than %d characters", ErrPasswordPolicy, minLen)
	}
	return nil
}

// hashPassword maps hasher input errors onto the policy sentinel.
func (e *Engine) hashPassword(plaintext string) (string, error) {
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", ErrPasswordPolicy)
		}
		if errors.Is(err, password.ErrEmptyPassword) {
			return "", fmt.Errorf("%w: missing password", ErrValidation)
		}
		return "", err
	}
	return hash, nil
}
