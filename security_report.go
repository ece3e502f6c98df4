package authcore

import (
	"time"

	"github.com/MrEthical07/authcore/internal/rate"
)

// SecurityReport is a snapshot of the security-relevant settings the engine
// was built with.
type SecurityReport struct {
	ProductionMode          bool
	SigningAlgorithm        string
	SessionTTL              time.Duration
	PasswordAlgorithm       string
	Argon2                  PasswordConfigReport
	BcryptCost              int
	PasswordMinLength       int
	StrictEmail             bool
	TOTPReplayProtection    bool
	TOTPSkew                int
	LoginRateLimitingActive bool
	MFARateLimitingActive   bool
	SharedRateLimiting      bool
	ResetTokenTTL           time.Duration
	ResetDeliveryConfigured bool
	AuditEnabled            bool
	LintHighFindings        []string
}

// PasswordConfigReport mirrors the Argon2id parameters in effect.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the engine's security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	algorithm := e.config.Password.Algorithm
	if algorithm == "" {
		algorithm = PasswordArgon2id
	}
	_, shared := e.limiter.(*rate.Redis)

	return SecurityReport{
		ProductionMode:    e.config.Security.ProductionMode,
		SigningAlgorithm:  e.config.JWT.SigningMethod,
		SessionTTL:        e.config.JWT.SessionTTL,
		PasswordAlgorithm: algorithm,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		BcryptCost:              e.config.Password.BcryptCost,
		PasswordMinLength:       e.config.Password.MinLength,
		StrictEmail:             e.config.Registration.StrictEmail,
		TOTPReplayProtection:    e.config.TOTP.EnforceReplayProtection,
		TOTPSkew:                e.config.TOTP.Skew,
		LoginRateLimitingActive: e.config.Security.MaxLoginAttempts > 0,
		MFARateLimitingActive:   e.config.TOTP.MaxVerifyAttempts > 0,
		SharedRateLimiting:      shared,
		ResetTokenTTL:           e.config.PasswordReset.TTL,
		ResetDeliveryConfigured: e.notifier != nil,
		AuditEnabled:            e.config.Audit.Enabled,
		LintHighFindings:        e.config.Lint().BySeverity(LintHigh).Codes(),
	}
}
