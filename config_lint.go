package authcore

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	// LintInfo marks a choice worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a weakened but workable setting.
	LintWarn
	// LintHigh marks a setting that should block a production deploy.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is a single advisory finding from [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every finding at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint describes the lint operation and its observable behavior.
//
// Lint reports settings that pass [Config.Validate] but weaken security.
// It never fails; callers decide which severity blocks startup.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		add("signing_secret_short", LintHigh, "hs256 secret shorter than 32 bytes")
	}
	if c.JWT.SessionTTL > 24*time.Hour {
		add("session_ttl_long", LintWarn, "session tokens cannot be revoked; TTL above 24h extends exposure")
	}
	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "JWT leeway above 30s")
	}
	if c.Security.MaxLoginAttempts == 0 {
		add("login_throttle_disabled", LintHigh, "login attempts are not throttled")
	} else if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "login throttling is per-identifier only")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}

	switch c.Password.Algorithm {
	case PasswordBcrypt:
		if c.Password.BcryptCost != 0 && c.Password.BcryptCost < 12 {
			add("bcrypt_cost_low", LintWarn, "bcrypt cost below 12")
		}
		add("bcrypt_truncation", LintInfo, "bcrypt rejects passwords longer than 72 bytes")
	default:
		if c.Password.Memory < 64*1024 {
			add("argon2_memory_low", LintWarn, "argon2id memory below 64 MiB")
		}
	}
	if c.Password.MinLength < 8 {
		add("password_min_length_unset", LintInfo, "password minimum length below 8")
	}

	if !c.TOTP.EnforceReplayProtection {
		add("totp_replay_unprotected", LintInfo, "a TOTP code may be reused within its window")
	}
	if c.TOTP.Skew > 2 {
		add("totp_skew_wide", LintWarn, "TOTP skew above 2 steps")
	}
	if c.TOTP.MaxVerifyAttempts == 0 {
		add("mfa_throttle_disabled", LintWarn, "MFA enrollment codes are not throttled")
	}
	if c.PasswordReset.TTL > time.Hour {
		add("reset_ttl_long", LintWarn, "password reset tokens live longer than 1h")
	}

	return ws
}
