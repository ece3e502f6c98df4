package authcore

import (
	"strings"
	"testing"
	"time"
)

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigHasNoHighFindingsBesidesKey(t *testing.T) {
	cfg := testConfig()
	high := cfg.Lint().BySeverity(LintHigh)
	if len(high) != 0 {
		t.Fatalf("expected no HIGH findings for the test config, got %v", high.Codes())
	}

	bare := defaultConfig()
	if !containsCode(bare.Lint().Codes(), "signing_secret_short") {
		t.Error("expected signing_secret_short without a key")
	}
}

func TestLint_HighSecurityConfigMinimalWarnings(t *testing.T) {
	cfg := HighSecurityConfig()
	cfg.JWT.PrivateKey = append([]byte(nil), testSigningKey...)
	codes := cfg.Lint().Codes()

	unwanted := []string{
		"signing_secret_short",
		"session_ttl_long",
		"leeway_large",
		"login_throttle_disabled",
		"ip_throttle_disabled",
		"audit_disabled",
		"argon2_memory_low",
		"password_min_length_unset",
		"totp_replay_unprotected",
		"reset_ttl_long",
	}
	for _, code := range unwanted {
		if containsCode(codes, code) {
			t.Errorf("HighSecurityConfig should not produce warning %q", code)
		}
	}
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
		sev    LintSeverity
	}{
		{"large leeway", func(c *Config) { c.JWT.Leeway = 90 * time.Second }, "leeway_large", LintWarn},
		{"long session", func(c *Config) { c.JWT.SessionTTL = 48 * time.Hour }, "session_ttl_long", LintWarn},
		{"no login throttle", func(c *Config) { c.Security.MaxLoginAttempts = 0 }, "login_throttle_disabled", LintHigh},
		{"no ip throttle", func(c *Config) { c.Security.EnableIPThrottle = false }, "ip_throttle_disabled", LintInfo},
		{"bcrypt cost", func(c *Config) { c.Password.Algorithm = PasswordBcrypt; c.Password.BcryptCost = 10 }, "bcrypt_cost_low", LintWarn},
		{"bcrypt truncation", func(c *Config) { c.Password.Algorithm = PasswordBcrypt }, "bcrypt_truncation", LintInfo},
		{"argon2 memory", func(c *Config) { c.Password.Memory = 8 * 1024 }, "argon2_memory_low", LintWarn},
		{"wide skew", func(c *Config) { c.TOTP.Skew = 4 }, "totp_skew_wide", LintWarn},
		{"mfa throttle", func(c *Config) { c.TOTP.MaxVerifyAttempts = 0 }, "mfa_throttle_disabled", LintWarn},
		{"long reset", func(c *Config) { c.PasswordReset.TTL = 2 * time.Hour }, "reset_ttl_long", LintWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWT.PrivateKey = append([]byte(nil), testSigningKey...)
			tt.mutate(&cfg)

			var found *LintWarning
			for _, w := range cfg.Lint() {
				if w.Code == tt.code {
					w := w
					found = &w
				}
			}
			if found == nil {
				t.Fatalf("expected %s finding", tt.code)
			}
			if found.Severity != tt.sev {
				t.Fatalf("expected severity %s, got %s", tt.sev, found.Severity)
			}
		})
	}
}

func TestLint_AsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.MaxLoginAttempts = 0

	err := cfg.Lint().AsError(LintHigh)
	if err == nil {
		t.Fatal("expected an error for HIGH findings")
	}
	if !strings.Contains(err.Error(), "[HIGH] login_throttle_disabled") {
		t.Fatalf("unexpected error text: %v", err)
	}

	cfg.Security.MaxLoginAttempts = 5
	cfg.JWT.PrivateKey = append([]byte(nil), testSigningKey...)
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestLintSeverityString(t *testing.T) {
	if LintInfo.String() != "INFO" || LintWarn.String() != "WARN" || LintHigh.String() != "HIGH" {
		t.Fatal("unexpected severity names")
	}
	if LintSeverity(9).String() != "LintSeverity(9)" {
		t.Fatalf("unexpected fallback: %s", LintSeverity(9))
	}
}
