package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

// SecretSize is the raw secret length in bytes (160 bits).
const SecretSize = 20

var (
	// ErrInvalidSecret is returned when a secret is empty or not base32.
	ErrInvalidSecret = errors.New("invalid totp secret")
	// ErrInvalidConfig is returned by New for unsupported parameters.
	ErrInvalidConfig = errors.New("invalid totp config")
)

// Config controls code generation. Zero values select the common
// authenticator-app defaults: SHA1, 6 digits, 30 second period.
type Config struct {
	Issuer    string
	Period    uint
	Digits    int
	Algorithm string
}

// Key is a freshly generated secret and its provisioning URI.
type Key struct {
	Secret string
	URI    string
}

// Engine generates secrets and verifies codes against an injected clock.
type Engine struct {
	issuer    string
	period    uint
	digits    otp.Digits
	algorithm otp.Algorithm
	now       func() time.Time
}

// New validates cfg and returns an Engine. A nil now uses time.Now.
func New(cfg Config, now func() time.Time) (*Engine, error) {
	if cfg.Issuer == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("issuer must not be empty"))
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}

	var digits otp.Digits
	switch cfg.Digits {
	case 0, 6:
		digits = otp.DigitsSix
	case 8:
		digits = otp.DigitsEight
	default:
		return nil, errors.Join(ErrInvalidConfig, errors.New("digits must be 6 or 8"))
	}

	algorithm, err := parseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	if now == nil {
		now = time.Now
	}

	return &Engine{
		issuer:    cfg.Issuer,
		period:    cfg.Period,
		digits:    digits,
		algorithm: algorithm,
		now:       now,
	}, nil
}

func parseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(name) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, errors.Join(ErrInvalidConfig, errors.New("unsupported totp algorithm"))
	}
}

// GenerateSecret returns a random base32 secret and an otpauth:// URI
// labelled "<issuer>:<account>".
func (e *Engine) GenerateSecret(account string) (Key, error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account,
		Period:      e.period,
		SecretSize:  SecretSize,
		Digits:      e.digits,
		Algorithm:   e.algorithm,
		Rand:        rand.Reader,
	})
	if err != nil {
		return Key{}, err
	}
	return Key{Secret: key.Secret(), URI: key.URL()}, nil
}

// Step returns the time step containing t.
func (e *Engine) Step(t time.Time) int64 {
	return t.Unix() / int64(e.period)
}

// CodeAt returns the code for secret at t.
func (e *Engine) CodeAt(secret string, t time.Time) (string, error) {
	code, err := pqtotp.GenerateCodeCustom(secret, t, pqtotp.ValidateOpts{
		Period:    e.period,
		Digits:    e.digits,
		Algorithm: e.algorithm,
	})
	if err != nil {
		return "", errors.Join(ErrInvalidSecret, err)
	}
	return code, nil
}

// Verify checks code against the current step and window steps either side.
// It returns the matching step on success. A malformed code is (false, 0, nil);
// a malformed secret is an error.
func (e *Engine) Verify(secret, code string, window uint) (bool, int64, error) {
	if strings.TrimSpace(secret) == "" {
		return false, 0, ErrInvalidSecret
	}

	code = strings.TrimSpace(code)
	if len(code) != e.digits.Length() || !isNumeric(code) {
		return false, 0, nil
	}

	base := e.Step(e.now())
	w := int64(window)
	matched := int64(-1)
	for offset := -w; offset <= w; offset++ {
		step := base + offset
		if step < 0 {
			continue
		}
		want, err := e.CodeAt(secret, time.Unix(step*int64(e.period), 0))
		if err != nil {
			return false, 0, err
		}
		// Keep scanning after a hit so timing does not leak the offset.
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 && matched < 0 {
			matched = step
		}
	}

	if matched < 0 {
		return false, 0, nil
	}
	return true, matched, nil
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
