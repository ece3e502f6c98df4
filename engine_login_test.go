package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/password"
)

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	cfg := testConfig()
	store := newSpyStore()
	base, err := newHasher(cfg.Password)
	if err != nil {
		t.Fatalf("newHasher failed: %v", err)
	}
	hasher := &countingHasher{Hasher: base}

	engine, err := New().WithConfig(cfg).WithStore(store).WithHasher(hasher).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, wrongPw := engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	before := hasher.verifies.Load()
	_, unknown := engine.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "wrong-password"})

	if !errors.Is(wrongPw, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("error text differs: %q vs %q", wrongPw, unknown)
	}
	if hasher.verifies.Load() != before+1 {
		t.Fatal("unknown email must still run one password verification")
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	h := newHarness(t, testConfig())
	for _, req := range []LoginRequest{
		{Email: "", Password: "x"},
		{Email: "a@example.com", Password: ""},
	} {
		if _, err := h.engine.Login(context.Background(), req); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %+v, got %v", req, err)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = 3 * time.Minute
	h := newHarness(t, cfg)
	h.register(t, "A", "a@example.com", "correct-password-123")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The budget is spent: even the right password is refused.
	if _, err := h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "correct-password-123"}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	// Identifiers are normalized before throttling.
	if _, err := h.engine.Login(ctx, LoginRequest{Email: "A@EXAMPLE.COM", Password: "correct-password-123"}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited for differently cased email, got %v", err)
	}
	// Other accounts are unaffected.
	if _, err := h.engine.Login(ctx, LoginRequest{Email: "b@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for other account, got %v", err)
	}

	h.clock.Advance(time.Minute)
	if _, err := h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("expected login after refill, got %v", err)
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginRateLimited] != 2 || snap.Counters[MetricRateLimitHit] != 2 {
		t.Fatalf("unexpected rate limit metrics: %+v", snap.Counters)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	h := newHarness(t, cfg)
	h.register(t, "A", "a@example.com", "correct-password-123")
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		if _, err := h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("round %d: expected ErrInvalidCredentials, got %v", round, err)
		}
		if _, err := h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "correct-password-123"}); err != nil {
			t.Fatalf("round %d: expected success, got %v", round, err)
		}
	}
}

func TestLoginIPThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.EnableIPThrottle = true
	h := newHarness(t, cfg)
	h.register(t, "C", "c@example.com", "correct-password-123")

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	_, _ = h.engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "x"})
	_, _ = h.engine.Login(ctx, LoginRequest{Email: "b@example.com", Password: "x"})

	if _, err := h.engine.Login(ctx, LoginRequest{Email: "c@example.com", Password: "correct-password-123"}); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
	other := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := h.engine.Login(other, LoginRequest{Email: "c@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("expected login from another IP, got %v", err)
	}
}

func TestLoginRehashesWeakerHash(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	ctx := context.Background()

	weak, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	weakHash, err := weak.Hash("correct-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	now := h.clock.Now()
	if err := h.store.Store.Insert(ctx, &credential.User{
		ID:           "legacy",
		Name:         "Legacy",
		Email:        "legacy@example.com",
		PasswordHash: weakHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := h.engine.Login(ctx, LoginRequest{Email: "legacy@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	stored, _ := h.store.Store.FindByID(ctx, "legacy")
	if stored.PasswordHash == weakHash {
		t.Fatal("expected hash to be upgraded")
	}
	if !strings.Contains(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("unexpected upgraded hash format: %q", stored.PasswordHash)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPasswordRehash]; got != 1 {
		t.Fatalf("expected one rehash, got %d", got)
	}

	if _, err := h.engine.Login(ctx, LoginRequest{Email: "legacy@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("Login with upgraded hash failed: %v", err)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricPasswordRehash]; got != 1 {
		t.Fatalf("current hashes must not be rehashed, got %d", got)
	}
}
