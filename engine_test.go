package authcore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/credential/memory"
	"github.com/MrEthical07/authcore/password"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// spyStore counts calls and can be switched into a failing state.
type spyStore struct {
	credential.Store

	finds   atomic.Int64
	inserts atomic.Int64
	updates atomic.Int64

	mu   sync.Mutex
	fail error
}

func newSpyStore() *spyStore {
	return &spyStore{Store: memory.New()}
}

func (s *spyStore) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *spyStore) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *spyStore) calls() int64 {
	return s.finds.Load() + s.inserts.Load() + s.updates.Load()
}

func (s *spyStore) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	s.finds.Add(1)
	if err := s.failure(); err != nil {
		return nil, err
	}
	return s.Store.FindByEmail(ctx, email)
}

func (s *spyStore) FindByID(ctx context.Context, id string) (*credential.User, error) {
	s.finds.Add(1)
	if err := s.failure(); err != nil {
		return nil, err
	}
	return s.Store.FindByID(ctx, id)
}

func (s *spyStore) FindByResetToken(ctx context.Context, hash string) (*credential.User, error) {
	s.finds.Add(1)
	if err := s.failure(); err != nil {
		return nil, err
	}
	return s.Store.FindByResetToken(ctx, hash)
}

func (s *spyStore) Insert(ctx context.Context, u *credential.User) error {
	s.inserts.Add(1)
	if err := s.failure(); err != nil {
		return err
	}
	return s.Store.Insert(ctx, u)
}

func (s *spyStore) Update(ctx context.Context, u *credential.User) error {
	s.updates.Add(1)
	if err := s.failure(); err != nil {
		return err
	}
	return s.Store.Update(ctx, u)
}

type sentReset struct {
	email string
	token string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentReset
	err  error
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReset{email: email, token: token})
	return n.err
}

func (n *captureNotifier) last(t *testing.T) sentReset {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a reset notification")
	}
	return n.sent[len(n.sent)-1]
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type countingHasher struct {
	password.Hasher
	verifies atomic.Int64
}

func (h *countingHasher) Verify(plaintext, encoded string) (bool, error) {
	h.verifies.Add(1)
	return h.Hasher.Verify(plaintext, encoded)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = append([]byte(nil), testSigningKey...)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

type harness struct {
	engine   *Engine
	store    *spyStore
	clock    *fakeClock
	notifier *captureNotifier
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		store:    newSpyStore(),
		clock:    newFakeClock(),
		notifier: &captureNotifier{},
	}
	engine, err := New().
		WithConfig(cfg).
		WithStore(h.store).
		WithClock(h.clock).
		WithNotifier(h.notifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func (h *harness) register(t *testing.T, name, email, pw string) *AuthResult {
	t.Helper()
	res, err := h.engine.Register(context.Background(), RegisterRequest{Name: name, Email: email, Password: pw})
	if err != nil {
		t.Fatalf("Register(%q) failed: %v", email, err)
	}
	return res
}

func (h *harness) code(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := h.engine.totp.CodeAt(secret, at)
	if err != nil {
		t.Fatalf("CodeAt failed: %v", err)
	}
	return code
}

// enableMFA runs setup and confirmation and returns the active secret.
func (h *harness) enableMFA(t *testing.T, userID string) string {
	t.Helper()
	ctx := context.Background()
	setup, err := h.engine.SetupMFA(ctx, userID)
	if err != nil {
		t.Fatalf("SetupMFA failed: %v", err)
	}
	if err := h.engine.VerifyMFA(ctx, userID, h.code(t, setup.Secret, h.clock.Now()), setup.Secret); err != nil {
		t.Fatalf("VerifyMFA failed: %v", err)
	}
	return setup.Secret
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.Register(ctx, RegisterRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Register: expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Login(ctx, LoginRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.VerifyToken(ctx, "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("VerifyToken: expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 {
		t.Fatal("nil engine must report zero drops")
	}
}

func TestGetUser(t *testing.T) {
	h := newHarness(t, testConfig())
	res := h.register(t, "Alice", "alice@example.com", "correct-password-123")

	info, err := h.engine.GetUser(context.Background(), res.UserID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if info.Email != "alice@example.com" || info.Name != "Alice" || info.MFAState != credential.MFADisabled {
		t.Fatalf("unexpected user info: %+v", info)
	}
	if _, err := h.engine.GetUser(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVerifyTokenDoesNotTouchStore(t *testing.T) {
	h := newHarness(t, testConfig())
	res := h.register(t, "Alice", "alice@example.com", "correct-password-123")

	before := h.store.calls()
	for i := 0; i < 10; i++ {
		if _, err := h.engine.VerifyToken(context.Background(), res.Token); err != nil {
			t.Fatalf("VerifyToken failed: %v", err)
		}
	}
	if after := h.store.calls(); after != before {
		t.Fatalf("expected no store calls during verification, got %d", after-before)
	}
}

func TestVerifyTokenRoundTripClaims(t *testing.T) {
	h := newHarness(t, testConfig())
	res := h.register(t, "Ada Lovelace", "ada@example.com", "correct-password-123")

	claims, err := h.engine.VerifyToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID() != res.UserID || claims.Email != "ada@example.com" || claims.Name != "Ada Lovelace" {
		t.Fatalf("claims do not match issued values: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(res.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", claims.ExpiresAt.Time, res.ExpiresAt)
	}
}

func TestVerifyTokenExpiredAndForeign(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg)
	res := h.register(t, "Alice", "alice@example.com", "correct-password-123")

	h.clock.Advance(cfg.JWT.SessionTTL + time.Second)
	if _, err := h.engine.VerifyToken(context.Background(), res.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	other := testConfig()
	other.JWT.PrivateKey = []byte("a-completely-different-secret-key!!")
	foreign := newHarness(t, other)
	fres := foreign.register(t, "Mallory", "mallory@example.com", "correct-password-123")

	if _, err := newHarness(t, cfg).engine.VerifyToken(context.Background(), fres.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign token, got %v", err)
	}
	if _, err := h.engine.VerifyToken(context.Background(), "not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[MetricTokenExpired] != 1 || snap.Counters[MetricTokenVerifyFailure] != 1 {
		t.Fatalf("unexpected token metrics: %+v", snap.Counters)
	}
}

func TestUpdateUserRetriesOnConflict(t *testing.T) {
	h := newHarness(t, testConfig())
	res := h.register(t, "Alice", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	attempts := 0
	_, err := h.engine.updateUser(ctx, res.UserID, func(u *credential.User) error {
		attempts++
		if attempts == 1 {
			// A concurrent writer commits between our read and our CAS.
			other, err := h.store.Store.FindByID(ctx, u.ID)
			if err != nil {
				return err
			}
			other.Name = "Concurrent"
			if err := h.store.Store.Update(ctx, other); err != nil {
				return err
			}
		}
		u.Name = "Winner"
		return nil
	})
	if err != nil {
		t.Fatalf("updateUser failed: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	info, _ := h.engine.GetUser(ctx, res.UserID)
	if info.Name != "Winner" {
		t.Fatalf("expected retried write to land, got %q", info.Name)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricStoreConflictRetry]; got != 1 {
		t.Fatalf("expected 1 conflict retry, got %d", got)
	}
}

func TestStoreOutageIsNotInvalidCredentials(t *testing.T) {
	h := newHarness(t, testConfig())
	h.register(t, "Alice", "alice@example.com", "correct-password-123")

	h.store.setFailure(credential.ErrUnavailable)
	_, err := h.engine.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-password-123"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("store outage must not look like bad credentials")
	}

	if _, err := h.engine.Register(context.Background(), RegisterRequest{Name: "B", Email: "b@example.com", Password: "pw"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Register: expected ErrStoreUnavailable, got %v", err)
	}
	if err := h.engine.RequestPasswordReset(context.Background(), "alice@example.com"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("RequestPasswordReset: expected ErrStoreUnavailable, got %v", err)
	}
}
