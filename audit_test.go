package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *spyStore, *captureNotifier, *fakeClock) {
	t.Helper()

	store := newSpyStore()
	notifier := &captureNotifier{}
	clock := newFakeClock()
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithNotifier(notifier).
		WithClock(clock).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, store, notifier, clock
}

func drainEvents(sink *ChannelSink) []AuditEvent {
	var events []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	engine, _, _, _ := buildAuditTestEngine(t, cfg, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.1")
	_, _ = engine.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "correct-password-123"})
	_, _ = engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	engine, _, _, clock := buildAuditTestEngine(t, cfg, sink)

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	if _, err := engine.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "correct-password-123"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, _ = engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: "super-secret-password"})
	engine.Close()

	events := drainEvents(sink)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	ev := events[1]
	if ev.EventType != auditEventLoginFailure || ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected error code %q, got %q", auditErrInvalidCredentials, ev.Error)
	}
	if ev.Metadata["reason"] != "password_mismatch" || ev.Metadata["identifier"] != "a@example.com" {
		t.Fatalf("unexpected metadata: %+v", ev.Metadata)
	}
	if !ev.Timestamp.Equal(clock.Now().UTC()) {
		t.Fatalf("expected timestamp from injected clock, got %v", ev.Timestamp)
	}
}

func TestAuditDropIfFullCountsDrops(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	gate := make(chan struct{})
	sink := sinkFunc(func(context.Context, AuditEvent) { <-gate })
	engine, _, _, _ := buildAuditTestEngine(t, cfg, sink)

	start := time.Now()
	for i := 0; i < 10; i++ {
		_, _ = engine.Login(context.Background(), LoginRequest{Email: "x@example.com", Password: "x"})
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("expected non-blocking emits when DropIfFull is true")
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped counter to increment when the queue is full")
	}
	close(gate)
	engine.Close()
}

type sinkFunc func(context.Context, AuditEvent)

func (f sinkFunc) Emit(ctx context.Context, ev AuditEvent) { f(ctx, ev) }

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
		IP:        "127.0.0.1",
		Success:   true,
	})

	line := bytes.TrimSpace(buf.Bytes())
	var decoded map[string]any
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", line, err)
	}
	if decoded["event_type"] != "login_success" || decoded["user_id"] != "u1" {
		t.Fatalf("unexpected JSON payload: %v", decoded)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(64)
	engine, store, notifier, clock := buildAuditTestEngine(t, cfg, sink)
	ctx := context.Background()

	const pw = "correct-password-123"
	reg, err := engine.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: pw})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	setup, err := engine.SetupMFA(ctx, reg.UserID)
	if err != nil {
		t.Fatalf("SetupMFA failed: %v", err)
	}
	code, _ := engine.totp.CodeAt(setup.Secret, clock.Now())
	if err := engine.VerifyMFA(ctx, reg.UserID, code, setup.Secret); err != nil {
		t.Fatalf("VerifyMFA failed: %v", err)
	}
	login, err := engine.Login(ctx, LoginRequest{Email: "a@example.com", Password: pw, MFACode: code})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := engine.RequestPasswordReset(ctx, "a@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	resetToken := notifier.last(t).token
	stored, _ := store.Store.FindByID(ctx, reg.UserID)
	if err := engine.ResetPassword(ctx, resetToken, "new-password-456"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	engine.Close()

	needles := []string{pw, "new-password-456", setup.Secret, reg.Token, login.Token, resetToken, stored.PasswordHash, stored.ResetTokenHash}

	events := drainEvents(sink)
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}
	for _, ev := range events {
		raw, _ := json.Marshal(ev)
		for _, needle := range needles {
			if needle != "" && strings.Contains(string(raw), needle) {
				t.Fatalf("sensitive value leaked in %s event", ev.EventType)
			}
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
