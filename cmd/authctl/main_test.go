package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHCORE_JWT_SIGNING_KEY", testKey)
	t.Setenv("AUTHCORE_PASSWORD_MEMORY", "8192")
	t.Setenv("AUTHCORE_PASSWORD_TIME", "1")
	t.Setenv("AUTHCORE_PASSWORD_PARALLELISM", "1")
	t.Setenv("AUTHCORE_LOG_LEVEL", "error")
}

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run %v failed: %v", args, err)
	}
	var v map[string]any
	if err := json.Unmarshal(out.Bytes(), &v); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	return v
}

func TestRunUsage(t *testing.T) {
	setTestEnv(t)
	for _, args := range [][]string{nil, {"nope"}, {"mfa"}, {"reset", "later"}, {"register", "--email", "a@example.com"}} {
		err := run(context.Background(), args, &bytes.Buffer{})
		if !errors.Is(err, errUsage) {
			t.Fatalf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestRunRegisterThenVerify(t *testing.T) {
	setTestEnv(t)

	reg := runJSON(t, "register", "--name", "Alice", "--email", "alice@example.com", "--password", "correct-password-123")
	token, _ := reg["token"].(string)
	if token == "" || reg["email"] != "alice@example.com" {
		t.Fatalf("unexpected register output: %v", reg)
	}

	// Verification is stateless, so a fresh process accepts the token.
	claims := runJSON(t, "verify", "--token", token)
	if claims["user_id"] != reg["user_id"] {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestRunRedisFlow(t *testing.T) {
	setTestEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("AUTHCORE_STORE_DRIVER", "redis")
	t.Setenv("AUTHCORE_STORE_REDIS_ADDR", mr.Addr())

	reg := runJSON(t, "register", "--name", "Bob", "--email", "bob@example.com", "--password", "correct-password-123")
	userID, _ := reg["user_id"].(string)

	setup := runJSON(t, "mfa", "setup", "--user", userID)
	secret, _ := setup["secret"].(string)
	if secret == "" || !strings.HasPrefix(setup["uri"].(string), "otpauth://totp/") {
		t.Fatalf("unexpected setup output: %v", setup)
	}

	code := runJSON(t, "mfa", "code", "--secret", secret)["code"].(string)
	runJSON(t, "mfa", "verify", "--user", userID, "--secret", secret, "--code", code)

	user := runJSON(t, "user", "--id", userID)
	if user["mfa_state"] != "enabled" {
		t.Fatalf("expected enabled MFA, got %v", user)
	}

	err := run(context.Background(), []string{"login", "--email", "bob@example.com", "--password", "correct-password-123"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "--code") {
		t.Fatalf("expected MFA required error, got %v", err)
	}

	runJSON(t, "mfa", "disable", "--user", userID)
	login := runJSON(t, "login", "--email", "bob@example.com", "--password", "correct-password-123")
	if login["mfa_enabled"] != false {
		t.Fatalf("unexpected login output: %v", login)
	}
}

func TestRunPasswordResetRequest(t *testing.T) {
	setTestEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("AUTHCORE_STORE_DRIVER", "redis")
	t.Setenv("AUTHCORE_STORE_REDIS_ADDR", mr.Addr())
	t.Setenv("AUTHCORE_NOTIFY_DRIVER", "log")

	runJSON(t, "register", "--name", "Carol", "--email", "carol@example.com", "--password", "correct-password-123")
	if out := runJSON(t, "reset", "request", "--email", "carol@example.com"); out["status"] != "requested" {
		t.Fatalf("unexpected reset output: %v", out)
	}
	if out := runJSON(t, "reset", "request", "--email", "nobody@example.com"); out["status"] != "requested" {
		t.Fatalf("unknown email must look the same: %v", out)
	}

	err := run(context.Background(), []string{"reset", "confirm", "--token", "bogus", "--password", "new-password-456"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an invalid token error")
	}
}

func TestRunReport(t *testing.T) {
	setTestEnv(t)
	out := runJSON(t, "report")
	if _, ok := out["report"].(map[string]any); !ok {
		t.Fatalf("missing report: %v", out)
	}
	if _, ok := out["lint"].([]any); !ok {
		t.Fatalf("missing lint: %v", out)
	}
}
