package authcore_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credential/memory"
	"github.com/MrEthical07/authcore/notify"
)

func exampleConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("example-signing-key-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

// ExampleNew demonstrates engine construction with an in-memory store.
func ExampleNew() {
	engine, err := authcore.New().
		WithConfig(exampleConfig()).
		WithStore(memory.New()).
		WithNotifier(notify.NewLog(nil)).
		Build()
	if err != nil {
		fmt.Println("build:", err)
		return
	}
	defer engine.Close()

	res, err := engine.Register(context.Background(), authcore.RegisterRequest{
		Name:     "Alice",
		Email:    " Alice@Example.com ",
		Password: "correct-horse-battery",
	})
	if err != nil {
		fmt.Println("register:", err)
		return
	}
	fmt.Println(res.Email, res.Token != "")
	// Output: Alice@Example.com true
}

// ExampleEngine_Login shows structured error handling on login.
func ExampleEngine_Login() {
	engine, _ := authcore.New().WithConfig(exampleConfig()).WithStore(memory.New()).Build()
	defer engine.Close()

	_, err := engine.Login(context.Background(), authcore.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials):
		fmt.Println("invalid credentials")
	case errors.Is(err, authcore.ErrMFARequired):
		fmt.Println("prompt for a TOTP code")
	case errors.Is(err, authcore.ErrStoreUnavailable):
		fmt.Println("try again later")
	}
	// Output: invalid credentials
}

// ExampleEngine_RequestPasswordReset wires a reset notifier.
func ExampleEngine_RequestPasswordReset() {
	var delivered string
	engine, _ := authcore.New().
		WithConfig(exampleConfig()).
		WithStore(memory.New()).
		WithNotifier(notify.Func(func(_ context.Context, email, token string) error {
			delivered = email
			return nil
		})).
		Build()
	defer engine.Close()

	ctx := context.Background()
	_, _ = engine.Register(ctx, authcore.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "correct-horse-battery"})
	_ = engine.RequestPasswordReset(ctx, "bob@example.com")
	_ = engine.RequestPasswordReset(ctx, "unknown@example.com")

	fmt.Println(delivered)
	// Output: bob@example.com
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	cfg := exampleConfig()
	cfg.Metrics.Enabled = true
	engine, _ := authcore.New().WithConfig(cfg).WithStore(memory.New()).Build()
	defer engine.Close()

	_, _ = engine.VerifyToken(context.Background(), "not-a-token")
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[authcore.MetricTokenVerifyFailure])
	// Output: 1
}
