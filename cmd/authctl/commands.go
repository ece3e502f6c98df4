package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credential/postgres"
	"github.com/MrEthical07/authcore/totp"
)

type command func(ctx context.Context, s settings, args []string, stdout io.Writer) error

var commands = map[string]command{
	"register": cmdRegister,
	"login":    cmdLogin,
	"verify":   cmdVerify,
	"user":     cmdUser,
	"mfa":      cmdMFA,
	"reset":    cmdReset,
	"report":   cmdReport,
	"migrate":  cmdMigrate,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func required(values map[string]string) error {
	for name, v := range values {
		if v == "" {
			return fmt.Errorf("%w: --%s is required", errUsage, name)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withEngine builds a runtime from s, runs fn and tears everything down.
func withEngine(ctx context.Context, s settings, fn func(*authcore.Engine) error) error {
	logger, err := newLogger(s.Log)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, s, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	defer rt.Close()
	return fn(rt.engine)
}

type sessionOutput struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	MFAEnabled bool      `json:"mfa_enabled"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toSessionOutput(res *authcore.AuthResult) sessionOutput {
	return sessionOutput{
		UserID:     res.UserID,
		Name:       res.Name,
		Email:      res.Email,
		MFAEnabled: res.MFAEnabled,
		Token:      res.Token,
		ExpiresAt:  res.ExpiresAt,
	}
}

func cmdRegister(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(map[string]string{"name": *name, "email": *email, "password": *password}); err != nil {
		return err
	}

	return withEngine(ctx, s, func(e *authcore.Engine) error {
		res, err := e.Register(ctx, authcore.RegisterRequest{Name: *name, Email: *email, Password: *password})
		if err != nil {
			return err
		}
		return writeJSON(stdout, toSessionOutput(res))
	})
}

func cmdLogin(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	code := fs.String("code", "", "TOTP code, required when MFA is enabled")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(map[string]string{"email": *email, "password": *password}); err != nil {
		return err
	}

	return withEngine(ctx, s, func(e *authcore.Engine) error {
		res, err := e.Login(ctx, authcore.LoginRequest{Email: *email, Password: *password, MFACode: *code})
		if errors.Is(err, authcore.ErrMFARequired) {
			return fmt.Errorf("%w (pass --code)", err)
		}
		if err != nil {
			return err
		}
		return writeJSON(stdout, toSessionOutput(res))
	})
}

func cmdVerify(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	fs := newFlagSet("verify")
	token := fs.String("token", "", "session token")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(map[string]string{"token": *token}); err != nil {
		return err
	}

	return withEngine(ctx, s, func(e *authcore.Engine) error {
		claims, err := e.VerifyToken(ctx, *token)
		if err != nil {
			return err
		}
		out := map[string]any{
			"user_id": claims.UserID(),
			"email":   claims.Email,
			"name":    claims.Name,
		}
		if claims.ExpiresAt != nil {
			out["expires_at"] = claims.ExpiresAt.Time
		}
		return writeJSON(stdout, out)
	})
}

func cmdUser(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	fs := newFlagSet("user")
	id := fs.String("id", "", "user id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(map[string]string{"id": *id}); err != nil {
		return err
	}

	return withEngine(ctx, s, func(e *authcore.Engine) error {
		info, err := e.GetUser(ctx, *id)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]any{
			"id":         info.ID,
			"name":       info.Name,
			"email":      info.Email,
			"mfa_state":  info.MFAState.String(),
			"created_at": info.CreatedAt,
			"updated_at": info.UpdatedAt,
		})
	})
}

func cmdMFA(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: mfa needs a subcommand", errUsage)
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("mfa " + sub)
	user := fs.String("user", "", "user id")
	secret := fs.String("secret", "", "base32 TOTP secret")
	code := fs.String("code", "", "TOTP code")
	if err := parse(fs, args); err != nil {
		return err
	}

	switch sub {
	case "setup":
		if err := required(map[string]string{"user": *user}); err != nil {
			return err
		}
		return withEngine(ctx, s, func(e *authcore.Engine) error {
			res, err := e.SetupMFA(ctx, *user)
			if err != nil {
				return err
			}
			return writeJSON(stdout, map[string]string{"secret": res.Secret, "uri": res.URI})
		})

	case "verify":
		if err := required(map[string]string{"user": *user, "secret": *secret, "code": *code}); err != nil {
			return err
		}
		return withEngine(ctx, s, func(e *authcore.Engine) error {
			if err := e.VerifyMFA(ctx, *user, *code, *secret); err != nil {
				return err
			}
			return writeJSON(stdout, map[string]string{"mfa_state": "enabled"})
		})

	case "disable":
		if err := required(map[string]string{"user": *user}); err != nil {
			return err
		}
		return withEngine(ctx, s, func(e *authcore.Engine) error {
			if err := e.DisableMFA(ctx, *user); err != nil {
				return err
			}
			return writeJSON(stdout, map[string]string{"mfa_state": "disabled"})
		})

	case "code":
		if err := required(map[string]string{"secret": *secret}); err != nil {
			return err
		}
		tc, err := s.totpConfig()
		if err != nil {
			return err
		}
		te, err := totp.New(tc, time.Now)
		if err != nil {
			return err
		}
		current, err := te.CodeAt(*secret, time.Now())
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{"code": current})

	default:
		return fmt.Errorf("%w: unknown mfa subcommand %q", errUsage, sub)
	}
}

func cmdReset(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: reset needs a subcommand", errUsage)
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("reset " + sub)
	email := fs.String("email", "", "email address")
	token := fs.String("token", "", "reset token")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args); err != nil {
		return err
	}

	switch sub {
	case "request":
		if err := required(map[string]string{"email": *email}); err != nil {
			return err
		}
		return withEngine(ctx, s, func(e *authcore.Engine) error {
			if err := e.RequestPasswordReset(ctx, *email); err != nil {
				return err
			}
			return writeJSON(stdout, map[string]string{"status": "requested"})
		})

	case "confirm":
		if err := required(map[string]string{"token": *token, "password": *password}); err != nil {
			return err
		}
		return withEngine(ctx, s, func(e *authcore.Engine) error {
			if err := e.ResetPassword(ctx, *token, *password); err != nil {
				return err
			}
			return writeJSON(stdout, map[string]string{"status": "password_changed"})
		})

	default:
		return fmt.Errorf("%w: unknown reset subcommand %q", errUsage, sub)
	}
}

func cmdReport(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	if err := parse(newFlagSet("report"), args); err != nil {
		return err
	}
	cfg, err := s.engineConfig()
	if err != nil {
		return err
	}

	return withEngine(ctx, s, func(e *authcore.Engine) error {
		lint := make([]map[string]string, 0)
		for _, w := range cfg.Lint() {
			lint = append(lint, map[string]string{
				"code":     w.Code,
				"severity": w.Severity.String(),
				"message":  w.Message,
			})
		}
		return writeJSON(stdout, map[string]any{
			"report": e.SecurityReport(),
			"lint":   lint,
		})
	})
}

func cmdMigrate(ctx context.Context, s settings, args []string, stdout io.Writer) error {
	if err := parse(newFlagSet("migrate"), args); err != nil {
		return err
	}
	if s.Store.PostgresDSN == "" {
		return fmt.Errorf("store.postgres_dsn is required for migrate")
	}
	logger, err := newLogger(s.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pg, err := postgres.Open(ctx, s.Store.PostgresDSN)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return writeJSON(stdout, map[string]string{"status": "migrated"})
}
