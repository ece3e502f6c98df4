// Package notify provides [authcore.Notifier] adapters for password reset
// delivery.
package notify

import (
	"context"

	"github.com/MrEthical07/authcore"
	"go.uber.org/zap"
)

// Func adapts a plain function to [authcore.Notifier].
type Func func(ctx context.Context, email, token string) error

// SendPasswordReset calls f.
func (f Func) SendPasswordReset(ctx context.Context, email, token string) error {
	return f(ctx, email, token)
}

// Log records that a reset was requested without delivering the token. It
// suits development setups where no mail channel exists; the token itself is
// never logged.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a Log notifier writing through logger.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) SendPasswordReset(_ context.Context, email, _ string) error {
	l.logger.Info("password reset requested", zap.String("email", email))
	return nil
}

// Multi fans a reset out to every notifier and returns the first error.
type Multi []authcore.Notifier

func (m Multi) SendPasswordReset(ctx context.Context, email, token string) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.SendPasswordReset(ctx, email, token); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ authcore.Notifier = Func(nil)
	_ authcore.Notifier = (*Log)(nil)
	_ authcore.Notifier = Multi(nil)
)
