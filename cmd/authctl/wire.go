package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/credential/memory"
	"github.com/MrEthical07/authcore/credential/postgres"
	"github.com/MrEthical07/authcore/credential/redisstore"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/notify/kafka"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(s logSettings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if s.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// runtime owns the engine and every connection opened for it.
type runtime struct {
	engine  *authcore.Engine
	logger  *zap.Logger
	closers []func() error
}

func (r *runtime) Close() {
	if r.engine != nil {
		r.engine.Close()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = r.logger.Sync()
}

func buildRuntime(ctx context.Context, s settings, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}

	cfg, err := s.engineConfig()
	if err != nil {
		return nil, err
	}

	b := authcore.New().WithConfig(cfg).WithLogger(logger)

	store, rdb, err := openStore(ctx, s.Store, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	b = b.WithStore(store)
	if rdb != nil {
		b = b.WithRedis(rdb)
	}

	notifier, err := openNotifier(s.Notify, logger, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	b = b.WithNotifier(notifier)

	if cfg.Audit.Enabled {
		b = b.WithAuditSink(authcore.NewJSONWriterSink(os.Stderr))
	}

	engine, err := b.Build()
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

func openStore(ctx context.Context, s storeSettings, rt *runtime) (credential.Store, redis.UniversalClient, error) {
	switch strings.ToLower(s.Driver) {
	case "", "memory":
		rt.logger.Warn("using in-memory credential store; state is lost on exit")
		return memory.New(), nil, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		rt.closers = append(rt.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping %s: %w", s.RedisAddr, err)
		}
		return redisstore.New(rdb, s.RedisPrefix), rdb, nil

	case "postgres":
		if s.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
		pg, err := postgres.Open(ctx, s.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, pg.Close)
		if s.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, nil, err
			}
		}
		return pg, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", s.Driver)
	}
}

func openNotifier(s notifySettings, logger *zap.Logger, rt *runtime) (authcore.Notifier, error) {
	switch strings.ToLower(s.Driver) {
	case "", "log":
		return notify.NewLog(logger), nil

	case "stdout":
		return notify.Func(func(_ context.Context, email, token string) error {
			_, err := fmt.Fprintf(os.Stdout, "reset token for %s: %s\n", email, token)
			return err
		}), nil

	case "kafka":
		n, err := kafka.New(kafka.Config{
			Brokers:  s.KafkaBrokers,
			Topic:    s.KafkaTopic,
			ClientID: "authctl",
		}, logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, n.Close)
		return notify.Multi{n, notify.NewLog(logger)}, nil

	default:
		return nil, fmt.Errorf("unknown notify driver %q", s.Driver)
	}
}
