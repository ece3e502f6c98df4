package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/totp"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// settings is the file/env view of the CLI configuration. Every key can be
// overridden by AUTHCORE_<SECTION>_<KEY>, e.g. AUTHCORE_STORE_DRIVER.
//
// Keys in engineKeys have no defaults: a zero value keeps what the selected
// security preset ships with.
type settings struct {
	Store    storeSettings    `mapstructure:"store"`
	Notify   notifySettings   `mapstructure:"notify"`
	Log      logSettings      `mapstructure:"log"`
	JWT      jwtSettings      `mapstructure:"jwt"`
	Password passwordSettings `mapstructure:"password"`
	TOTP     totpSettings     `mapstructure:"totp"`
	Reset    resetSettings    `mapstructure:"reset"`
	Security securitySettings `mapstructure:"security"`
	Audit    auditSettings    `mapstructure:"audit"`
}

type storeSettings struct {
	Driver      string `mapstructure:"driver"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Migrate     bool   `mapstructure:"migrate"`
}

type notifySettings struct {
	Driver       string   `mapstructure:"driver"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type logSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type jwtSettings struct {
	SigningKey string        `mapstructure:"signing_key"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
}

type passwordSettings struct {
	Algorithm   string `mapstructure:"algorithm"`
	Memory      uint32 `mapstructure:"memory"`
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
	MinLength   int    `mapstructure:"min_length"`
}

type totpSettings struct {
	Issuer          string `mapstructure:"issuer"`
	Skew            *int   `mapstructure:"skew"`
	ReplayProtected bool   `mapstructure:"replay_protection"`
}

type resetSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type securitySettings struct {
	Preset           string        `mapstructure:"preset"`
	MaxLoginAttempts *int          `mapstructure:"max_login_attempts"`
	LoginCooldown    time.Duration `mapstructure:"login_cooldown"`
	IPThrottle       bool          `mapstructure:"ip_throttle"`
}

type auditSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// engineKeys are the settings that refine the security preset.
var engineKeys = []string{
	"jwt.session_ttl",
	"password.algorithm",
	"password.memory",
	"password.time",
	"password.parallelism",
	"password.bcrypt_cost",
	"password.min_length",
	"totp.issuer",
	"totp.skew",
	"totp.replay_protection",
	"reset.ttl",
	"security.max_login_attempts",
	"security.login_cooldown",
	"security.ip_throttle",
	"audit.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "acu")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.migrate", true)

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("notify.kafka_topic", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "authctl")
	v.SetDefault("jwt.audience", "")

	v.SetDefault("security.preset", "default")
}

// loadSettings reads .env (if present), then the optional YAML file, then
// AUTHCORE_* environment variables, in increasing precedence.
func loadSettings(path string) (settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AUTHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range engineKeys {
		if err := v.BindEnv(key); err != nil {
			return settings{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// presetConfig returns the engine configuration a preset name stands for.
func presetConfig(name string) (authcore.Config, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return authcore.DefaultConfig(), nil
	case "high":
		return authcore.HighSecurityConfig(), nil
	default:
		return authcore.Config{}, fmt.Errorf("unknown security preset %q", name)
	}
}

// engineConfig starts from the selected preset and applies the keys that
// were set. Boolean protections and the password minimum can only be
// tightened relative to the preset.
func (s settings) engineConfig() (authcore.Config, error) {
	cfg, err := presetConfig(s.Security.Preset)
	if err != nil {
		return authcore.Config{}, err
	}

	if s.JWT.SigningKey == "" {
		return authcore.Config{}, fmt.Errorf("jwt.signing_key is required (AUTHCORE_JWT_SIGNING_KEY)")
	}
	cfg.JWT.PrivateKey = []byte(s.JWT.SigningKey)
	setIf(&cfg.JWT.SessionTTL, s.JWT.SessionTTL)
	cfg.JWT.Issuer = s.JWT.Issuer
	cfg.JWT.Audience = s.JWT.Audience

	setIf(&cfg.Password.Algorithm, s.Password.Algorithm)
	setIf(&cfg.Password.Memory, s.Password.Memory)
	setIf(&cfg.Password.Time, s.Password.Time)
	setIf(&cfg.Password.Parallelism, s.Password.Parallelism)
	setIf(&cfg.Password.BcryptCost, s.Password.BcryptCost)
	if s.Password.MinLength > cfg.Password.MinLength {
		cfg.Password.MinLength = s.Password.MinLength
	}

	setIf(&cfg.TOTP.Issuer, s.TOTP.Issuer)
	if s.TOTP.Skew != nil {
		cfg.TOTP.Skew = *s.TOTP.Skew
	}
	cfg.TOTP.EnforceReplayProtection = cfg.TOTP.EnforceReplayProtection || s.TOTP.ReplayProtected

	setIf(&cfg.PasswordReset.TTL, s.Reset.TTL)

	if s.Security.MaxLoginAttempts != nil {
		cfg.Security.MaxLoginAttempts = *s.Security.MaxLoginAttempts
	}
	setIf(&cfg.Security.LoginCooldownDuration, s.Security.LoginCooldown)
	cfg.Security.EnableIPThrottle = cfg.Security.EnableIPThrottle || s.Security.IPThrottle

	cfg.Audit.Enabled = cfg.Audit.Enabled || s.Audit.Enabled

	return cfg, nil
}

// totpConfig is the code generator matching the engine's TOTP settings.
// Unlike engineConfig it does not need a signing key.
func (s settings) totpConfig() (totp.Config, error) {
	cfg, err := presetConfig(s.Security.Preset)
	if err != nil {
		return totp.Config{}, err
	}
	setIf(&cfg.TOTP.Issuer, s.TOTP.Issuer)
	return totp.Config{
		Issuer:    cfg.TOTP.Issuer,
		Period:    uint(cfg.TOTP.Period),
		Digits:    cfg.TOTP.Digits,
		Algorithm: cfg.TOTP.Algorithm,
	}, nil
}

func setIf[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
