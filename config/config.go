package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Program  ProgramConfig  `mapstructure:"program"`
	Clock    ClockConfig    `mapstructure:"clock"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
	// APISpecPath is the OpenAPI document served under /swagger.
	APISpecPath string `mapstructure:"api_spec_path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// StatementTimeout caps any single ledger statement; 0 leaves the server default.
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// OpTimeout bounds reads and writes. The slot clock, nonces and the
	// cache all sit on the request path.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// ProgramConfig scopes every derived vault and bet address.
type ProgramConfig struct {
	ID string `mapstructure:"id"` // base58
}

type ClockConfig struct {
	SlotInterval time.Duration `mapstructure:"slot_interval"`
}

type LedgerConfig struct {
	FaucetEnabled bool `mapstructure:"faucet_enabled"`
}

// AuthConfig bounds signed API requests.
type AuthConfig struct {
	MaxClockDrift time.Duration `mapstructure:"max_clock_drift"`
	NonceTTL      time.Duration `mapstructure:"nonce_ttl"`
}

// WebhookConfig controls house notifications. SigningSeed is a hex
// Ed25519 seed; when empty, payloads go out unsigned.
type WebhookConfig struct {
	Timeout        time.Duration   `mapstructure:"timeout"`
	SigningSeed    string          `mapstructure:"signing_seed"`
	RetryIntervals []time.Duration `mapstructure:"retry_intervals"`
}

// RateLimitConfig overrides per-group request limits, e.g.
// ratelimit.limits.bets_place: 120. Windows are fixed.
type RateLimitConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Limits  map[string]int64 `mapstructure:"limits"`
}

// SigningKey decodes SigningSeed. It returns nil when no seed is configured.
func (w WebhookConfig) SigningKey() (ed25519.PrivateKey, error) {
	if w.SigningSeed == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(w.SigningSeed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, errors.New("webhook.signing_seed must be 32 hex-encoded bytes")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Program.ID == "" {
		return errors.New("program.id is required")
	}
	if c.Clock.SlotInterval <= 0 {
		return errors.New("clock.slot_interval must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns %d exceeds max_conns %d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Auth.NonceTTL < 2*c.Auth.MaxClockDrift {
		return errors.New("auth.nonce_ttl must cover the clock drift window in both directions")
	}
	for _, d := range c.Webhook.RetryIntervals {
		if d <= 0 {
			return errors.New("webhook.retry_intervals must be positive")
		}
	}
	if _, err := c.Webhook.SigningKey(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: DICE_.
// Nested keys use underscore: DICE_DATABASE_HOST, DICE_LEDGER_FAUCET_ENABLED, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.api_spec_path", "docs/api/openapi.yaml")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "dice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.statement_timeout", "5s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.op_timeout", "500ms")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("program.id", "3GJV9YpK9BNahmJbuGHVfY2UyiDXDsCFvbvAP34G7LJE")
	v.SetDefault("clock.slot_interval", "400ms")
	v.SetDefault("ledger.faucet_enabled", false)
	v.SetDefault("auth.max_clock_drift", "60s")
	v.SetDefault("auth.nonce_ttl", "120s")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.signing_seed", "")
	v.SetDefault("webhook.retry_intervals", []string{"15s", "1m", "2m", "5m", "10m"})
	v.SetDefault("ratelimit.enabled", true)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: DICE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
