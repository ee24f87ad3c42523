// Package config loads server settings from flags, environment variables and
// an optional .env file. Flags override the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Limiter backends.
const (
	LimiterMemory   = "memory"
	LimiterPostgres = "postgres"
	LimiterRedis    = "redis"
)

// Config holds all server settings.
type Config struct {
	Addr        string
	MetricsAddr string
	TLSCert     string
	TLSKey      string

	Store    string
	DSN      string
	DataFile string

	JWTKey     string
	SessionTTL time.Duration

	Limiter   string
	RedisAddr string

	AdminPassword string
	Seed          bool
	Dev           bool
}

// Load reads envFile (missing is fine), then parses args with env-derived defaults.
func Load(args []string, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := &Config{}
	fs := flag.NewFlagSet("bagtrack-server", flag.ContinueOnError)
	fs.StringVar(&c.Addr, "addr", getEnv("ADDR", ":8443"), "gRPC listen address")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", getEnv("METRICS_ADDR", ":9090"), "metrics listen address, empty disables")
	fs.StringVar(&c.TLSCert, "tls-cert", getEnv("TLS_CERT", ""), "TLS certificate file, empty serves plaintext")
	fs.StringVar(&c.TLSKey, "tls-key", getEnv("TLS_KEY", ""), "TLS key file")
	fs.StringVar(&c.Store, "store", getEnv("STORE", StoreMemory), "entity store: memory|postgres")
	fs.StringVar(&c.DSN, "dsn", getEnv("DSN", ""), "PostgreSQL DSN")
	fs.StringVar(&c.DataFile, "data-file", getEnv("DATA_FILE", ""), "JSON snapshot for the memory store")
	fs.StringVar(&c.JWTKey, "jwt-key", getEnv("JWT_KEY", ""), "HS256 signing key (required)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", getEnvDuration("SESSION_TTL", 24*time.Hour), "session lifetime")
	fs.StringVar(&c.Limiter, "limiter", getEnv("LIMITER", LimiterMemory), "login limiter: memory|postgres|redis")
	fs.StringVar(&c.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address for the redis limiter")
	fs.StringVar(&c.AdminPassword, "admin-password", getEnv("ADMIN_PASSWORD", "Admin123"), "initial administrator password")
	fs.BoolVar(&c.Seed, "seed", getEnvBool("SEED", false), "seed demo data into an empty store")
	fs.BoolVar(&c.Dev, "dev", getEnvBool("DEV", false), "enable server reflection (dev only)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.JWTKey == "" {
		return errors.New("missing jwt signing key (-jwt-key or JWT_KEY)")
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DSN == "" {
			return errors.New("postgres store requires -dsn")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Limiter {
	case LimiterMemory, LimiterRedis:
	case LimiterPostgres:
		if c.Store != StorePostgres {
			return errors.New("postgres limiter requires the postgres store")
		}
	default:
		return fmt.Errorf("unknown limiter %q", c.Limiter)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("-tls-cert and -tls-key must be set together")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
