// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreKind selects the credential backing.
type StoreKind string

const (
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

// minCookieKeyLen is the shortest accepted cookie signing key.
const minCookieKeyLen = 32

// Routes the login entry point must not shadow.
var (
	reservedPaths    = []string{"/protected", "/protected/view", "/logout", "/metrics"}
	reservedPrefixes = []string{"/api/", "/static/"}
)

func reservedPath(p string) bool {
	for _, r := range reservedPaths {
		if p == r {
			return true
		}
	}
	for _, r := range reservedPrefixes {
		if strings.HasPrefix(p, r) {
			return true
		}
	}
	return false
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	APIURL        string
	Store         StoreKind
	DBPath        string
	RedisAddr     string
	SecretKey     []byte // nil when unset; credentials are then stored unencrypted.
	CookieKey     []byte // nil when unset; a random key is generated per process.
	VerifyTimeout time.Duration
	LoginPath     string
	LogLevel      slog.Level
	LogFormat     string
}

// HasSecretKey reports whether credentials will be encrypted at rest.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

// Load reads configuration from the environment and returns a validated Config.
// Values from a .env file (TIMELINE_ENV_FILE, default ".env") are applied first
// without overriding variables already set; a missing file is not an error.
//
// Optional variables with defaults: TIMELINE_LISTEN_ADDR (127.0.0.1:3000),
// TIMELINE_API_URL (http://localhost:8000), TIMELINE_STORE (sqlite),
// TIMELINE_DB_PATH (timeline.db), TIMELINE_REDIS_ADDR (127.0.0.1:6379),
// TIMELINE_VERIFY_TIMEOUT (10s), TIMELINE_LOGIN_PATH (/login),
// TIMELINE_LOG_LEVEL (info), TIMELINE_LOG_FORMAT (text).
// TIMELINE_SECRET_KEY (64 hex chars) and TIMELINE_COOKIE_KEY (>= 32 bytes) have no default.
func Load() (*Config, error) {
	envFile := ".env"
	if v, ok := os.LookupEnv("TIMELINE_ENV_FILE"); ok && v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		ListenAddr:    "127.0.0.1:3000",
		APIURL:        "http://localhost:8000",
		Store:         StoreSQLite,
		DBPath:        "timeline.db",
		RedisAddr:     "127.0.0.1:6379",
		VerifyTimeout: 10 * time.Second,
		LoginPath:     "/login",
		LogLevel:      slog.LevelInfo,
		LogFormat:     "text",
	}

	if v, ok := os.LookupEnv("TIMELINE_LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("TIMELINE_API_URL"); ok && v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("TIMELINE_API_URL must be an absolute http(s) URL, got %q", v)
		}
		cfg.APIURL = strings.TrimSuffix(v, "/")
	}

	if v, ok := os.LookupEnv("TIMELINE_STORE"); ok && v != "" {
		switch kind := StoreKind(strings.ToLower(v)); kind {
		case StoreSQLite, StoreRedis, StoreMemory:
			cfg.Store = kind
		default:
			return nil, fmt.Errorf("TIMELINE_STORE must be one of sqlite, redis, memory, got %q", v)
		}
	}

	if v, ok := os.LookupEnv("TIMELINE_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("TIMELINE_REDIS_ADDR"); ok && v != "" {
		cfg.RedisAddr = v
	}

	if v, ok := os.LookupEnv("TIMELINE_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("TIMELINE_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	if v, ok := os.LookupEnv("TIMELINE_COOKIE_KEY"); ok && v != "" {
		if len(v) < minCookieKeyLen {
			return nil, fmt.Errorf("TIMELINE_COOKIE_KEY must be at least %d bytes", minCookieKeyLen)
		}
		cfg.CookieKey = []byte(v)
	}

	if v, ok := os.LookupEnv("TIMELINE_VERIFY_TIMEOUT"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TIMELINE_VERIFY_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("TIMELINE_VERIFY_TIMEOUT must be positive, got %s", parsed)
		}
		cfg.VerifyTimeout = parsed
	}

	if v, ok := os.LookupEnv("TIMELINE_LOGIN_PATH"); ok && v != "" {
		if !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") {
			return nil, fmt.Errorf("TIMELINE_LOGIN_PATH must be a local absolute path, got %q", v)
		}
		if strings.ContainsAny(v, "{} \t") {
			return nil, fmt.Errorf("TIMELINE_LOGIN_PATH must not contain wildcards or whitespace, got %q", v)
		}
		if reservedPath(v) {
			return nil, fmt.Errorf("TIMELINE_LOGIN_PATH %q collides with a built-in route", v)
		}
		cfg.LoginPath = v
	}

	if v, ok := os.LookupEnv("TIMELINE_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("TIMELINE_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if v, ok := os.LookupEnv("TIMELINE_LOG_FORMAT"); ok && v != "" {
		switch v = strings.ToLower(v); v {
		case "text", "json":
			cfg.LogFormat = v
		default:
			return nil, fmt.Errorf("TIMELINE_LOG_FORMAT must be text or json, got %q", v)
		}
	}

	return cfg, nil
}
