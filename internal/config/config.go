package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends accepted by ESPALIER_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the process configuration shared by every espalier command.
// Command-line flags override the values read here.
type Config struct {
	Store   string `env:"ESPALIER_STORE" envDefault:"file"`
	DataDir string `env:"ESPALIER_DATA_DIR" envDefault:".espalier/diagrams"`

	RedisAddr     string        `env:"ESPALIER_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"ESPALIER_REDIS_PASSWORD"`
	RedisDB       int           `env:"ESPALIER_REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"ESPALIER_REDIS_TTL"`

	// RedisLock enables the distributed lock when Store is redis.
	RedisLock bool `env:"ESPALIER_REDIS_LOCK" envDefault:"true"`

	SQLitePath string `env:"ESPALIER_SQLITE_PATH" envDefault:".espalier/espalier.db"`

	Rules    string `env:"ESPALIER_RULES"`
	LogLevel string `env:"ESPALIER_LOG_LEVEL" envDefault:"info"`
	Addr     string `env:"ESPALIER_ADDR" envDefault:":8080"`

	HistoryLimit int `env:"ESPALIER_HISTORY_LIMIT" envDefault:"100"`

	// EncryptionKey is a base64 AES-256 key. When set, snapshots are stored encrypted.
	EncryptionKey          string   `env:"ESPALIER_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `env:"ESPALIER_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`

	// RedactKeys are regular expressions; matching content keys are masked on save.
	RedactKeys []string `env:"ESPALIER_REDACT_KEYS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c, ok := target.(*Config); ok && c.EncryptionKey == "" && len(c.EncryptionFallbackKeys) > 0 {
		return fmt.Errorf("fallback encryption keys need ESPALIER_ENCRYPTION_KEY")
	}
	return nil
}

// EncryptionKeys decodes the active and fallback keys. The active key is nil when encryption is off.
func (c *Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = base64.StdEncoding.DecodeString(c.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	for i, k := range c.EncryptionFallbackKeys {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(k))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fallback encryption key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

// Load parses a Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes Store and rejects unknown backends.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or sqlite)", c.Store)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit must not be negative, got %d", c.HistoryLimit)
	}
	return nil
}
