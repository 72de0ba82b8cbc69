// Package config resolves the node's configuration from AGORA_* environment
// variables, once, at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger backends selectable via AGORA_LEDGER_BACKEND.
const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Config is everything the node needs, resolved from the environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	Ledger    LedgerConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Relay     RelayConfig
	Log       LogConfig
	Bootstrap BootstrapConfig
}

// LedgerConfig selects and parameterizes the record store.
type LedgerConfig struct {
	Backend     string // memory, sqlite or postgres
	SQLitePath  string
	PostgresDSN string
}

// CacheConfig tunes the read-through snapshot cache.
type CacheConfig struct {
	TTL time.Duration
}

// RedisConfig parameterizes the optional redis cache backend. An empty URL
// means redis is not configured and the in-process backend is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RelayConfig parameterizes the broker gossip. No brokers means the node
// runs standalone.
type RelayConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// Enabled reports whether the relay should run.
func (r RelayConfig) Enabled() bool {
	return len(r.Brokers) > 0
}

// LogConfig selects the process logger's format and level.
type LogConfig struct {
	Level  string // debug, info, warn or error
	Format string // text or json
}

// BootstrapConfig carries the node's signing identity. AgentSeed is the
// hex-encoded 32-byte ed25519 seed; when empty the node generates an
// ephemeral keypair and logs its agent id. BootstrapAdmin asks the node to
// seat its agent as the founding administrator if no roles exist yet.
type BootstrapConfig struct {
	AgentSeed      string
	BootstrapAdmin bool
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr: getenv("AGORA_ADDR", ":8080"),
		Ledger: LedgerConfig{
			Backend:     getenv("AGORA_LEDGER_BACKEND", LedgerMemory),
			SQLitePath:  getenv("AGORA_SQLITE_PATH", "agora.db"),
			PostgresDSN: os.Getenv("AGORA_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("AGORA_REDIS_URL"),
		},
		Relay: RelayConfig{
			Topic: getenv("AGORA_KAFKA_TOPIC", "agora.ledger.records"),
			Group: getenv("AGORA_KAFKA_GROUP", "agora"),
		},
		Log: LogConfig{
			Level:  getenv("AGORA_LOG_LEVEL", "info"),
			Format: getenv("AGORA_LOG_FORMAT", "text"),
		},
		Bootstrap: BootstrapConfig{
			AgentSeed:      os.Getenv("AGORA_AGENT_SEED"),
			BootstrapAdmin: os.Getenv("AGORA_BOOTSTRAP_ADMIN") == "true",
		},
	}

	switch cfg.Ledger.Backend {
	case LedgerMemory, LedgerSQLite:
	case LedgerPostgres:
		if cfg.Ledger.PostgresDSN == "" {
			return Config{}, fmt.Errorf("AGORA_POSTGRES_DSN is required with the postgres backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	var err error
	if cfg.Cache.TTL, err = getduration("AGORA_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = getint("AGORA_REDIS_POOL_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.Redis.MinIdleConns, err = getint("AGORA_REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DialTimeout, err = getduration("AGORA_REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.ReadTimeout, err = getduration("AGORA_REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.WriteTimeout, err = getduration("AGORA_REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}

	if brokers := os.Getenv("AGORA_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Relay.Brokers = append(cfg.Relay.Brokers, b)
			}
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
