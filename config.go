package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskboard/api"
	"taskboard/notify"
	"taskboard/storage"
)

const (
	backendFile  = "file"
	backendRedis = "redis"
	backendTable = "table"
	backendMySQL = "mysql"

	authNone = "none"
	authHS   = "hs256"
	authJWKS = "jwks"

	defaultTableSlot = "BoardSlots"
)

type config struct {
	Debug      bool
	ListenAddr string

	Backend     string
	StorageDir  string
	StorageKey  string
	RedisConn   string
	StorageConn string
	SlotTable   string
	MySQLDSN    string
	CacheTTL    time.Duration

	SeedURL string

	NotifyChannel string
	NotifyQueue   string
	Notify        notify.Config

	AuthMode     string
	AuthSecret   string
	AuthJWKSURL  string
	AuthAudience string
	AuthIssuer   string
	AuthOwner    string
	JWKSCacheTTL time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		ListenAddr:    ":8080",
		Backend:       strings.ToLower(envOr("STORAGE_BACKEND", backendFile)),
		StorageDir:    envOr("STORAGE_DIR", "data"),
		StorageKey:    envOr("STORAGE_KEY", storage.DefaultKey),
		RedisConn:     os.Getenv("REDIS_CONNECTION_STRING"),
		StorageConn:   os.Getenv("STORAGE_CONNECTION_STRING"),
		SlotTable:     os.Getenv("SLOT_TABLE"),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		SeedURL:       os.Getenv("SEED_URL"),
		NotifyChannel: os.Getenv("NOTIFY_CHANNEL"),
		NotifyQueue:   os.Getenv("NOTIFY_QUEUE"),
		AuthMode:      strings.ToLower(envOr("AUTH_MODE", authNone)),
		AuthSecret:    os.Getenv("AUTH_SHARED_SECRET"),
		AuthJWKSURL:   os.Getenv("AUTH_JWKS_URL"),
		AuthAudience:  os.Getenv("AUTH_AUDIENCE"),
		AuthIssuer:    os.Getenv("AUTH_ISSUER"),
		AuthOwner:     os.Getenv("AUTH_OWNER"),
		JWKSCacheTTL:  api.DefaultJWKSCacheTTL,
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}

	var err error
	if cfg.CacheTTL, err = envDuration("SLOT_CACHE_TTL", 0); err != nil {
		return cfg, err
	}
	if cfg.JWKSCacheTTL, err = envDuration("JWKS_CACHE_TTL", cfg.JWKSCacheTTL); err != nil {
		return cfg, err
	}
	if cfg.Notify.Workers, err = envInt("NOTIFY_WORKERS", 0); err != nil {
		return cfg, err
	}
	if cfg.Notify.Buffer, err = envInt("NOTIFY_BUFFER", 0); err != nil {
		return cfg, err
	}
	if cfg.Notify.HandoffTimeout, err = envDuration("NOTIFY_HANDOFF_TIMEOUT", 0); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.Backend {
	case backendFile:
		if c.StorageDir == "" {
			return errors.New("missing STORAGE_DIR")
		}
	case backendRedis:
		if c.RedisConn == "" {
			return errors.New("missing REDIS_CONNECTION_STRING")
		}
	case backendTable:
		if c.StorageConn == "" {
			return errors.New("missing STORAGE_CONNECTION_STRING")
		}
	case backendMySQL:
		if c.MySQLDSN == "" {
			return errors.New("missing MYSQL_DSN")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Backend)
	}
	if c.CacheTTL > 0 && c.RedisConn == "" {
		return errors.New("SLOT_CACHE_TTL requires REDIS_CONNECTION_STRING")
	}
	if c.NotifyChannel != "" && c.RedisConn == "" {
		return errors.New("NOTIFY_CHANNEL requires REDIS_CONNECTION_STRING")
	}
	if c.NotifyQueue != "" && c.StorageConn == "" {
		return errors.New("NOTIFY_QUEUE requires STORAGE_CONNECTION_STRING")
	}
	switch c.AuthMode {
	case authNone:
	case authHS:
		if c.AuthSecret == "" {
			return errors.New("AUTH_SHARED_SECRET must be set when AUTH_MODE=hs256")
		}
	case authJWKS:
		if c.AuthJWKSURL == "" {
			return errors.New("AUTH_JWKS_URL must be set when AUTH_MODE=jwks")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

// tableName is the slot table for the table and mysql backends.
func (c config) tableName() string {
	if c.SlotTable != "" {
		return c.SlotTable
	}
	if c.Backend == backendMySQL {
		return storage.DefaultSlotTable
	}
	return defaultTableSlot
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
