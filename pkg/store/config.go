package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the PostgreSQL connection and pool settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the libpq connection string pgxpool expects.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LoadConfigFromEnv reads RECOG_DB_* environment variables, falling back to
// sane local-development defaults.
func LoadConfigFromEnv() Config {
	return Config{
		Host:            envOr("RECOG_DB_HOST", "localhost"),
		Port:            envIntOr("RECOG_DB_PORT", 5432),
		User:            envOr("RECOG_DB_USER", "recog"),
		Password:        envOr("RECOG_DB_PASSWORD", "recog"),
		Database:        envOr("RECOG_DB_NAME", "recog"),
		SSLMode:         envOr("RECOG_DB_SSLMODE", "disable"),
		MaxConns:        int32(envIntOr("RECOG_DB_MAX_CONNS", 20)),
		MinConns:        int32(envIntOr("RECOG_DB_MIN_CONNS", 2)),
		ConnMaxLifetime: time.Duration(envIntOr("RECOG_DB_CONN_MAX_LIFETIME_S", 3600)) * time.Second,
		ConnMaxIdleTime: time.Duration(envIntOr("RECOG_DB_CONN_MAX_IDLE_S", 300)) * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
