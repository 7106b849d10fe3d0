package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnv_DefaultsWhenUnset(t *testing.T) {
	cfg := LoadConfigFromEnv()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "recog", cfg.Database)
	assert.Equal(t, 3600*time.Second, cfg.ConnMaxLifetime)
}

func TestLoadConfigFromEnv_RespectsOverrides(t *testing.T) {
	t.Setenv("RECOG_DB_HOST", "db.internal")
	t.Setenv("RECOG_DB_PORT", "6543")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
}

func TestEnvIntOr_FallsBackOnUnparseable(t *testing.T) {
	t.Setenv("RECOG_DB_PORT", "not-a-number")
	cfg := LoadConfigFromEnv()
	assert.Equal(t, 5432, cfg.Port)
}

func TestConfig_DSN_RendersLibpqString(t *testing.T) {
	cfg := Config{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
