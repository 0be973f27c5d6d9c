package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(8000), cfg.DefaultCost)
	assert.Equal(t, 1500*time.Millisecond, cfg.CommitDebounce)
	assert.Equal(t, RemoteMemory, cfg.RemoteStore)
	assert.Equal(t, CacheMemory, cfg.LocalCache)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"REMOTE_STORE":  "Postgres",
		"POSTGRES_DSN":  "postgres://localhost/rentcal?sslmode=disable",
		"LOCAL_CACHE":   "redis",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
		"TIMEZONE":      "Europe/Moscow",
	}))
	require.NoError(t, err)
	assert.Equal(t, RemotePostgres, cfg.RemoteStore)
	assert.Equal(t, CacheRedis, cfg.LocalCache)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]any{
		"duration":     {"COMMIT_DEBOUNCE": "soon"},
		"backoff":      {"RETRY_BACKOFF": "1s,later"},
		"remote":       {"REMOTE_STORE": "cassandra"},
		"postgres dsn": {"REMOTE_STORE": "postgres"},
		"mongo uri":    {"REMOTE_STORE": "mongo"},
		"cache":        {"LOCAL_CACHE": "disk"},
		"default cost": {"DEFAULT_COST": 0},
		"timezone":     {"TIMEZONE": "Mars/Olympus"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fromViper(newViper(overrides))
			assert.Error(t, err)
		})
	}
}
