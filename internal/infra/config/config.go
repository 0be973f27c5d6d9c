package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
	RemoteMongo    = "mongo"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config aggregates application configuration values loaded from the
// environment and an optional .env file.
type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	AllowedOrigins     []string
	Location           *time.Location
	DefaultCost        int64
	CommitDebounce     time.Duration
	CommitTimeout      time.Duration
	RemoteStore        string
	PostgresDSN        string
	MongoURI           string
	MongoDB            string
	LocalCache         string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisKeyPrefix     string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return Config{}, err
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:              v.GetString("APP_ENV"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		AllowedOrigins:   splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		DefaultCost:      v.GetInt64("DEFAULT_COST"),
		RemoteStore:      strings.ToLower(v.GetString("REMOTE_STORE")),
		PostgresDSN:      v.GetString("POSTGRES_DSN"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		LocalCache:       strings.ToLower(v.GetString("LOCAL_CACHE")),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		RedisKeyPrefix:   v.GetString("REDIS_KEY_PREFIX"),
		KafkaBrokers:     splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		KafkaGroupID:     v.GetString("KAFKA_GROUP_ID"),
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"COMMIT_DEBOUNCE", &cfg.CommitDebounce},
		{"COMMIT_TIMEOUT", &cfg.CommitTimeout},
		{"IDEMP_TTL", &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval},
	}
	for _, d := range durations {
		val, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = val
	}

	for _, raw := range splitAndTrim(v.GetString("RETRY_BACKOFF")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.RemoteStore {
	case RemoteMemory:
	case RemotePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for REMOTE_STORE=postgres")
		}
	case RemoteMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for REMOTE_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown REMOTE_STORE %q", c.RemoteStore)
	}
	switch c.LocalCache {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown LOCAL_CACHE %q", c.LocalCache)
	}
	if c.DefaultCost <= 0 {
		return errors.New("DEFAULT_COST must be positive")
	}
	return nil
}

// UsesMongo reports whether any component needs a Mongo connection.
func (c Config) UsesMongo() bool {
	return c.RemoteStore == RemoteMongo
}

// Default returns the configuration used when the environment is unusable.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("DEFAULT_COST", 8000)
	v.SetDefault("COMMIT_DEBOUNCE", "1500ms")
	v.SetDefault("COMMIT_TIMEOUT", "10s")
	v.SetDefault("REMOTE_STORE", RemoteMemory)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DB", "rentcal")
	v.SetDefault("LOCAL_CACHE", CacheMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "rentcal:")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "")
	v.SetDefault("KAFKA_GROUP_ID", "rentcal-invalidation")
	v.SetDefault("IDEMP_TTL", "24h")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
