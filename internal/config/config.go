// Package config loads runtime settings from an optional YAML file with
// environment-variable overrides. Every knob has a default so the service
// boots with no config file at all.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Batch    BatchConfig
	Lock     LockConfig
	Retry    RetryConfig
	Breaker  BreakerConfig
	Bulkhead BulkheadConfig
	SeedDemo bool
}

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BatchConfig struct {
	MaxSize      int
	PollInterval time.Duration
}

type LockConfig struct {
	Expiry time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxRetries  int // requeue bound before a work item is escalated
}

type BreakerConfig struct {
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

type BulkheadConfig struct {
	MaxConcurrent int64
}

// Load reads config.yaml from the working directory (when present) and
// applies BANKING_* environment overrides, e.g. BANKING_DATABASE_HOST.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BANKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout_ms", 10000)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "banking")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("batch.max_size", 10)
	v.SetDefault("batch.poll_interval_ms", 1000)

	v.SetDefault("lock.expiry_ms", 10000)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_backoff_ms", 100)
	v.SetDefault("retry.max_retries", 3)

	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.cooldown_ms", 30000)

	v.SetDefault("bulkhead.max_concurrent", 4)

	v.SetDefault("seed_demo", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:            v.GetInt("http.port"),
			ShutdownTimeout: time.Duration(v.GetInt("http.shutdown_timeout_ms")) * time.Millisecond,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Batch: BatchConfig{
			MaxSize:      v.GetInt("batch.max_size"),
			PollInterval: time.Duration(v.GetInt("batch.poll_interval_ms")) * time.Millisecond,
		},
		Lock: LockConfig{
			Expiry: time.Duration(v.GetInt("lock.expiry_ms")) * time.Millisecond,
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			BaseBackoff: time.Duration(v.GetInt("retry.base_backoff_ms")) * time.Millisecond,
			MaxRetries:  v.GetInt("retry.max_retries"),
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: v.GetUint32("breaker.consecutive_failures"),
			Cooldown:            time.Duration(v.GetInt("breaker.cooldown_ms")) * time.Millisecond,
		},
		Bulkhead: BulkheadConfig{
			MaxConcurrent: v.GetInt64("bulkhead.max_concurrent"),
		},
		SeedDemo: v.GetBool("seed_demo"),
	}
	return cfg, nil
}
