// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
}

type AppConfig struct {
	Env string
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type          string
	Redis         RedisConfig
	SweepInterval time.Duration
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type RateLimiterConfig struct {
	Limit           int
	IntervalSeconds int
	LockTTL         time.Duration
	APIKeyHeader    string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", "redis"))
	if storageType != "redis" && storageType != "memory" {
		return Config{}, fmt.Errorf("invalid STORAGE_TYPE: %q (expected redis or memory)", storageType)
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	sweepInterval, err := time.ParseDuration(getEnv("MEMORY_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MEMORY_SWEEP_INTERVAL: %w", err)
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		App:    AppConfig{Env: getEnv("APP_ENV", "development")},
		Server: server,
		Storage: StorageConfig{
			Type:          storageType,
			Redis:         redisConfig,
			SweepInterval: sweepInterval,
		},
		RateLimiter: rateLimiterConfig,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:      host,
		Port:      port,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        db,
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ratelimit:window"),
	}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	limit, err := strconv.Atoi(getEnv("RATE_LIMIT_LIMIT", "10"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_LIMIT: %w", err)
	}
	if limit < 1 {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_LIMIT: must be positive, %d given", limit)
	}

	intervalSeconds, err := parseIntervalSeconds(getEnv("RATE_LIMIT_INTERVAL", "1m"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_INTERVAL: %w", err)
	}

	lockTTL, err := time.ParseDuration(getEnv("RATE_LIMIT_LOCK_TTL", "5s"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_LOCK_TTL: %w", err)
	}

	return RateLimiterConfig{
		Limit:           limit,
		IntervalSeconds: intervalSeconds,
		LockTTL:         lockTTL,
		APIKeyHeader:    getEnv("RATE_LIMIT_API_KEY_HEADER", "API_KEY"),
	}, nil
}

// parseIntervalSeconds aceita uma duração Go ("90s", "1m") ou um inteiro de
// segundos e exige um número inteiro de segundos >= 1.
func parseIntervalSeconds(raw string) (int, error) {
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 1 {
			return 0, fmt.Errorf("must be at least 1 second, %d given", seconds)
		}
		return seconds, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, fmt.Errorf("must be at least 1s, %s given", d)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("must be a whole number of seconds, %s given", d)
	}
	return int(d / time.Second), nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
