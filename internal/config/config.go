package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string `mapstructure:"DB_DSN"`
	Environment    string `mapstructure:"ENV"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"` // пусто - кэш поиска отключён
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	MatchCacheTTL time.Duration `mapstructure:"MATCH_CACHE_TTL"`

	MetricsAddr             string        `mapstructure:"METRICS_ADDR"` // пусто - метрики не отдаются
	CompletionSweepInterval time.Duration `mapstructure:"COMPLETION_SWEEP_INTERVAL"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MatchCacheTTL, err = getDuration("MATCH_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CompletionSweepInterval, err = getDuration("COMPLETION_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive", key)
	}
	return d, nil
}
