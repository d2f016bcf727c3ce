package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AllocatorDB    = "db"
	AllocatorRedis = "redis"
)

type Config struct {
	DBDriver         string
	DBDSN            string
	DBConnectMaxWait time.Duration
	ServerPort       string
	LogLevel         string
	IDAllocator      string
	RedisURL         string
	SeedFile         string
	CORSOrigins      []string
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:    getEnvDefault("DB_DRIVER", "postgres"),
		DBDSN:       os.Getenv("DB_DSN"),
		ServerPort:  getEnvDefault("SERVER_PORT", "8080"),
		LogLevel:    getEnvDefault("LOG_LEVEL", "info"),
		IDAllocator: getEnvDefault("ID_ALLOCATOR", AllocatorDB),
		RedisURL:    getEnvDefault("REDIS_URL", "redis://localhost:6379/0"),
		SeedFile:    os.Getenv("SEED_FILE"),
		CORSOrigins: splitList(getEnvDefault("CORS_ORIGINS", "*")),
	}

	// DATABASE_URL: имя переменной из старой версии сервиса
	if cfg.DBDSN == "" {
		cfg.DBDSN = os.Getenv("DATABASE_URL")
	}
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DB_DRIVER %q is not supported (postgres, sqlite)", cfg.DBDriver)
	}

	switch cfg.IDAllocator {
	case AllocatorDB, AllocatorRedis:
	default:
		return nil, fmt.Errorf("ID_ALLOCATOR %q is not supported (db, redis)", cfg.IDAllocator)
	}

	wait, err := time.ParseDuration(getEnvDefault("DB_CONNECT_MAX_WAIT", "1m"))
	if err != nil {
		return nil, fmt.Errorf("DB_CONNECT_MAX_WAIT: %w", err)
	}
	cfg.DBConnectMaxWait = wait

	return cfg, nil
}

func getEnvDefault(key, defVal string) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defVal
	}
	return strings.TrimSpace(val)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
