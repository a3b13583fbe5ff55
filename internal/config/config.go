package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DevJWTSecret is the fallback secret for local runs only.
const DevJWTSecret = "dev-secret"

var ErrDevSecret = errors.New("JWT_SECRET is not set: refusing to run production with the dev secret")

type Config struct {
	AppEnv      string
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigin        string
	ConnectRatePerMinute int

	LogLevel string
	LogJSON  bool
}

// Load читает .env (если есть), затем окружение
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:               strings.ToLower(env("APP_ENV", "development")),
		AppPort:              env("APP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            env("JWT_SECRET", DevJWTSecret),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envInt("REDIS_DB", 0),
		AllowedOrigin:        os.Getenv("ALLOWED_ORIGIN"),
		ConnectRatePerMinute: envInt("CONNECT_RATE_PER_MINUTE", 120),
		LogLevel:             strings.ToLower(env("LOG_LEVEL", "info")),
		LogJSON:              os.Getenv("LOG_FORMAT") == "json",
	}
}

// UsesDevSecret reports whether tokens are signed with the public fallback.
func (c Config) UsesDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// Validate rejects settings that are only safe locally.
func (c Config) Validate() error {
	if c.AppEnv == "production" && c.UsesDevSecret() {
		return ErrDevSecret
	}
	return nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
