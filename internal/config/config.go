package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                         string
	AllowedOrigin                string
	DatabaseURL                  string
	MongoURI                     string
	MongoDatabase                string
	RedisAddr                    string
	RedisPassword                string
	RedisDB                      int
	PaymentMethodCacheTTLSeconds int
	AuthSecret                   string
	AdminToken                   string
	AccessTokenTTLMinutes        int
	CookieSecure                 bool
	LogLevel                     string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL := positiveInt("PAYMENT_METHOD_CACHE_TTL_SECONDS", 60)
	tokenTTL := positiveInt("ACCESS_TOKEN_TTL_MINUTES", 1440)
	cookieSecure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "false"))
	if err != nil {
		cookieSecure = false
	}

	cfg := Config{
		Port:                         getEnv("PORT", "7878"),
		AllowedOrigin:                getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:                  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MongoURI:                     strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase:                getEnv("MONGODB_DATABASE", "penjualan"),
		RedisAddr:                    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:                os.Getenv("REDIS_PASSWORD"),
		RedisDB:                      redisDB,
		PaymentMethodCacheTTLSeconds: cacheTTL,
		AuthSecret:                   strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AdminToken:                   strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		AccessTokenTTLMinutes:        tokenTTL,
		CookieSecure:                 cookieSecure,
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) PaymentMethodCacheTTL() time.Duration {
	return time.Duration(c.PaymentMethodCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
