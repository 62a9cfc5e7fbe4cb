package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	AllowedOrigin string
	AppEnv        string
	LogLevel      string
	Timezone      string

	DatabaseDriver string
	DatabaseURL    string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	EventsChannel     string
	SummaryTTLSeconds int
	MetricsEnabled    bool

	APIURL               string
	SubmitTimeoutSeconds int
	SubmitConcurrency    int
	WeightFloorPolicy    string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	summaryTTL := getPositiveInt("SUMMARY_TTL_SECONDS", 30)
	submitTimeout := getPositiveInt("SUBMIT_TIMEOUT_SECONDS", 15)
	concurrency, err := strconv.Atoi(getEnv("SUBMIT_CONCURRENCY", "0"))
	if err != nil || concurrency < 0 {
		concurrency = 0
	}
	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		metricsEnabled = true
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:4200"),
		AppEnv:               strings.ToLower(getEnv("APP_ENV", "development")),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Timezone:             getEnv("TIMEZONE", "America/Sao_Paulo"),
		DatabaseDriver:       strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:            strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		EventsChannel:        getEnv("EVENTS_CHANNEL", "estoque:events"),
		SummaryTTLSeconds:    summaryTTL,
		MetricsEnabled:       metricsEnabled,
		APIURL:               getEnv("API_URL", "http://127.0.0.1:8080"),
		SubmitTimeoutSeconds: submitTimeout,
		SubmitConcurrency:    concurrency,
		WeightFloorPolicy:    strings.ToLower(getEnv("WEIGHT_FLOOR_POLICY", "off")),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SummaryTTL() time.Duration {
	return time.Duration(c.SummaryTTLSeconds) * time.Second
}

func (c Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

// Location resolves TIMEZONE. Sale dates are stamped in this zone.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
