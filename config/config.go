package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Store configuration
	StoreDSN     string
	StoreTimeout time.Duration

	// Redis configuration (allocation locks + rate limiting); empty URL
	// disables Redis and falls back to in-process locking.
	RedisURL string

	// PubNub configuration (alert delivery channel)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Auth configuration
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Queue configuration
	ActiveLookback time.Duration // one window for both admission check and fetch
	NumberCooldown time.Duration
	AllocLockTTL   time.Duration

	// Notifier configuration
	PollInterval  time.Duration
	PollIdleLimit int

	// Admission gate
	EnforceWifiGate bool

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	// Optional .env for local development; ignore when absent.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Store
		StoreDSN:     getEnv("STORE_DSN", "qserveu:qserveu@tcp(localhost:3306)/qserveu?parseTime=true"),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", "5s"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Auth
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTokenTTL: getEnvAsDuration("ACCESS_TOKEN_TTL", "12h"),

		// Queue
		ActiveLookback: getEnvAsDuration("QUEUE_LOOKBACK", "24h"),
		NumberCooldown: getEnvAsDuration("NUMBER_COOLDOWN", "10m"),
		AllocLockTTL:   getEnvAsDuration("ALLOC_LOCK_TTL", "10s"),

		// Notifier
		PollInterval:  getEnvAsDuration("POLL_INTERVAL", "3s"),
		PollIdleLimit: getEnvAsInt("POLL_IDLE_LIMIT", 200),

		// Admission gate
		EnforceWifiGate: getEnvAsBool("ENFORCE_WIFI_GATE", false),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
