package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PostgresURL  string
	RedisAddr    string
	KafkaBrokers []string
	ServiceName  string

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string
	PayPalTimeout      time.Duration

	EmailServiceURL string
	PendingOrderTTL time.Duration
	SweepInterval   time.Duration
}

// Load reads configuration from the environment. A .env file is applied
// first when present so local runs don't need exported variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		PostgresURL:  getenv("POSTGRES_URL", ""),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),
		ServiceName:  getenv("SERVICE_NAME", "order-service"),

		PayPalBaseURL:      getenv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:     getenv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getenv("PAYPAL_CLIENT_SECRET", ""),
		PayPalTimeout:      getduration("PAYPAL_TIMEOUT", 15*time.Second),

		EmailServiceURL: getenv("EMAIL_SERVICE_URL", ""),
		PendingOrderTTL: getduration("PENDING_ORDER_TTL", 24*time.Hour),
		SweepInterval:   getduration("SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
