package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the processes need. It is built once in main
// and handed to components explicitly.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeSecretKey     string
	StripePaymentSecret string
	StripeConnectSecret string

	JWTSecret string

	FrontendURL string
	BackendURL  string

	Currency          string
	ExpiryDelay       time.Duration
	WorkerConcurrency int
	WorkerPollEvery   time.Duration
}

// Load reads a .env file if present and resolves the full configuration.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}

	return Config{
		Env:  GetEnv("ENV", "development"),
		Port: GetEnv("PORT", "3000"),

		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBUser:     GetEnv("DB_USER", "postgres"),
		DBPassword: GetEnv("DB_PASSWORD", "postgres"),
		DBName:     GetEnv("DB_NAME", "nilepay"),
		DBPort:     GetEnv("DB_PORT", "5432"),

		RedisAddr:     GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),

		StripeSecretKey:     GetEnv("STRIPE_SECRET_KEY", ""),
		StripePaymentSecret: GetEnv("STRIPE_PAYMENT_WEBHOOK_SECRET", ""),
		StripeConnectSecret: GetEnv("STRIPE_CONNECT_WEBHOOK_SECRET", ""),

		JWTSecret: GetEnv("JWT_SECRET", "nilepay"),

		FrontendURL: GetEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:  GetEnv("BACKEND_URL", "http://localhost:3000"),

		Currency:          GetEnv("CURRENCY", "usd"),
		ExpiryDelay:       GetDurationEnv("CHECKOUT_EXPIRY_DELAY", 24*time.Hour),
		WorkerConcurrency: GetIntEnv("WORKER_CONCURRENCY", 4),
		WorkerPollEvery:   GetDurationEnv("WORKER_POLL_INTERVAL", 5*time.Second),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
