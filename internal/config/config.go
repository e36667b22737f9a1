package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"remindmail/internal/utils"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment
type Config struct {
	Port        string
	DatabaseURL string

	CronSecret              string
	DefaultTimeZone         string
	AllowedOrigins          []string
	SweepInterval           string
	SweepRetryConfirmations bool
	ClaimLease              time.Duration

	SendGridAPIKey string
	FromEmail      string
	FromName       string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SubmitRateLimit  int
	SubmitRateWindow time.Duration
}

// Load reads .env (when present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dsn, err := databaseURL()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                    GetString("PORT", "8080"),
		DatabaseURL:             dsn,
		CronSecret:              GetString("CRON_SECRET", ""),
		DefaultTimeZone:         GetString("DEFAULT_TIME_ZONE", "UTC"),
		AllowedOrigins:          GetList("ALLOWED_ORIGINS", []string{"*"}),
		SweepInterval:           GetString("SWEEP_INTERVAL", ""),
		SweepRetryConfirmations: GetBool("SWEEP_RETRY_CONFIRMATIONS", true),
		ClaimLease:              GetDuration("CLAIM_LEASE", 10*time.Minute),
		SendGridAPIKey:          GetString("SENDGRID_API_KEY", ""),
		FromEmail:               GetString("SENDGRID_FROM_EMAIL", "reminders@example.com"),
		FromName:                GetString("SENDGRID_FROM_NAME", "Reminders"),
		RedisAddr:               GetString("REDIS_ADDR", ""),
		RedisPassword:           GetString("REDIS_PASSWORD", ""),
		RedisDB:                 GetInt("REDIS_DB", 0),
		SubmitRateLimit:         GetInt("SUBMIT_RATE_LIMIT", 10),
		SubmitRateWindow:        GetDuration("SUBMIT_RATE_WINDOW", time.Minute),
	}

	if _, err := utils.ResolveLocation(cfg.DefaultTimeZone, time.UTC); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIME_ZONE %q: %w", cfg.DefaultTimeZone, err)
	}
	return cfg, nil
}

// databaseURL uses DATABASE_URL in release mode and the individual DB_* parameters otherwise
func databaseURL() (string, error) {
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("DATABASE_URL") != "" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return "", errors.New("required environment variable DATABASE_URL is not set")
		}
		return dsn, nil
	}

	var missing []string
	required := func(key string) string {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			missing = append(missing, key)
		}
		return value
	}
	host := required("DB_HOST")
	user := required("DB_USER")
	password := required("DB_PASSWORD")
	dbname := required("DB_NAME")
	port := required("DB_PORT")
	if len(missing) > 0 {
		return "", fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	sslMode := GetString("DB_SSL_MODE", "disable")

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		host, user, password, dbname, port, sslMode), nil
}

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetDuration retrieves an environment variable as a duration or returns fallback.
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetList splits a comma separated environment variable
func GetList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
