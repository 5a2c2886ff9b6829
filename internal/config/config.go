package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all runtime configuration for the broker.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration

	StoreDriver string
	DatabaseURL string

	// RedisAddr enables the distributed lock when set.
	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	AlertTriggerPolicy domain.TriggerPolicy
	AlertCheckDelay    time.Duration
	// PriceTickInterval of zero disables background price simulation.
	PriceTickInterval time.Duration

	InitialBalance int64 // cents
	SeedFile       string

	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadDotEnv loads variables from the given files into the environment.
// Missing files are skipped and variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	storeDriver := getStr("STORE_DRIVER", DriverMemory)
	databaseURL := getStr("DATABASE_URL", "")
	switch storeDriver {
	case DriverMemory:
	case DriverSQLite:
		if databaseURL == "" {
			databaseURL = "file:minibroker.db"
		}
	case DriverPostgres:
		if databaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: memory, sqlite, postgres", storeDriver)
	}

	lockTTL, err := getDuration("LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	if lockTTL <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TTL: must be positive, got %s", lockTTL)
	}

	policy, err := domain.ParseTriggerPolicy(getStr("ALERT_TRIGGER_POLICY", string(domain.TriggerPolicyInclusive)))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_TRIGGER_POLICY: %w", err)
	}

	checkDelay, err := getNonNegativeDuration("ALERT_CHECK_DELAY", 0)
	if err != nil {
		return nil, err
	}

	tickInterval, err := getNonNegativeDuration("PRICE_TICK_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	initialBalance, err := getDollars("INITIAL_BALANCE", 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
	}

	rps, err := getFloat("RATE_LIMIT_RPS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if rps < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: must be >= 0, got %v", rps)
	}

	burst, err := getInt("RATE_LIMIT_BURST", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if burst < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: must be >= 1, got %d", burst)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
		WebhookTimeout:     webhookTimeout,
		StoreDriver:        storeDriver,
		DatabaseURL:        databaseURL,
		RedisAddr:          getStr("REDIS_ADDR", ""),
		RedisPassword:      getStr("REDIS_PASSWORD", ""),
		LockTTL:            lockTTL,
		AlertTriggerPolicy: policy,
		AlertCheckDelay:    checkDelay,
		PriceTickInterval:  tickInterval,
		InitialBalance:     initialBalance,
		SeedFile:           getStr("SEED_FILE", ""),
		RateLimitRPS:       rps,
		RateLimitBurst:     burst,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getNonNegativeDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must be >= 0, got %s", key, d)
	}
	return d, nil
}

// getDollars parses a dollar amount with at most two decimals into cents.
func getDollars(key string, defaultCents int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultCents, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("must be >= 0, got %s", v)
	}
	return domain.DollarsToCents(f)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
