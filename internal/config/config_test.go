package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.WebhookTimeout != 5*time.Second {
		t.Errorf("WebhookTimeout = %v, want 5s", cfg.WebhookTimeout)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.StoreDriver != DriverMemory || cfg.DatabaseURL != "" {
		t.Errorf("store = %q %q, want memory with no url", cfg.StoreDriver, cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.LockTTL != 10*time.Second {
		t.Errorf("LockTTL = %v, want 10s", cfg.LockTTL)
	}
	if cfg.AlertTriggerPolicy != domain.TriggerPolicyInclusive {
		t.Errorf("AlertTriggerPolicy = %q, want inclusive", cfg.AlertTriggerPolicy)
	}
	if cfg.AlertCheckDelay != 0 || cfg.PriceTickInterval != 0 {
		t.Errorf("delay/tick = %v/%v, want 0/0", cfg.AlertCheckDelay, cfg.PriceTickInterval)
	}
	if cfg.InitialBalance != 1_000_000 {
		t.Errorf("InitialBalance = %d, want 1000000", cfg.InitialBalance)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Errorf("rate limit = %v/%d, want 50/100", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEBHOOK_TIMEOUT", "3s")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "5s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://broker@localhost/broker")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("LOCK_TTL", "2s")
	t.Setenv("ALERT_TRIGGER_POLICY", "strict")
	t.Setenv("ALERT_CHECK_DELAY", "50ms")
	t.Setenv("PRICE_TICK_INTERVAL", "1s")
	t.Setenv("INITIAL_BALANCE", "2500.50")
	t.Setenv("SEED_FILE", "/etc/minibroker/seed.json")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.WebhookTimeout != 3*time.Second {
		t.Errorf("WebhookTimeout = %v, want 3s", cfg.WebhookTimeout)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.DatabaseURL != "postgres://broker@localhost/broker" {
		t.Errorf("store = %q %q", cfg.StoreDriver, cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisPassword != "secret" || cfg.LockTTL != 2*time.Second {
		t.Errorf("redis = %q %q %v", cfg.RedisAddr, cfg.RedisPassword, cfg.LockTTL)
	}
	if cfg.AlertTriggerPolicy != domain.TriggerPolicyStrict || cfg.AlertCheckDelay != 50*time.Millisecond {
		t.Errorf("alerts = %q %v", cfg.AlertTriggerPolicy, cfg.AlertCheckDelay)
	}
	if cfg.PriceTickInterval != time.Second {
		t.Errorf("PriceTickInterval = %v, want 1s", cfg.PriceTickInterval)
	}
	if cfg.InitialBalance != 250050 {
		t.Errorf("InitialBalance = %d, want 250050", cfg.InitialBalance)
	}
	if cfg.SeedFile != "/etc/minibroker/seed.json" {
		t.Errorf("SeedFile = %q", cfg.SeedFile)
	}
	if cfg.RateLimitRPS != 0.5 || cfg.RateLimitBurst != 3 {
		t.Errorf("rate limit = %v/%d, want 0.5/3", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_SQLiteDefaultsDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "file:minibroker.db" {
		t.Errorf("DatabaseURL = %q, want file:minibroker.db", cfg.DatabaseURL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "not-a-number"}},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"store driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"zero lock ttl", map[string]string{"LOCK_TTL": "0s"}},
		{"trigger policy", map[string]string{"ALERT_TRIGGER_POLICY": "sometimes"}},
		{"negative check delay", map[string]string{"ALERT_CHECK_DELAY": "-1s"}},
		{"negative tick", map[string]string{"PRICE_TICK_INTERVAL": "-5s"}},
		{"balance text", map[string]string{"INITIAL_BALANCE": "lots"}},
		{"balance negative", map[string]string{"INITIAL_BALANCE": "-1"}},
		{"balance precision", map[string]string{"INITIAL_BALANCE": "1.001"}},
		{"rps text", map[string]string{"RATE_LIMIT_RPS": "fast"}},
		{"rps negative", map[string]string{"RATE_LIMIT_RPS": "-1"}},
		{"burst zero", map[string]string{"RATE_LIMIT_BURST": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", tt.env)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=7070\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LOG_LEVEL", "error")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from .env", cfg.Port)
	}
	// Variables already in the environment win.
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}
