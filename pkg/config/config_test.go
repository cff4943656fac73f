package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}

	if cfg.Upstream.BaseURL != "https://api.livedatanow.com/api/online-order" {
		t.Fatalf("unexpected upstream base url %q", cfg.Upstream.BaseURL)
	}

	if !cfg.Cart.TaxRate.Equal(decimal.RequireFromString("0.0832")) {
		t.Fatalf("expected default tax rate 0.0832, got %s", cfg.Cart.TaxRate)
	}

	if cfg.Cart.SortModifiers {
		t.Fatal("expected order-sensitive modifier identity by default")
	}

	if got := cfg.Checkout.IdempotencyTTL; got != 168*time.Hour {
		t.Fatalf("expected idempotency ttl 168h, got %v", got)
	}

	if cfg.KV.Backend != KVBackendRedis {
		t.Fatalf("expected redis kv backend, got %q", cfg.KV.Backend)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvTaxRate, "0.1")
	t.Setenv(EnvSortModifiers, "true")
	t.Setenv(EnvKVBackend, "Memory")
	t.Setenv(EnvWebOrderToken, "server-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.Cart.TaxRate.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected tax rate 0.1, got %s", cfg.Cart.TaxRate)
	}
	if !cfg.Cart.SortModifiers {
		t.Fatal("expected sort modifiers override")
	}
	if cfg.KV.Backend != KVBackendMemory {
		t.Fatalf("expected normalized memory backend, got %q", cfg.KV.Backend)
	}
	if cfg.Upstream.WebOrderToken != "server-token" {
		t.Fatalf("unexpected web order token %q", cfg.Upstream.WebOrderToken)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_InvalidKVBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvKVBackend, "localstorage")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown kv backend to return an error")
	}
}

func TestLoad_SQLBackendBuildsDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvKVBackend, KVBackendSQL)
	t.Setenv(EnvDBHost, "db.internal")
	t.Setenv(EnvDBUser, "storefront")
	t.Setenv(EnvDBName, "storefront")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	want := "postgres://storefront@db.internal:5432/storefront?sslmode=disable"
	if cfg.DB.DSN != want {
		t.Fatalf("expected dsn %q, got %q", want, cfg.DB.DSN)
	}
}

func TestLoad_SQLBackendMissingDB(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvKVBackend, KVBackendSQL)

	if _, err := Load(); err == nil {
		t.Fatal("expected sql backend without db settings to fail")
	}
}

func TestLoad_SQLiteFlagSwitchesDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvKVBackend, KVBackendSQL)
	t.Setenv(EnvUseSQLite, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DB.Driver != DBDriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.DB.Driver)
	}
	if cfg.DB.DSN != "" {
		t.Fatalf("sqlite mode should not build a postgres dsn, got %q", cfg.DB.DSN)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvDeviceSecret, "device-secret")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
