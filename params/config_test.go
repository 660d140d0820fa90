package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.RequireSignatures {
		t.Error("signatures required by default")
	}
	if cfg.Dex.MaxOrdersPerUser != 16 || cfg.Dex.MaxOrdersPerBook != 256 {
		t.Errorf("limits = %d/%d", cfg.Dex.MaxOrdersPerUser, cfg.Dex.MaxOrdersPerBook)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REQUIRE_SIGNATURES", "true")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("ADMIN_ADDRESS", "0x00000000000000000000000000000000000000ad")
	t.Setenv("MAX_ORDERS_PER_USER", "5")
	t.Setenv("MAX_ORDERS_PER_BOOK", "50")

	cfg := LoadFromEnv("")

	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if !cfg.HTTP.RequireSignatures {
		t.Error("REQUIRE_SIGNATURES not applied")
	}
	if cfg.Node.DBPath != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.Node.DBPath)
	}
	if cfg.Dex.AdminAddress != "0x00000000000000000000000000000000000000ad" {
		t.Errorf("admin = %q", cfg.Dex.AdminAddress)
	}
	if cfg.Dex.MaxOrdersPerUser != 5 || cfg.Dex.MaxOrdersPerBook != 50 {
		t.Errorf("limits = %d/%d", cfg.Dex.MaxOrdersPerUser, cfg.Dex.MaxOrdersPerBook)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("HTTP_ADDR=:7070\nMAX_ORDERS_PER_USER=3\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	// godotenv never overrides variables already present in the
	// environment, so clear them for the duration of this test.
	for _, k := range []string{"HTTP_ADDR", "MAX_ORDERS_PER_USER"} {
		t.Setenv(k, "") // registers restore
		os.Unsetenv(k)
	}

	cfg := LoadFromEnv(envPath)
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("addr = %q, want value from .env", cfg.HTTP.Addr)
	}
	if cfg.Dex.MaxOrdersPerUser != 3 {
		t.Errorf("per-user = %d, want 3", cfg.Dex.MaxOrdersPerUser)
	}
}

func TestInvalidNumericEnvIgnored(t *testing.T) {
	t.Setenv("MAX_ORDERS_PER_BOOK", "not-a-number")
	cfg := LoadFromEnv("")
	if cfg.Dex.MaxOrdersPerBook != 256 {
		t.Errorf("per-book = %d, want default 256", cfg.Dex.MaxOrdersPerBook)
	}
}

func TestAllowedOriginsFromEnv(t *testing.T) {
	cfg := Default()
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("default origins = %v", cfg.HTTP.AllowedOrigins)
	}

	t.Setenv("ALLOWED_ORIGINS", "https://dex.example.com, https://staging.example.com ,")
	cfg = LoadFromEnv("")
	want := []string{"https://dex.example.com", "https://staging.example.com"}
	if len(cfg.HTTP.AllowedOrigins) != len(want) {
		t.Fatalf("origins = %v, want %v", cfg.HTTP.AllowedOrigins, want)
	}
	for i, o := range want {
		if cfg.HTTP.AllowedOrigins[i] != o {
			t.Fatalf("origins[%d] = %q, want %q", i, cfg.HTTP.AllowedOrigins[i], o)
		}
	}
}
