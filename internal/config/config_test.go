package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CLOUDFLARE_API_TOKEN", "token")
	t.Setenv("CLOUDFLARE_ZONE_ID", "zone")
	t.Setenv("CLOUDFLARE_EMAIL_DOMAIN", "example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %s", cfg.Port)
	}
	if cfg.Cloudflare.BaseURL != "https://api.cloudflare.com/client/v4" {
		t.Errorf("unexpected base url %s", cfg.Cloudflare.BaseURL)
	}
	if cfg.Cloudflare.Timeout != 10*time.Second || cfg.Cloudflare.RetryAttempts != 3 || cfg.Cloudflare.RetryDelay != time.Second {
		t.Errorf("unexpected retry settings: %+v", cfg.Cloudflare)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected redis addr %s", cfg.Redis.Addr)
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp should be disabled without a host")
	}
}

func TestLoadMissingCloudflareSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CLOUDFLARE_API_TOKEN", "")
	t.Setenv("CLOUDFLARE_ZONE_ID", "")
	t.Setenv("CLOUDFLARE_EMAIL_DOMAIN", "")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"CLOUDFLARE_API_TOKEN", "CLOUDFLARE_ZONE_ID", "CLOUDFLARE_EMAIL_DOMAIN"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in error, got %v", name, err)
		}
	}
}

func TestLoadMissingJWTSecret(t *testing.T) {
	setRequired(t)
	os.Unsetenv("JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadDotenvFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("CFMAIL_TEST_PORT_OVERRIDE=1\nCLOUDFLARE_ACCOUNT_ID=acct-from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CFMAIL_TEST_PORT_OVERRIDE")
		os.Unsetenv("CLOUDFLARE_ACCOUNT_ID")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cloudflare.AccountID != "acct-from-file" {
		t.Errorf("expected account id from file, got %q", cfg.Cloudflare.AccountID)
	}
}

func TestLoadAdminRequiresCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected error for incomplete admin seed")
	}
}

type envTestConfig struct {
	Port int `env:"CFMAIL_TEST_PORT" envDefault:"123"`
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CFMAIL_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
