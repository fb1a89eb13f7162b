package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[captcha]
site_key = "0xSITE"
api_key = "key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Exchange.BaseURL != "https://arkm.com" {
		t.Errorf("base_url default: got %q", cfg.Exchange.BaseURL)
	}
	if cfg.Captcha.Attempts != 10 {
		t.Errorf("captcha attempts default: got %d", cfg.Captcha.Attempts)
	}
	if cfg.Cookies.SessionTTLSec != 1800 || cfg.Cookies.StoreTTLSec != 3600 {
		t.Errorf("cookie ttl defaults: got %d/%d", cfg.Cookies.SessionTTLSec, cfg.Cookies.StoreTTLSec)
	}
	if !cfg.SQLite.Enabled {
		t.Error("sqlite must be the default backend")
	}
	if cfg.Captcha.PageURL == "" {
		t.Error("captcha page_url must default to the login page")
	}
}

func TestLoadRejectsMissingSiteKey(t *testing.T) {
	path := writeConfig(t, `
[app]
log_level = "debug"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing captcha.site_key")
	}
}

func TestLoadRejectsEnabledPostgresWithoutDSN(t *testing.T) {
	path := writeConfig(t, `
[captcha]
site_key = "0xSITE"

[postgres]
enabled = true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for postgres.dsn")
	}
}

func TestEnvOverridesCaptchaKey(t *testing.T) {
	t.Setenv("ARKX_CAPTCHA_KEY", "from-env")
	path := writeConfig(t, `
[captcha]
site_key = "0xSITE"
api_key = "from-file"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Captcha.APIKey != "from-env" {
		t.Errorf("captcha api key: got %q, expected env override", cfg.Captcha.APIKey)
	}
}
