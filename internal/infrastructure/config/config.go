package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
	} `toml:"app"`

	Exchange struct {
		BaseURL      string `toml:"base_url"`
		LoginPageURL string `toml:"login_page_url"`
		SubaccountID int    `toml:"subaccount_id"`
	} `toml:"exchange"`

	Captcha struct {
		APIKey       string `toml:"api_key"`
		SiteKey      string `toml:"site_key"`
		PageURL      string `toml:"page_url"`
		CreateURL    string `toml:"create_url"`
		ResultURL    string `toml:"result_url"`
		Attempts     int    `toml:"attempts"`
		PollDelaySec int    `toml:"poll_delay_sec"`
	} `toml:"captcha"`

	TwoFA struct {
		Enabled bool `toml:"enabled"`
	} `toml:"twofa"`

	// Two windows for the same semantic check: live sessions revalidate on
	// session_ttl_sec, rows read back from storage on store_ttl_sec.
	Cookies struct {
		SessionTTLSec int `toml:"session_ttl_sec"`
		StoreTTLSec   int `toml:"store_ttl_sec"`
	} `toml:"cookies"`

	Session struct {
		TimeoutSec     int `toml:"timeout_sec"`
		LongTimeoutSec int `toml:"long_timeout_sec"`
	} `toml:"session"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
	} `toml:"redis"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = "https://arkm.com"
	}
	if cfg.Exchange.LoginPageURL == "" {
		cfg.Exchange.LoginPageURL = "https://arkm.com/login?redirectPath=%2F"
	}
	if cfg.Captcha.CreateURL == "" {
		cfg.Captcha.CreateURL = "http://2captcha.com/in.php"
	}
	if cfg.Captcha.ResultURL == "" {
		cfg.Captcha.ResultURL = "http://2captcha.com/res.php"
	}
	if cfg.Captcha.Attempts <= 0 {
		cfg.Captcha.Attempts = 10
	}
	if cfg.Captcha.PollDelaySec <= 0 {
		cfg.Captcha.PollDelaySec = 5
	}
	if cfg.Cookies.SessionTTLSec <= 0 {
		cfg.Cookies.SessionTTLSec = 1800
	}
	if cfg.Cookies.StoreTTLSec <= 0 {
		cfg.Cookies.StoreTTLSec = 3600
	}
	if cfg.Session.TimeoutSec <= 0 {
		cfg.Session.TimeoutSec = 30
	}
	if cfg.Session.LongTimeoutSec <= 0 {
		cfg.Session.LongTimeoutSec = 300
	}
	if !cfg.SQLite.Enabled && !cfg.Postgres.Enabled {
		cfg.SQLite.Enabled = true
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/accounts.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "arkx"
	}
}

// applyEnv lets secrets come from the environment instead of the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ARKX_CAPTCHA_KEY"); v != "" {
		cfg.Captcha.APIKey = v
	}
	if v := os.Getenv("ARKX_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("ARKX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Exchange.BaseURL) == "" {
		return errors.New("exchange.base_url is empty")
	}
	if strings.TrimSpace(cfg.Captcha.SiteKey) == "" {
		return errors.New("captcha.site_key is empty")
	}
	if cfg.Captcha.PageURL == "" {
		cfg.Captcha.PageURL = cfg.Exchange.LoginPageURL
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	return nil
}

func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutSec) * time.Second
}

func (c *Config) LongTimeout() time.Duration {
	return time.Duration(c.Session.LongTimeoutSec) * time.Second
}

func (c *Config) CaptchaPollDelay() time.Duration {
	return time.Duration(c.Captcha.PollDelaySec) * time.Second
}

func (c *Config) CookieSessionTTL() time.Duration {
	return time.Duration(c.Cookies.SessionTTLSec) * time.Second
}

func (c *Config) CookieStoreTTL() time.Duration {
	return time.Duration(c.Cookies.StoreTTLSec) * time.Second
}
