// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is the full service configuration.
type Config struct {
	HTTP       HTTPConfig
	LiveClient LiveClientConfig
	Rules      RulesConfig
	Assets     AssetsConfig
	Webhook    WebhookConfig
	Redis      RedisConfig
	Journal    JournalConfig
	Auth       AuthConfig
	Logger     LoggerConfig

	// TimingsFile optionally overrides objective and wave timings.
	TimingsFile string `env:"RIFTCOACH_TIMINGS"`
}

// HTTPConfig is the overlay API listener.
type HTTPConfig struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8089"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxWSConnections  int           `env:"WS_MAX_CONNECTIONS" envDefault:"64"`
}

// LiveClientConfig is the upstream game client.
type LiveClientConfig struct {
	URL          string        `env:"LIVE_CLIENT_URL" envDefault:"https://127.0.0.1:2999/liveclientdata"`
	Timeout      time.Duration `env:"LIVE_CLIENT_TIMEOUT" envDefault:"2s"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
}

// RulesConfig locates tip rule documents.
type RulesConfig struct {
	Dir            string        `env:"RULES_DIR" envDefault:"rules"`
	ReloadInterval time.Duration `env:"RULES_RELOAD_INTERVAL" envDefault:"2s"`
}

// AssetsConfig is the static asset catalog used for icons.
type AssetsConfig struct {
	Enabled  bool          `env:"ASSETS_ENABLED" envDefault:"true"`
	BaseURL  string        `env:"ASSETS_BASE_URL" envDefault:"https://ddragon.leagueoflegends.com"`
	Locale   string        `env:"ASSETS_LOCALE" envDefault:"en_US"`
	CacheTTL time.Duration `env:"ASSETS_CACHE_TTL" envDefault:"6h"`
	Timeout  time.Duration `env:"ASSETS_TIMEOUT" envDefault:"3s"`
}

// WebhookConfig is the optional outbound tip webhook.
type WebhookConfig struct {
	URL         string        `env:"TIP_WEBHOOK_URL"`
	Template    string        `env:"TIP_WEBHOOK_TEMPLATE"`
	Timeout     time.Duration `env:"TIP_WEBHOOK_TIMEOUT" envDefault:"5s"`
	MinSeverity string        `env:"TIP_WEBHOOK_MIN_SEVERITY" envDefault:"info"`
	RatePerMin  int           `env:"TIP_WEBHOOK_RATE_PER_MIN" envDefault:"30"`
}

// RedisConfig is the optional pub/sub relay.
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR"`
	Password      string `env:"REDIS_PASSWORD"`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	ChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"riftcoach"`
}

// JournalConfig is the optional Postgres tip journal.
type JournalConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

// AuthConfig enables bearer-token auth on the API when a secret is set.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
}

// LoggerConfig configures zap.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Mode  string `env:"LOG_MODE" envDefault:"production"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("config: HTTP_ADDR is required"))
	}
	if c.LiveClient.PollInterval <= 0 {
		errs = append(errs, errors.New("config: POLL_INTERVAL must be positive"))
	}
	if c.LiveClient.TickInterval <= 0 {
		errs = append(errs, errors.New("config: TICK_INTERVAL must be positive"))
	}
	if c.Rules.Dir == "" {
		errs = append(errs, errors.New("config: RULES_DIR is required"))
	}
	if c.Rules.ReloadInterval <= 0 {
		errs = append(errs, errors.New("config: RULES_RELOAD_INTERVAL must be positive"))
	}
	if _, err := url.Parse(c.LiveClient.URL); err != nil {
		errs = append(errs, fmt.Errorf("config: LIVE_CLIENT_URL: %w", err))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("config: REDIS_DB must not be negative"))
	}
	return errors.Join(errs...)
}

// WebhookEnabled reports whether tips are pushed to a webhook.
func (c *Config) WebhookEnabled() bool { return c.Webhook.URL != "" }

// RelayEnabled reports whether events are relayed on Redis.
func (c *Config) RelayEnabled() bool { return c.Redis.Addr != "" }

// JournalEnabled reports whether tips are journaled in Postgres.
func (c *Config) JournalEnabled() bool { return c.Journal.DatabaseURL != "" }

// AuthEnabled reports whether the API requires bearer tokens.
func (c *Config) AuthEnabled() bool { return c.Auth.JWTSecret != "" }
