// Package config handles configuration loading for indexdash.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. INDEXDASH_SERVER_PORT.
const EnvPrefix = "INDEXDASH"

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Sources   SourcesConfig   `mapstructure:"sources" yaml:"sources" json:"sources"`
	Provider  ProviderConfig  `mapstructure:"provider" yaml:"provider" json:"provider"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard" json:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" json:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `mapstructure:"host" yaml:"host" json:"host"`
	Port            int      `mapstructure:"port" yaml:"port" json:"port" validate:"min=1,max=65535"`
	CORSOrigins     []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	ReadTimeoutSec  int      `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec" json:"read_timeout_sec" validate:"min=1"`
	WriteTimeoutSec int      `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec" json:"write_timeout_sec" validate:"min=1"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourcesConfig locates the index constituent lists.
type SourcesConfig struct {
	SP500URL string `mapstructure:"sp500_url" yaml:"sp500_url" json:"sp500_url" validate:"required,url"`
	NiftyURL string `mapstructure:"nifty_url" yaml:"nifty_url" json:"nifty_url" validate:"required,url"`
}

// ProviderConfig holds the market data provider endpoints.
type ProviderConfig struct {
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=1,max=300"`
	UserAgent       string  `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	RateLimit       float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"min=0"` // requests per second, 0 is unlimited
	RateBurst       int     `mapstructure:"rate_burst" yaml:"rate_burst" json:"rate_burst" validate:"min=0"`
	ChartURL        string  `mapstructure:"chart_url" yaml:"chart_url" json:"chart_url" validate:"required,url"`
	QuoteSummaryURL string  `mapstructure:"quote_summary_url" yaml:"quote_summary_url" json:"quote_summary_url" validate:"required,url"`
	TimeseriesURL   string  `mapstructure:"timeseries_url" yaml:"timeseries_url" json:"timeseries_url" validate:"required,url"`
	CrumbURL        string  `mapstructure:"crumb_url" yaml:"crumb_url" json:"crumb_url" validate:"required,url"`
	CookieURL       string  `mapstructure:"cookie_url" yaml:"cookie_url" json:"cookie_url" validate:"required,url"`
	HeadlinesURL    string  `mapstructure:"headlines_url" yaml:"headlines_url" json:"headlines_url" validate:"required"`
}

// DashboardConfig holds dashboard behaviour switches.
type DashboardConfig struct {
	DefaultIndex       string `mapstructure:"default_index" yaml:"default_index" json:"default_index" validate:"oneof=sp500 nifty"`
	StrictLineItems    bool   `mapstructure:"strict_line_items" yaml:"strict_line_items" json:"strict_line_items"`
	LiveQuote          bool   `mapstructure:"live_quote" yaml:"live_quote" json:"live_quote"`
	Headlines          bool   `mapstructure:"headlines" yaml:"headlines" json:"headlines"`
	HeadlineLimit      int    `mapstructure:"headline_limit" yaml:"headline_limit" json:"headline_limit" validate:"min=0,max=50"`
	SessionIdleMinutes int    `mapstructure:"session_idle_minutes" yaml:"session_idle_minutes" json:"session_idle_minutes" validate:"min=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`                // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.indexdash/config.yaml (home directory)
//  3. /etc/indexdash/config.yaml (system)
//
// Environment variables override config file values.
// Format: INDEXDASH_<SECTION>_<KEY>, e.g., INDEXDASH_SERVER_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".indexdash"))
	v.AddConfigPath("/etc/indexdash")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = path
	return cfg, nil
}

// Default returns the configuration built from defaults and environment only.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults always decode; only a malformed env override can land here.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Dashboard.DefaultIndex = strings.ToLower(cfg.Dashboard.DefaultIndex)
	return &cfg, nil
}

// Validate checks field constraints and returns one error listing every
// violation.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout_sec", 30)
	v.SetDefault("server.write_timeout_sec", 120)

	// Symbol list sources
	v.SetDefault("sources.sp500_url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	v.SetDefault("sources.nifty_url", "https://github.com/Vishnusoman2107/Streamlitapptest/raw/4b12da88a809bbf2f8d8e3ee65e936153898cd8b/Book2.xlsx")

	// Provider defaults
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.user_agent", "")
	v.SetDefault("provider.rate_limit", 4.0)
	v.SetDefault("provider.rate_burst", 4)
	v.SetDefault("provider.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("provider.quote_summary_url", "https://query2.finance.yahoo.com/v10/finance/quoteSummary")
	v.SetDefault("provider.timeseries_url", "https://query2.finance.yahoo.com/ws/fundamentals-timeseries/v1/finance/timeseries")
	v.SetDefault("provider.crumb_url", "https://query1.finance.yahoo.com/v1/test/getcrumb")
	v.SetDefault("provider.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("provider.headlines_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")

	// Dashboard defaults
	v.SetDefault("dashboard.default_index", "sp500")
	v.SetDefault("dashboard.strict_line_items", false)
	v.SetDefault("dashboard.live_quote", true)
	v.SetDefault("dashboard.headlines", true)
	v.SetDefault("dashboard.headline_limit", 5)
	v.SetDefault("dashboard.session_idle_minutes", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
