// Package config loads cfp-search settings from defaults, an optional YAML
// file, a .env file and CFP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/logger"
)

// Defaults mirror the public WikiCFP search tool.
const (
	DefaultBaseURL        = "http://www.wikicfp.com"
	DefaultSearchPath     = "/cfp/servlet/tool.search"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultRequestTimeout = 30 * time.Second
	DefaultDetailWorkers  = 1
	DefaultMaxBodyBytes   = 8 << 20
	DefaultListenAddr     = ":8000"

	EnvPrefix = "CFP"
)

// Configuration validation errors.
var (
	ErrInvalidBaseURL       = errors.New("base_url must be an absolute http(s) URL")
	ErrInvalidSearchPath    = errors.New("search_path must start with '/'")
	ErrMissingUserAgent     = errors.New("user_agent is required")
	ErrInvalidTimeout       = errors.New("request_timeout must be positive")
	ErrInvalidDetailWorkers = errors.New("detail_workers must be at least 1")
	ErrInvalidMaxBodyBytes  = errors.New("max_body_bytes must be positive")
)

// Config holds the scraper and service settings.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	SearchPath     string        `mapstructure:"search_path"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DetailWorkers  int           `mapstructure:"detail_workers"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	Year           string        `mapstructure:"year"`
	LogLevel       string        `mapstructure:"log_level"`
	ListenAddr     string        `mapstructure:"listen_addr"`
}

// SearchURL returns the absolute URL of the search endpoint.
func (c *Config) SearchURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.SearchPath
}

// YearFilter returns the parsed year filter. Load has already validated it.
func (c *Config) YearFilter() conference.YearFilter {
	y, err := conference.ParseYearFilter(c.Year)
	if err != nil {
		return conference.ThisYear
	}
	return y
}

// Level returns the parsed log level. Load has already validated it.
func (c *Config) Level() logger.Level {
	l, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return l
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		SearchPath:     DefaultSearchPath,
		UserAgent:      DefaultUserAgent,
		RequestTimeout: DefaultRequestTimeout,
		DetailWorkers:  DefaultDetailWorkers,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		Year:           conference.ThisYear.String(),
		LogLevel:       "info",
		ListenAddr:     DefaultListenAddr,
	}
}

// NewViper returns a viper instance with defaults registered and CFP_*
// environment variables enabled. Callers may bind command-line flags to it
// before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("search_path", d.SearchPath)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("detail_workers", d.DetailWorkers)
	v.SetDefault("max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("year", d.Year)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("listen_addr", d.ListenAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration into a Config. When configFile is empty a
// config.yaml in the working directory or ./configs is used if present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFile()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory when it exists.
// Variables already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		logger.Warn("could not load .env file", logger.Fields{"path": ".env"}, err)
	}
}

// Validate checks the configuration for values the scraper cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if !strings.HasPrefix(c.SearchPath, "/") {
		return ErrInvalidSearchPath
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrMissingUserAgent
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DetailWorkers < 1 {
		return ErrInvalidDetailWorkers
	}
	if c.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}
	if _, err := conference.ParseYearFilter(c.Year); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
