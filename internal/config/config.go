// Package config loads the web client's settings from .env, the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "JOBIFY"

// Config keys.
const (
	KeyAPIBaseURL      = "api_base_url"
	KeyListenAddr      = "listen_addr"
	KeyStaleTime       = "stale_time"
	KeyRequestTimeout  = "request_timeout"
	KeyCacheMaxEntries = "cache_max_entries"
	KeyQueryRetries    = "query_retries"
	KeyQueryRetryDelay = "query_retry_delay"
	KeyPrefsDriver     = "prefs_driver"
	KeyPrefsDSN        = "prefs_dsn"
	KeyCORSOrigins     = "cors_origins"
	KeyAPIRateLimit    = "api_rate_limit"
	KeyAPIRateBurst    = "api_rate_burst"
)

// Preference store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	APIBaseURL      string
	ListenAddr      string
	StaleTime       time.Duration
	RequestTimeout  time.Duration
	CacheMaxEntries int
	QueryRetries    int
	QueryRetryDelay time.Duration
	PrefsDriver     string
	PrefsDSN        string

	// CORSOrigins lists allowed origins; empty allows all.
	CORSOrigins []string

	// APIRateLimit caps requests per second to the API; zero means no cap.
	APIRateLimit float64
	APIRateBurst int
}

// Load reads .env (if present) into the environment, then builds the Config from
// JOBIFY_* variables and, when configFile is not empty, that file.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	return FromViper(v)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAPIBaseURL, "http://localhost:5100/api/v1")
	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeyStaleTime, 5*time.Minute)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyCacheMaxEntries, 256)
	v.SetDefault(KeyQueryRetries, 3)
	v.SetDefault(KeyQueryRetryDelay, time.Second)
	v.SetDefault(KeyPrefsDriver, DriverSQLite)
	v.SetDefault(KeyPrefsDSN, "jobify-prefs.db")
	v.SetDefault(KeyCORSOrigins, []string{})
	v.SetDefault(KeyAPIRateLimit, 0.0)
	v.SetDefault(KeyAPIRateBurst, 10)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// FromViper builds and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIBaseURL:      v.GetString(KeyAPIBaseURL),
		ListenAddr:      v.GetString(KeyListenAddr),
		StaleTime:       v.GetDuration(KeyStaleTime),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		CacheMaxEntries: v.GetInt(KeyCacheMaxEntries),
		QueryRetries:    v.GetInt(KeyQueryRetries),
		QueryRetryDelay: v.GetDuration(KeyQueryRetryDelay),
		PrefsDriver:     v.GetString(KeyPrefsDriver),
		PrefsDSN:        v.GetString(KeyPrefsDSN),
		CORSOrigins:     v.GetStringSlice(KeyCORSOrigins),
		APIRateLimit:    v.GetFloat64(KeyAPIRateLimit),
		APIRateBurst:    v.GetInt(KeyAPIRateBurst),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute url", KeyAPIBaseURL, c.APIBaseURL)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%s is empty", KeyListenAddr)
	}
	if c.StaleTime <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyStaleTime, c.StaleTime)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyCacheMaxEntries, c.CacheMaxEntries)
	}
	if c.QueryRetries < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyQueryRetries, c.QueryRetries)
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %g", KeyAPIRateLimit, c.APIRateLimit)
	}
	if c.APIRateLimit > 0 && c.APIRateBurst <= 0 {
		return fmt.Errorf("%s must be positive when %s is set, got %d", KeyAPIRateBurst, KeyAPIRateLimit, c.APIRateBurst)
	}
	switch c.PrefsDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%s: unknown driver %q", KeyPrefsDriver, c.PrefsDriver)
	}
	if c.PrefsDSN == "" {
		return fmt.Errorf("%s is empty", KeyPrefsDSN)
	}
	return nil
}
