// ABOUTME: Client configuration stored at XDG paths with environment overrides
// ABOUTME: Holds the backend URL, credentials, tenant id, and poll tuning
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	AppName        = "textback"
	ConfigFileName = "config.json"
	DatabaseName   = "textback.db"

	DefaultAPIBaseURL   = "http://localhost:8000/api/v1"
	DefaultPollInterval = 2 * time.Second
	DefaultLogLevel     = "info"
)

// Duration marshals as a Go duration string ("2s") so the file stays editable.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	// Plain numbers are nanoseconds, like time.Duration's own encoding
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// Config stores backend connection settings.
type Config struct {
	APIBaseURL        string   `json:"api_base_url"`
	SessionCookie     string   `json:"session_cookie,omitempty"`
	SessionCookieName string   `json:"session_cookie_name,omitempty"`
	APIKey            string   `json:"api_key,omitempty"`
	BusinessID        string   `json:"business_id,omitempty"`
	PollInterval      Duration `json:"poll_interval"`
	PollTimeout       Duration `json:"poll_timeout,omitempty"`
	LogLevel          string   `json:"log_level,omitempty"`
}

// DefaultConfig returns a config with defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:   DefaultAPIBaseURL,
		PollInterval: Duration(DefaultPollInterval),
		LogLevel:     DefaultLogLevel,
	}
}

// Dir returns the XDG data directory for textback.
func Dir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), ConfigFileName)
}

// DatabasePath returns the local cache database location.
func DatabasePath() string {
	return filepath.Join(Dir(), DatabaseName)
}

// LogPath is where logs go while the TUI owns the terminal.
func LogPath() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// LoadDotEnv loads .env from the working directory if present.
// Existing environment variables win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the config file, falling back to defaults when it does not exist.
// Environment variables override file values:
// - TEXTBACK_API_URL
// - TEXTBACK_SESSION
// - TEXTBACK_SESSION_COOKIE
// - TEXTBACK_API_KEY
// - TEXTBACK_BUSINESS_ID
// - TEXTBACK_POLL_INTERVAL
// - TEXTBACK_POLL_TIMEOUT
// - TEXTBACK_LOG_LEVEL.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the config file, without environment overrides.
func LoadFile() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TEXTBACK_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("TEXTBACK_SESSION"); v != "" {
		cfg.SessionCookie = v
	}
	if v := os.Getenv("TEXTBACK_SESSION_COOKIE"); v != "" {
		cfg.SessionCookieName = v
	}
	if v := os.Getenv("TEXTBACK_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("TEXTBACK_BUSINESS_ID"); v != "" {
		cfg.BusinessID = v
	}
	if v := os.Getenv("TEXTBACK_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTBACK_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = Duration(d)
	}
	if v := os.Getenv("TEXTBACK_POLL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTBACK_POLL_TIMEOUT: %w", err)
		}
		cfg.PollTimeout = Duration(d)
	}
	if v := os.Getenv("TEXTBACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Save writes the config with owner-only permissions since it holds credentials.
func Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks the values a client can not work without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.APIBaseURL)
	}
	if c.PollInterval < 0 || c.PollTimeout < 0 {
		return fmt.Errorf("poll interval and timeout must not be negative")
	}
	return nil
}

// HasCredentials reports whether a session cookie or API key is configured.
func (c *Config) HasCredentials() bool {
	return c.SessionCookie != "" || c.APIKey != ""
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.SessionCookie = redact(out.SessionCookie)
	out.APIKey = redact(out.APIKey)
	return out
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
