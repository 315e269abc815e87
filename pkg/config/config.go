package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	xdgAppName = "applytrack"
	configFile = "config.json"
)

type Config struct {
	ClickUpBaseURL string `json:"clickup_base_url,omitempty"`
	ClickUpToken   string `json:"clickup_token,omitempty"`
	TeamID         string `json:"team_id,omitempty"`
	SpaceID        string `json:"space_id,omitempty"`
	MaxPages       int    `json:"max_pages,omitempty"`

	SupabaseURL string `json:"supabase_url,omitempty"`
	SupabaseKey string `json:"supabase_key,omitempty"`

	SpreadsheetID string `json:"spreadsheet_id,omitempty"`

	TimeZone    string        `json:"time_zone,omitempty"`
	HTTPAddr    string        `json:"http_addr,omitempty"`
	HTTPTimeout time.Duration `json:"http_timeout,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ClickUpBaseURL: "https://api.clickup.com/api/v2",
		MaxPages:       500,
		TimeZone:       "America/Sao_Paulo",
		HTTPAddr:       ":8080",
		HTTPTimeout:    30 * time.Second,
	}
}

func GetXdgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file, then applies a .env file from the working
// directory and the process environment on top of it.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFile reads one config file over the defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. Unparsable numbers
// and durations are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("CLICKUP_BASE_URL", &c.ClickUpBaseURL)
	str("CLICKUP_TOKEN", &c.ClickUpToken)
	str("CLICKUP_TEAM_ID", &c.TeamID)
	str("CLICKUP_SPACE_ID", &c.SpaceID)
	str("SUPABASE_URL", &c.SupabaseURL)
	str("SUPABASE_KEY", &c.SupabaseKey)
	str("SPREADSHEET_ID", &c.SpreadsheetID)
	str("APP_TZ", &c.TimeZone)
	str("HTTP_ADDR", &c.HTTPAddr)

	if v := getenv("CLICKUP_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxPages = n
		}
	}
	if v := getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTPTimeout = d
		}
	}
}

// Validate checks the settings needed to reach ClickUp.
func (c *Config) Validate() error {
	var missing []string
	if c.ClickUpToken == "" {
		missing = append(missing, "clickup_token (CLICKUP_TOKEN)")
	}
	if c.TeamID == "" {
		missing = append(missing, "team_id (CLICKUP_TEAM_ID)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AuthEnabled reports whether a Supabase project is configured.
func (c *Config) AuthEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// Location resolves TimeZone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Set assigns a field by its JSON name. Used by `applytrack config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "clickup_base_url":
		c.ClickUpBaseURL = value
	case "clickup_token":
		c.ClickUpToken = value
	case "team_id":
		c.TeamID = value
	case "space_id":
		c.SpaceID = value
	case "supabase_url":
		c.SupabaseURL = value
	case "supabase_key":
		c.SupabaseKey = value
	case "spreadsheet_id":
		c.SpreadsheetID = value
	case "time_zone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", value, err)
		}
		c.TimeZone = value
	case "http_addr":
		c.HTTPAddr = value
	case "max_pages":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("max_pages must be a positive integer, got %q", value)
		}
		c.MaxPages = n
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("http_timeout must be a positive duration, got %q", value)
		}
		c.HTTPTimeout = d
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// SaveFile writes cfg as indented JSON, readable only by the owner.
func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
