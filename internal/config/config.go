package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file is looked up when --config is not given.
const DefaultPath = "roas.yaml"

// Config holds all roas configuration.
type Config struct {
	// Target spreadsheet
	SpreadsheetID string `yaml:"spreadsheet_id"`

	// Service account key, as a file or inline JSON
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json,omitempty"`

	// Form defaults
	DefaultSheet    string `yaml:"default_sheet"`
	NormalizePhones bool   `yaml:"normalize_phones"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultSheet: "Leads",
		Logging: LoggingConfig{
			Level: "info",
			File:  "roas.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment variables override file values in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// WriteDefault writes the default configuration, with environment overrides
// applied, to path. An existing file is kept unless force is set.
func WriteDefault(path string, force bool) (*Config, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("config %s: %w (use --force to overwrite)", path, os.ErrExist)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if id := os.Getenv("ROAS_SPREADSHEET_ID"); id != "" {
		c.SpreadsheetID = id
	}

	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" && c.CredentialsFile == "" {
		c.CredentialsFile = path
	}
	if path := os.Getenv("ROAS_CREDENTIALS_FILE"); path != "" {
		c.CredentialsFile = path
	}
	if raw := os.Getenv("ROAS_CREDENTIALS_JSON"); raw != "" {
		c.CredentialsJSON = raw
	}

	if sheet := os.Getenv("ROAS_DEFAULT_SHEET"); sheet != "" {
		c.DefaultSheet = sheet
	}
	if v := os.Getenv("ROAS_NORMALIZE_PHONES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NormalizePhones = b
		}
	}

	if level := os.Getenv("ROAS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("ROAS_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}

// Validate checks settings every run needs.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn or error)", c.Logging.Level)
	}
	return nil
}

// ValidateRemote checks the settings needed to reach the spreadsheet.
func (c *Config) ValidateRemote() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet_id is not configured (set it in %s or ROAS_SPREADSHEET_ID)", DefaultPath)
	}
	if c.CredentialsFile == "" && c.CredentialsJSON == "" {
		return fmt.Errorf("no service account credentials configured (credentials_file or ROAS_CREDENTIALS_JSON)")
	}
	return nil
}
