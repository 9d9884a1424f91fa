// Package config handles resolving configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/meridianlaw/intake/internal/storage/db"
)

// Config holds the runtime settings for the intake application.
type Config struct {
	// WebAddress is the bind address for the web application.
	WebAddress string `yaml:"web_address"`
	// DBFilepath is the path to the sqlite database file.
	DBFilepath string `yaml:"db_filepath"`
	// UserTable is the name of the user account table. Deployments that
	// predate this application use differently shaped tables; the name is
	// configurable so one binary serves all of them.
	UserTable string `yaml:"user_table"`
	// SchemaProfile selects how the user table's optional columns are
	// resolved: "auto" probes the live schema once at startup, "legacy"
	// and "split" force a fixed profile.
	SchemaProfile string `yaml:"schema_profile"`
	// ManageSchema runs the embedded migrations on startup. Disable when
	// pointing at a database whose schema is owned elsewhere.
	ManageSchema bool `yaml:"manage_schema"`
	// SessionTTL is the idle lifetime of a login session.
	SessionTTL time.Duration `yaml:"session_ttl"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// DevMode enables request logging and demo data seeding.
	DevMode bool `yaml:"dev_mode"`
}

// tableNameRegex constrains UserTable to a plain SQL identifier, since
// the name is interpolated into queries.
var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Default returns a configuration with all default values populated.
func Default() *Config {
	return &Config{
		WebAddress:    "localhost:8080",
		DBFilepath:    filepath.Join(xdg.DataHome, "intake", "db.sqlite"),
		UserTable:     "user_account",
		SchemaProfile: db.ProfileAuto,
		ManageSchema:  true,
		SessionTTL:    12 * time.Hour,
		LogLevel:      "info",
		DevMode:       false,
	}
}

// Load reads a YAML configuration file from path, overlays it onto the
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	bytes, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err = yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	if c.DBFilepath == "" {
		return fmt.Errorf("db_filepath must be set")
	}
	if !tableNameRegex.MatchString(c.UserTable) {
		return fmt.Errorf("user_table %q is not a valid SQL identifier", c.UserTable)
	}
	switch c.SchemaProfile {
	case db.ProfileAuto, db.ProfileLegacy, db.ProfileSplit:
	default:
		return fmt.Errorf("schema_profile must be one of %s, %s, %s",
			db.ProfileAuto, db.ProfileLegacy, db.ProfileSplit)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// Marshal renders the configuration as YAML, used when initializing a
// fresh config file.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
