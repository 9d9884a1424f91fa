package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlaw/intake/internal/storage/db"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("overlays defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "intake.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
web_address: ":9090"
schema_profile: split
session_ttl: 30m
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.WebAddress)
		assert.Equal(t, db.ProfileSplit, cfg.SchemaProfile)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
		// untouched keys keep their defaults
		assert.Equal(t, "user_account", cfg.UserTable)
		assert.True(t, cfg.ManageSchema)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "intake.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schema_profile: postgres\n"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	breakages := map[string]func(*Config){
		"empty db path":       func(c *Config) { c.DBFilepath = "" },
		"quoted table name":   func(c *Config) { c.UserTable = `user";drop table user_account;--` },
		"spaced table name":   func(c *Config) { c.UserTable = "user account" },
		"empty table name":    func(c *Config) { c.UserTable = "" },
		"unknown profile":     func(c *Config) { c.SchemaProfile = "maybe" },
		"zero session ttl":    func(c *Config) { c.SessionTTL = 0 },
		"unknown log level":   func(c *Config) { c.LogLevel = "verbose" },
	}
	for name, mutate := range breakages {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DevMode = true
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
