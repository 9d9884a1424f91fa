package db

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesForProfile(t *testing.T) {
	t.Parallel()

	legacy, err := CapabilitiesForProfile(ProfileLegacy)
	require.NoError(t, err)
	assert.Equal(t, Capabilities{}, legacy)

	split, err := CapabilitiesForProfile(ProfileSplit)
	require.NoError(t, err)
	assert.True(t, split.SupportsSplit())
	assert.True(t, split.Phone)

	_, err = CapabilitiesForProfile(ProfileAuto)
	assert.Error(t, err, "auto has no fixed capability set")

	_, err = CapabilitiesForProfile("postgres")
	assert.Error(t, err)
}

func TestSupportsSplit(t *testing.T) {
	t.Parallel()

	assert.False(t, Capabilities{}.SupportsSplit())
	assert.False(t, Capabilities{PasswordHash: true}.SupportsSplit())
	assert.False(t, Capabilities{PasswordSalt: true}.SupportsSplit())
	assert.True(t, Capabilities{PasswordHash: true, PasswordSalt: true}.SupportsSplit())
}

func TestLoginColumns(t *testing.T) {
	t.Parallel()

	t.Run("legacy", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"user_id", "email", "password"}, Capabilities{}.LoginColumns())
	})

	t.Run("full", func(t *testing.T) {
		t.Parallel()
		caps := Capabilities{
			PasswordHash: true,
			PasswordSalt: true,
			Email:        true,
			FirstName:    true,
			LastName:     true,
			Phone:        true,
		}
		assert.Equal(t, []string{
			"user_id", "email", "password",
			"password_hash", "password_salt",
			"first_name", "last_name", "phone",
		}, caps.LoginColumns())
	})

	t.Run("half split pair excluded", func(t *testing.T) {
		t.Parallel()
		caps := Capabilities{PasswordHash: true, LastName: true}
		assert.Equal(t, []string{"user_id", "email", "password", "last_name"}, caps.LoginColumns())
	})
}

func TestDetectCapabilities(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)

	t.Run("migrated table", func(t *testing.T) {
		t.Parallel()
		handle, err := Open(t.Context(), logger, filepath.Join(t.TempDir(), "db.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, handle.Close()) })

		caps := DetectCapabilities(t.Context(), logger, handle, "user_account")
		assert.True(t, caps.SupportsSplit())
		assert.True(t, caps.Email)
		assert.True(t, caps.FirstName)
		assert.True(t, caps.LastName)
		assert.True(t, caps.Phone)
	})

	t.Run("missing table degrades to legacy", func(t *testing.T) {
		t.Parallel()
		handle, err := OpenUnmigrated(t.Context(), filepath.Join(t.TempDir(), "db.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, handle.Close()) })

		caps := DetectCapabilities(t.Context(), logger, handle, "user_account")
		assert.Equal(t, Capabilities{}, caps)
	})

	t.Run("subset of columns", func(t *testing.T) {
		t.Parallel()
		handle, err := OpenUnmigrated(t.Context(), filepath.Join(t.TempDir(), "db.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, handle.Close()) })

		_, err = handle.ExecContext(t.Context(), `
			CREATE TABLE user_account (
				user_id INTEGER PRIMARY KEY,
				email TEXT NOT NULL,
				password TEXT,
				first_name TEXT
			)`)
		require.NoError(t, err)

		caps := DetectCapabilities(t.Context(), logger, handle, "user_account")
		assert.Equal(t, Capabilities{Email: true, FirstName: true}, caps)
	})
}
