package storage

import (
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlaw/intake/internal/cases"
	"github.com/meridianlaw/intake/internal/config"
	"github.com/meridianlaw/intake/internal/storage/db"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBFilepath = filepath.Join(t.TempDir(), "db.sqlite")
	return cfg
}

// newTestDB opens a migrated database, where every optional column
// exists.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := NewDB(t.Context(), testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

// newLegacyDB opens a database holding only the original user table
// shape, with no migrations applied.
func newLegacyDB(t *testing.T) *DB {
	t.Helper()
	cfg := testConfig(t)
	cfg.ManageSchema = false

	handle, err := db.OpenUnmigrated(t.Context(), cfg.DBFilepath)
	require.NoError(t, err)
	_, err = handle.ExecContext(t.Context(), `
		CREATE TABLE user_account (
			user_id INTEGER PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_on TIMESTAMP NOT NULL,
			updated_on TIMESTAMP NOT NULL
		)`)
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	store, err := NewDB(t.Context(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestCapabilityResolution(t *testing.T) {
	t.Parallel()

	t.Run("migrated schema has every column", func(t *testing.T) {
		t.Parallel()
		caps := newTestDB(t).Capabilities()
		assert.True(t, caps.SupportsSplit())
		assert.True(t, caps.Email)
		assert.True(t, caps.FirstName)
		assert.True(t, caps.LastName)
		assert.True(t, caps.Phone)
	})

	t.Run("legacy schema has none", func(t *testing.T) {
		t.Parallel()
		caps := newLegacyDB(t).Capabilities()
		assert.False(t, caps.SupportsSplit())
		assert.False(t, caps.FirstName)
		// email exists on the legacy table too
		assert.True(t, caps.Email)
	})

	t.Run("forced profile skips probing", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.SchemaProfile = db.ProfileLegacy
		store, err := NewDB(t.Context(), cfg, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, store.Close()) })
		assert.False(t, store.Capabilities().SupportsSplit())
	})

	t.Run("unknown forced profile fails", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.SchemaProfile = "bogus"
		_, err := NewDB(t.Context(), cfg, slog.New(slog.DiscardHandler))
		assert.Error(t, err)
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	user := db.User{
		Email:        "a@b.com",
		PasswordHash: sql.NullString{String: strings.Repeat("ab", 64), Valid: true},
		PasswordSalt: sql.NullString{String: strings.Repeat("cd", 16), Valid: true},
		FirstName:    sql.NullString{String: "Ada", Valid: true},
		LastName:     sql.NullString{String: "Byron", Valid: true},
		Phone:        sql.NullString{String: "555-0100", Valid: true},
		IsActive:     true,
	}
	userID, err := store.CreateUser(t.Context(), user)
	require.NoError(t, err)
	require.NotZero(t, userID)

	t.Run("lookup by email", func(t *testing.T) {
		got, err := store.GetUserForLogin(t.Context(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, userID, got.ID)
		assert.Equal(t, user.PasswordHash, got.PasswordHash)
		assert.Equal(t, user.PasswordSalt, got.PasswordSalt)
		assert.False(t, got.Password.Valid)
		assert.Equal(t, "Ada Byron", got.DisplayName())
	})

	t.Run("lookup by id", func(t *testing.T) {
		got, err := store.GetUser(t.Context(), userID)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", got.Email)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := store.GetUserForLogin(t.Context(), "nobody@b.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := store.CreateUser(t.Context(), db.User{Email: "a@b.com"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("invalid email", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "@b.com", "a@", "a@@b.com"} {
			_, err := store.CreateUser(t.Context(), db.User{Email: email})
			assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
		}
	})

	t.Run("list", func(t *testing.T) {
		users, err := store.ListUsers(t.Context())
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "a@b.com", users[0].Email)
	})

	t.Run("delete", func(t *testing.T) {
		other, err := store.CreateUser(t.Context(), db.User{Email: "gone@b.com"})
		require.NoError(t, err)
		require.NoError(t, store.DeleteUser(t.Context(), other))
		assert.ErrorIs(t, store.DeleteUser(t.Context(), other), ErrNotFound)
	})
}

func TestUpdateUserCredential(t *testing.T) {
	t.Parallel()

	t.Run("split schema clears legacy column", func(t *testing.T) {
		t.Parallel()
		store := newTestDB(t)
		userID, err := store.CreateUser(t.Context(), db.User{
			Email:    "a@b.com",
			Password: sql.NullString{String: "hunter2", Valid: true},
			IsActive: true,
		})
		require.NoError(t, err)

		require.NoError(t, store.UpdateUserCredential(t.Context(), userID, "feed", "dead"))

		got, err := store.GetUserForLogin(t.Context(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "feed", got.PasswordHash.String)
		assert.Equal(t, "dead", got.PasswordSalt.String)
		assert.False(t, got.Password.Valid, "cleartext must be cleared once migrated")
	})

	t.Run("legacy schema writes combined form", func(t *testing.T) {
		t.Parallel()
		store := newLegacyDB(t)
		userID, err := store.CreateUser(t.Context(), db.User{
			Email:    "a@b.com",
			Password: sql.NullString{String: "hunter2", Valid: true},
			IsActive: true,
		})
		require.NoError(t, err)

		require.NoError(t, store.UpdateUserCredential(t.Context(), userID, "feed", "dead"))

		got, err := store.GetUserForLogin(t.Context(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "dead:feed", got.Password.String)
		assert.False(t, got.PasswordHash.Valid)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		store := newTestDB(t)
		assert.ErrorIs(t, store.UpdateUserCredential(t.Context(), 404, "feed", "dead"), ErrNotFound)
	})
}

func TestLegacyUsersRoundTrip(t *testing.T) {
	t.Parallel()
	store := newLegacyDB(t)

	// Profile fields silently drop on a table without their columns.
	userID, err := store.CreateUser(t.Context(), db.User{
		Email:     "a@b.com",
		Password:  sql.NullString{String: "hunter2", Valid: true},
		FirstName: sql.NullString{String: "Ada", Valid: true},
		IsActive:  true,
	})
	require.NoError(t, err)

	got, err := store.GetUserForLogin(t.Context(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, userID, got.ID)
	assert.Equal(t, "hunter2", got.Password.String)
	assert.False(t, got.FirstName.Valid)
	assert.Equal(t, "a@b.com", got.DisplayName())
}

func TestClientsAndCases(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	userID, err := store.CreateUser(t.Context(), db.User{Email: "a@b.com", IsActive: true})
	require.NoError(t, err)

	_, err = store.GetClientByUser(t.Context(), userID)
	require.ErrorIs(t, err, ErrNotFound)

	clientID, err := store.CreateClient(t.Context(), db.Client{
		UserID:                 userID,
		FirstName:              "Ada",
		LastName:               "Byron",
		Email:                  "a@b.com",
		Phone:                  "555-0100",
		PreferredContactMethod: "email",
	})
	require.NoError(t, err)

	client, err := store.GetClientByUser(t.Context(), userID)
	require.NoError(t, err)
	assert.Equal(t, clientID, client.ID)
	assert.Equal(t, "Ada", client.FirstName)

	caseID, err := store.CreateCase(t.Context(), db.Case{
		ClientID:           clientID,
		Title:              "Contract dispute",
		Description:        "Vendor missed delivery windows.",
		Priority:           cases.PriorityLow,
		Status:             cases.StatusNew,
		PracticeAreaID:     cases.PracticeAreas["Products Liability"],
		ReferenceNo:        cases.NewReference(),
		IsPublicSubmission: true,
	})
	require.NoError(t, err)

	t.Run("review listing joins client and practice area", func(t *testing.T) {
		summaries, err := store.ListCases(t.Context())
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		summary := summaries[0]
		assert.Equal(t, caseID, summary.ID)
		assert.Equal(t, "Ada", summary.ClientFirstName)
		assert.Equal(t, "Products Liability", summary.PracticeArea.String)
		assert.False(t, summary.ClosedOn.Valid)
	})

	t.Run("closing stamps closed_on", func(t *testing.T) {
		err := store.UpdateCase(t.Context(), caseID,
			"Contract dispute", "Settled out of court.", cases.PriorityHigh, cases.StatusClosed)
		require.NoError(t, err)

		summaries, err := store.ListCases(t.Context())
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, cases.StatusClosed, summaries[0].Status)
		assert.True(t, summaries[0].ClosedOn.Valid)
		assert.WithinDuration(t, time.Now(), summaries[0].ClosedOn.Time, time.Minute)
	})

	t.Run("unknown case", func(t *testing.T) {
		err := store.UpdateCase(t.Context(), 404, "t", "d", cases.PriorityLow, cases.StatusNew)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
