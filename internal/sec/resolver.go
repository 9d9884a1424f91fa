package sec

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridianlaw/intake/internal/storage"
	"github.com/meridianlaw/intake/internal/storage/db"
)

// UserStore is the slice of the storage layer the resolver depends on.
type UserStore interface {
	GetUserForLogin(ctx context.Context, email string) (db.User, error)
	CreateUser(ctx context.Context, user db.User) (uint64, error)
	UpdateUserCredential(ctx context.Context, userID uint64, hash, salt string) error
}

// Resolver authenticates users against whichever credential format their
// row holds and migrates weaker formats forward on successful login.
type Resolver struct {
	store  UserStore
	caps   db.Capabilities
	logger *slog.Logger

	// legacy enables verification of combined and cleartext credentials
	// stored in the legacy password column. Hardened deployments that
	// have finished migrating disable it, leaving split-column
	// verification only.
	legacy bool
}

// NewResolver constructs a Resolver bound to the schema capabilities
// resolved at startup.
func NewResolver(store UserStore, caps db.Capabilities, logger *slog.Logger, allowLegacy bool) *Resolver {
	return &Resolver{
		store:  store,
		caps:   caps,
		logger: logger,
		legacy: allowLegacy,
	}
}

// Login resolves the login identifier to a user row and authenticates
// the password against it. Storage failures degrade to a failed login;
// they are logged, never surfaced, so the caller renders the same
// "Invalid login" message for every failure path.
func (r *Resolver) Login(ctx context.Context, identifier, password string) (db.User, bool) {
	if identifier == "" || password == "" {
		return db.User{}, false
	}
	user, err := r.store.GetUserForLogin(ctx, identifier)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.ErrorContext(ctx, "login lookup failed", slog.Any("error", err))
		}
		return db.User{}, false
	}
	return user, r.Authenticate(ctx, user, password)
}

// Authenticate verifies password against the user row. Resolution order,
// first match wins:
//
//  1. populated split hash/salt columns
//  2. combined "salt:hash" in the legacy column, migrated into the split
//     columns afterwards when the schema has them empty
//  3. cleartext in the legacy column, replaced with a freshly derived
//     record afterwards
//
// A row with no usable credential is rejected. Migration writes are
// best-effort: a failed write is logged and retried implicitly on the
// next successful login, since authentication already succeeded on the
// evidence at hand.
func (r *Resolver) Authenticate(ctx context.Context, user db.User, password string) bool {
	if hasValue(user.PasswordHash) && hasValue(user.PasswordSalt) {
		return VerifyPassword(password, user.PasswordSalt.String, user.PasswordHash.String)
	}

	if !r.legacy || !hasValue(user.Password) {
		return false
	}
	stored := user.Password.String

	if rec, ok := ParseCombined(stored); ok && VerifyPassword(password, rec.Salt, rec.Hash) {
		if r.caps.SupportsSplit() {
			r.upgrade(ctx, user.ID, rec, "combined")
		}
		return true
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1 {
		rec, err := DeriveRecord(password)
		if err != nil {
			r.logger.ErrorContext(ctx, "credential upgrade derivation failed",
				slog.Uint64("user_id", user.ID),
				slog.Any("error", err),
			)
			return true
		}
		r.upgrade(ctx, user.ID, rec, "cleartext")
		return true
	}

	return false
}

func (r *Resolver) upgrade(ctx context.Context, userID uint64, rec Record, from string) {
	if err := r.store.UpdateUserCredential(ctx, userID, rec.Hash, rec.Salt); err != nil {
		r.logger.WarnContext(ctx, "credential upgrade write failed",
			slog.Uint64("user_id", userID),
			slog.String("from", from),
			slog.Any("error", err),
		)
		return
	}
	r.logger.InfoContext(ctx, "credential upgraded",
		slog.Uint64("user_id", userID),
		slog.String("from", from),
	)
}

// Registration is the set of fields collected by the account forms.
type Registration struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
}

// Register derives a credential for the registration and creates the
// user, storing the credential in the strongest format the schema
// supports. New accounts never receive cleartext passwords.
func (r *Resolver) Register(ctx context.Context, reg Registration) (uint64, error) {
	rec, err := DeriveRecord(reg.Password)
	if err != nil {
		return 0, fmt.Errorf("failed to derive credential: %w", err)
	}

	user := db.User{
		Email:     reg.Email,
		FirstName: nullString(reg.FirstName),
		LastName:  nullString(reg.LastName),
		Phone:     nullString(reg.Phone),
		IsActive:  true,
	}
	if r.caps.SupportsSplit() {
		user.PasswordHash = nullString(rec.Hash)
		user.PasswordSalt = nullString(rec.Salt)
	} else {
		user.Password = nullString(rec.Combined())
	}
	return r.store.CreateUser(ctx, user)
}

// StoreRecord persists a derived record for an existing user in the
// strongest format the schema supports.
func (r *Resolver) StoreRecord(ctx context.Context, userID uint64, rec Record) error {
	return r.store.UpdateUserCredential(ctx, userID, rec.Hash, rec.Salt)
}

func hasValue(ns sql.NullString) bool {
	return ns.Valid && ns.String != ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
