// Package storage provides the state management for users, clients, and
// case inquiries.
package storage

import (
	"context"

	"github.com/meridianlaw/intake/internal/storage/db"
)

const (
	// ErrNotFound is returned when a user, client, or case cannot be found.
	ErrNotFound Error = "not found"
	// ErrAlreadyExists is returned if a unique user already exists.
	ErrAlreadyExists Error = "already exists"
	// ErrInvalidEmail is returned when a login identifier fails validation.
	ErrInvalidEmail Error = "email must be 3-254 characters and contain '@'"
	// ErrInternal is returned for any other type of error.
	ErrInternal Error = "internal error"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Users are the methods on a storage implementation that are responsible
// for accessing and modifying user accounts.
type Users interface {
	// GetUserForLogin returns the user row for the given login identifier,
	// selecting only the columns the active schema profile supports. An
	// [ErrNotFound] is returned if no such user exists.
	GetUserForLogin(ctx context.Context, email string) (db.User, error)
	// GetUser returns a single user with the specified ID. An [ErrNotFound]
	// is returned if the user ID does not exist.
	GetUser(ctx context.Context, userID uint64) (db.User, error)
	// CreateUser inserts a new user, writing only columns present in the
	// active schema profile. An [ErrAlreadyExists] error is returned if the
	// email is already registered.
	CreateUser(ctx context.Context, user db.User) (uint64, error)
	// UpdateUserCredential persists a derived credential for the user. When
	// the schema supports split hash/salt columns they are written and the
	// legacy password column is cleared; otherwise the combined "salt:hash"
	// form is written into the legacy column. Columns the schema lacks are
	// never touched.
	UpdateUserCredential(ctx context.Context, userID uint64, hash, salt string) error
	// ListUsers returns all user accounts, oldest first.
	ListUsers(ctx context.Context) ([]db.User, error)
	// DeleteUser removes a user and all their associated client and case
	// data. This is a hard delete; data is not recoverable.
	DeleteUser(ctx context.Context, userID uint64) error
}

// Clients are the methods responsible for intake contact records.
type Clients interface {
	// GetClientByUser returns the client record owned by the given user. An
	// [ErrNotFound] is returned if the user has never submitted a case.
	GetClientByUser(ctx context.Context, userID uint64) (db.Client, error)
	// CreateClient inserts a new client record.
	CreateClient(ctx context.Context, client db.Client) (uint64, error)
}

// Cases are the methods responsible for case inquiries.
type Cases interface {
	// CreateCase inserts a new case inquiry.
	CreateCase(ctx context.Context, c db.Case) (uint64, error)
	// ListCases returns the joined review-board rows, newest first.
	ListCases(ctx context.Context) ([]db.CaseSummary, error)
	// UpdateCase applies a review-board edit. Moving a case to the closed
	// status stamps closed_on. An [ErrNotFound] is returned if the case ID
	// does not exist.
	UpdateCase(ctx context.Context, caseID uint64, title, description, priority string, status int) error
}

// Store is the combination interface for [Users], [Clients], and [Cases].
type Store interface {
	Users
	Clients
	Cases
	// Capabilities returns the schema profile the store was constructed
	// with. Immutable for the life of the process.
	Capabilities() db.Capabilities
	// Close releases any resources held by the store. An error is returned
	// if the store cannot be cleanly closed.
	Close() error
}
