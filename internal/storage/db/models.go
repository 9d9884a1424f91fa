package db

import (
	"database/sql"
	"time"
)

// User is a row of the user table as consumed for login and
// registration. Credential fields mirror the three storage formats the
// resolver understands: split hash/salt columns, a combined "salt:hash"
// string in Password, or legacy cleartext in Password.
type User struct {
	ID           uint64
	Email        string
	Password     sql.NullString // legacy column: cleartext or combined "salt:hash"
	PasswordHash sql.NullString
	PasswordSalt sql.NullString
	FirstName    sql.NullString
	LastName     sql.NullString
	Phone        sql.NullString
	IsActive     bool
	CreatedOn    time.Time
	UpdatedOn    time.Time
}

// DisplayName returns the user's name for the admin listing, falling
// back to the login identifier when profile columns are absent.
func (u User) DisplayName() string {
	switch {
	case u.FirstName.Valid && u.LastName.Valid:
		return u.FirstName.String + " " + u.LastName.String
	case u.FirstName.Valid:
		return u.FirstName.String
	default:
		return u.Email
	}
}

// Client is the intake contact record created from a user's profile on
// their first case submission.
type Client struct {
	ID                     uint64
	UserID                 uint64
	FirstName              string
	LastName               string
	Email                  string
	Phone                  string
	PreferredContactMethod string
	CreatedOn              time.Time
}

// Case is a submitted case inquiry.
type Case struct {
	ID                 uint64
	ClientID           uint64
	Title              string
	Description        string
	Priority           string
	Status             int
	PracticeAreaID     int
	ReferenceNo        string
	IsPublicSubmission bool
	OpenedOn           time.Time
	ClosedOn           sql.NullTime
}

// CaseSummary is the joined row shown on the review board.
type CaseSummary struct {
	Case
	ClientFirstName  string
	ClientLastName   string
	ClientEmail      string
	ClientPhone      string
	PreferredContact string
	PracticeArea     sql.NullString
}
