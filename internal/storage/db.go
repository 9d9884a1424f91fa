package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/influxdata/influxdb/pkg/snowflake"

	"github.com/meridianlaw/intake/internal/cases"
	"github.com/meridianlaw/intake/internal/config"
	"github.com/meridianlaw/intake/internal/storage/db"
)

// DB is a [Store] backed by a SQLite database.
type DB struct {
	ids    *snowflake.Generator
	db     *sql.DB
	caps   db.Capabilities
	table  string
	logger *slog.Logger
}

// NewDB initializes a DB with the given config and logger. The schema
// profile is resolved exactly once here: either forced by configuration
// or probed from the live schema, degrading to the legacy profile on any
// probe failure.
func NewDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	var (
		handle *sql.DB
		err    error
	)
	if cfg.ManageSchema {
		handle, err = db.Open(ctx, logger, cfg.DBFilepath)
	} else {
		handle, err = db.OpenUnmigrated(ctx, cfg.DBFilepath)
	}
	if err != nil {
		return nil, err
	}

	var caps db.Capabilities
	if cfg.SchemaProfile == db.ProfileAuto {
		caps = db.DetectCapabilities(ctx, logger, handle, cfg.UserTable)
	} else if caps, err = db.CapabilitiesForProfile(cfg.SchemaProfile); err != nil {
		return nil, errors.Join(err, handle.Close())
	}
	logger.DebugContext(ctx, "schema profile resolved",
		slog.String("table", cfg.UserTable),
		slog.Bool("split_credentials", caps.SupportsSplit()),
	)

	return &DB{
		ids:    snowflake.New(rand.IntN(1023)), //nolint:gosec,mnd // this isn't for crypto
		db:     handle,
		caps:   caps,
		table:  cfg.UserTable,
		logger: logger,
	}, nil
}

// Capabilities satisfies the [Store] interface.
func (d *DB) Capabilities() db.Capabilities {
	return d.caps
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.db.Close()
}

// GetUserForLogin satisfies the [Users] interface.
func (d *DB) GetUserForLogin(ctx context.Context, email string) (db.User, error) {
	cols := d.caps.LoginColumns()
	query := fmt.Sprintf("SELECT %s FROM %q WHERE email = ?", strings.Join(cols, ", "), d.table)
	return d.scanUser(d.db.QueryRowContext(ctx, query, email), cols)
}

// GetUser satisfies the [Users] interface.
func (d *DB) GetUser(ctx context.Context, userID uint64) (db.User, error) {
	cols := d.caps.LoginColumns()
	query := fmt.Sprintf("SELECT %s FROM %q WHERE user_id = ?", strings.Join(cols, ", "), d.table)
	return d.scanUser(d.db.QueryRowContext(ctx, query, userID), cols)
}

func (d *DB) scanUser(row *sql.Row, cols []string) (db.User, error) {
	var user db.User
	dests := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		case "user_id":
			dests[i] = &user.ID
		case "email":
			dests[i] = &user.Email
		case "password":
			dests[i] = &user.Password
		case "password_hash":
			dests[i] = &user.PasswordHash
		case "password_salt":
			dests[i] = &user.PasswordSalt
		case "first_name":
			dests[i] = &user.FirstName
		case "last_name":
			dests[i] = &user.LastName
		case "phone":
			dests[i] = &user.Phone
		}
	}
	switch err := row.Scan(dests...); {
	case errors.Is(err, sql.ErrNoRows):
		return user, ErrNotFound
	case err != nil:
		return user, fmt.Errorf("failed to scan user row: %w", err)
	}
	return user, nil
}

// CreateUser satisfies the [Users] interface.
func (d *DB) CreateUser(ctx context.Context, user db.User) (uint64, error) {
	if !validateEmail(user.Email) {
		return 0, ErrInvalidEmail
	}

	var exists int
	query := fmt.Sprintf("SELECT 1 FROM %q WHERE email = ?", d.table)
	err := d.db.QueryRowContext(ctx, query, user.Email).Scan(&exists)
	switch {
	case err == nil:
		return 0, ErrAlreadyExists
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to check for existing user: %w", err)
	}

	if user.ID == 0 {
		user.ID = d.ids.Next()
	}
	now := time.Now().UTC()
	cols := []string{"user_id", "email", "password", "is_active", "created_on", "updated_on"}
	vals := []any{user.ID, user.Email, user.Password, user.IsActive, now, now}
	if d.caps.SupportsSplit() {
		cols = append(cols, "password_hash", "password_salt")
		vals = append(vals, user.PasswordHash, user.PasswordSalt)
	}
	if d.caps.FirstName {
		cols = append(cols, "first_name")
		vals = append(vals, user.FirstName)
	}
	if d.caps.LastName {
		cols = append(cols, "last_name")
		vals = append(vals, user.LastName)
	}
	if d.caps.Phone {
		cols = append(cols, "phone")
		vals = append(vals, user.Phone)
	}

	query = fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		d.table,
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)
	if _, err = d.db.ExecContext(ctx, query, vals...); err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return user.ID, nil
}

// UpdateUserCredential satisfies the [Users] interface.
func (d *DB) UpdateUserCredential(ctx context.Context, userID uint64, hash, salt string) error {
	var (
		query string
		args  []any
	)
	now := time.Now().UTC()
	if d.caps.SupportsSplit() {
		query = fmt.Sprintf(
			"UPDATE %q SET password_hash = ?, password_salt = ?, password = NULL, updated_on = ? WHERE user_id = ?",
			d.table,
		)
		args = []any{hash, salt, now, userID}
	} else {
		query = fmt.Sprintf("UPDATE %q SET password = ?, updated_on = ? WHERE user_id = ?", d.table)
		args = []any{salt + ":" + hash, now, userID}
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers satisfies the [Users] interface.
func (d *DB) ListUsers(ctx context.Context) ([]db.User, error) {
	cols := []string{"user_id", "email", "is_active", "created_on"}
	if d.caps.FirstName {
		cols = append(cols, "first_name")
	}
	if d.caps.LastName {
		cols = append(cols, "last_name")
	}
	if d.caps.Phone {
		cols = append(cols, "phone")
	}
	query := fmt.Sprintf("SELECT %s FROM %q ORDER BY created_on ASC", strings.Join(cols, ", "), d.table)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var users []db.User
	for rows.Next() {
		var user db.User
		dests := []any{&user.ID, &user.Email, &user.IsActive, &user.CreatedOn}
		if d.caps.FirstName {
			dests = append(dests, &user.FirstName)
		}
		if d.caps.LastName {
			dests = append(dests, &user.LastName)
		}
		if d.caps.Phone {
			dests = append(dests, &user.Phone)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser satisfies the [Users] interface.
func (d *DB) DeleteUser(ctx context.Context, userID uint64) error {
	query := fmt.Sprintf("DELETE FROM %q WHERE user_id = ?", d.table)
	res, err := d.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetClientByUser satisfies the [Clients] interface.
func (d *DB) GetClientByUser(ctx context.Context, userID uint64) (db.Client, error) {
	var client db.Client
	err := d.db.QueryRowContext(ctx, `
		SELECT client_id, user_id, first_name, last_name, email, phone, preferred_contact_method, created_on
		FROM client WHERE user_id = ?`, userID).Scan(
		&client.ID, &client.UserID, &client.FirstName, &client.LastName,
		&client.Email, &client.Phone, &client.PreferredContactMethod, &client.CreatedOn,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return client, ErrNotFound
	case err != nil:
		return client, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// CreateClient satisfies the [Clients] interface.
func (d *DB) CreateClient(ctx context.Context, client db.Client) (uint64, error) {
	if client.ID == 0 {
		client.ID = d.ids.Next()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO client (client_id, user_id, first_name, last_name, email, phone, preferred_contact_method, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.UserID, client.FirstName, client.LastName,
		client.Email, client.Phone, client.PreferredContactMethod, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}
	return client.ID, nil
}

// CreateCase satisfies the [Cases] interface.
func (d *DB) CreateCase(ctx context.Context, c db.Case) (uint64, error) {
	if c.ID == 0 {
		c.ID = d.ids.Next()
	}
	if c.OpenedOn.IsZero() {
		c.OpenedOn = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO case_info (case_id, client_id, title, description, priority, status_id,
			practice_area_id, reference_no, is_public_submission, opened_on, closed_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClientID, c.Title, c.Description, c.Priority, c.Status,
		c.PracticeAreaID, c.ReferenceNo, c.IsPublicSubmission, c.OpenedOn, c.ClosedOn,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert case: %w", err)
	}
	return c.ID, nil
}

// ListCases satisfies the [Cases] interface.
func (d *DB) ListCases(ctx context.Context) ([]db.CaseSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT ci.case_id, ci.title, ci.description, ci.priority, ci.status_id,
			ci.practice_area_id, ci.reference_no, ci.opened_on, ci.closed_on,
			cl.first_name, cl.last_name, cl.email, cl.phone, cl.preferred_contact_method,
			pa.name
		FROM case_info ci
		JOIN client cl ON ci.client_id = cl.client_id
		LEFT JOIN practice_area pa ON ci.practice_area_id = pa.practice_area_id
		ORDER BY ci.opened_on DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var cases []db.CaseSummary
	for rows.Next() {
		var c db.CaseSummary
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Priority, &c.Status,
			&c.PracticeAreaID, &c.ReferenceNo, &c.OpenedOn, &c.ClosedOn,
			&c.ClientFirstName, &c.ClientLastName, &c.ClientEmail, &c.ClientPhone,
			&c.PreferredContact, &c.PracticeArea,
		); err != nil {
			return nil, fmt.Errorf("failed to scan case row: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// UpdateCase satisfies the [Cases] interface.
func (d *DB) UpdateCase(ctx context.Context, caseID uint64, title, description, priority string, status int) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE case_info
		SET title = ?, description = ?, priority = ?, status_id = ?,
			closed_on = CASE WHEN ? THEN ? ELSE closed_on END
		WHERE case_id = ?`,
		title, description, priority, status,
		status == cases.StatusClosed, time.Now().UTC(), caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Email validation constraints for login identifiers.
const (
	minEmailLen = 3
	maxEmailLen = 254
)

func validateEmail(email string) bool {
	return len(email) >= minEmailLen &&
		len(email) <= maxEmailLen &&
		strings.Count(email, "@") == 1 &&
		!strings.HasPrefix(email, "@") &&
		!strings.HasSuffix(email, "@")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ Store = (*DB)(nil)
