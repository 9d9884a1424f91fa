package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Capabilities records which optional columns exist on the user table.
// The zero value is the legacy profile: every optional column assumed
// absent. Resolved once at startup and treated as immutable afterwards;
// a schema change requires a restart.
type Capabilities struct {
	PasswordHash bool
	PasswordSalt bool
	Email        bool
	FirstName    bool
	LastName     bool
	Phone        bool
}

// Schema profile names accepted in configuration.
const (
	ProfileAuto   = "auto"
	ProfileLegacy = "legacy"
	ProfileSplit  = "split"
)

// CapabilitiesForProfile returns the capability set for a named profile.
// ProfileAuto has no fixed set; callers must probe instead.
func CapabilitiesForProfile(name string) (Capabilities, error) {
	switch name {
	case ProfileLegacy:
		return Capabilities{}, nil
	case ProfileSplit:
		return Capabilities{
			PasswordHash: true,
			PasswordSalt: true,
			Email:        true,
			FirstName:    true,
			LastName:     true,
			Phone:        true,
		}, nil
	default:
		return Capabilities{}, fmt.Errorf("unknown schema profile %q", name)
	}
}

// SupportsSplit reports whether the schema can hold a credential as
// separate hash and salt columns. A half-present pair is unusable and
// counts as unsupported.
func (c Capabilities) SupportsSplit() bool {
	return c.PasswordHash && c.PasswordSalt
}

// LoginColumns returns the ordered column set to select when loading a
// user row for login. The identifier and legacy password columns are
// always included; the split credential columns only when both exist,
// and profile columns individually as available.
func (c Capabilities) LoginColumns() []string {
	cols := []string{"user_id", "email", "password"}
	if c.SupportsSplit() {
		cols = append(cols, "password_hash", "password_salt")
	}
	if c.FirstName {
		cols = append(cols, "first_name")
	}
	if c.LastName {
		cols = append(cols, "last_name")
	}
	if c.Phone {
		cols = append(cols, "phone")
	}
	return cols
}

// DetectCapabilities probes the live schema for the tracked optional
// columns in a single pass. Any probe failure degrades to the zero
// (legacy) capability set; detection errors are logged, never returned.
func DetectCapabilities(ctx context.Context, logger *slog.Logger, handle *sql.DB, table string) Capabilities {
	var caps Capabilities

	rows, err := handle.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		logger.WarnContext(ctx, "schema detection failed, assuming legacy profile",
			slog.String("table", table),
			slog.Any("error", err),
		)
		return caps
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			logger.WarnContext(ctx, "schema detection scan failed, assuming legacy profile",
				slog.String("table", table),
				slog.Any("error", err),
			)
			return Capabilities{}
		}
		switch name {
		case "password_hash":
			caps.PasswordHash = true
		case "password_salt":
			caps.PasswordSalt = true
		case "email":
			caps.Email = true
		case "first_name":
			caps.FirstName = true
		case "last_name":
			caps.LastName = true
		case "phone":
			caps.Phone = true
		}
	}
	if err := rows.Err(); err != nil {
		logger.WarnContext(ctx, "schema detection failed, assuming legacy profile",
			slog.String("table", table),
			slog.Any("error", err),
		)
		return Capabilities{}
	}
	return caps
}
