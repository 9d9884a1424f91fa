// Package seed populates a development database with demo accounts and
// case inquiries.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/meridianlaw/intake/internal/cases"
	"github.com/meridianlaw/intake/internal/sec"
	"github.com/meridianlaw/intake/internal/storage"
	"github.com/meridianlaw/intake/internal/storage/db"
)

// DemoPassword is the password for every seeded account.
const DemoPassword = "meridian-demo"

const demoClientCount = 4

// Seed returns the demo data seed from the INTAKE_SEED environment
// variable, or a random value if not set.
func Seed() uint64 {
	if env := os.Getenv("INTAKE_SEED"); env != "" {
		if seed, err := strconv.ParseUint(env, 10, 64); err == nil {
			return seed
		}
	}
	return rand.Uint64() //nolint:gosec // intentionally weak random for test data
}

// Demo fills an empty database with demo users and cases. One user is
// left with a cleartext credential and one with a combined credential so
// the lazy migration paths can be exercised from the login form. Seeding
// is skipped when any user already exists.
func Demo(ctx context.Context, logger *slog.Logger, store storage.Store, resolver *sec.Resolver) error {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seed := Seed()
	faker := gofakeit.New(seed)
	logger.InfoContext(ctx, "seeding demo data",
		slog.Uint64("seed", seed),
		slog.String("password", DemoPassword),
	)

	// A modern account, created the way the registration form would.
	if _, err := resolver.Register(ctx, sec.Registration{
		Email:     "staff@meridianlaw.example",
		FirstName: "Dana",
		LastName:  "Whitfield",
		Phone:     faker.Phone(),
		Password:  DemoPassword,
	}); err != nil {
		return fmt.Errorf("failed to seed staff user: %w", err)
	}

	// A legacy cleartext credential, upgraded on first login.
	if _, err := store.CreateUser(ctx, db.User{
		Email:    "legacy-plain@meridianlaw.example",
		Password: nullString(DemoPassword),
		IsActive: true,
	}); err != nil {
		return fmt.Errorf("failed to seed cleartext user: %w", err)
	}

	// A combined "salt:hash" credential, split on first login where the
	// schema allows.
	rec, err := sec.DeriveRecord(DemoPassword)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, db.User{
		Email:    "legacy-combined@meridianlaw.example",
		Password: nullString(rec.Combined()),
		IsActive: true,
	}); err != nil {
		return fmt.Errorf("failed to seed combined user: %w", err)
	}

	areas := cases.PracticeAreaNames()
	for range demoClientCount {
		userID, err := resolver.Register(ctx, sec.Registration{
			Email:     faker.Email(),
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Phone:     faker.Phone(),
			Password:  DemoPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to seed client user: %w", err)
		}

		user, err := store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		clientID, err := store.CreateClient(ctx, db.Client{
			UserID:                 userID,
			FirstName:              user.FirstName.String,
			LastName:               user.LastName.String,
			Email:                  user.Email,
			Phone:                  user.Phone.String,
			PreferredContactMethod: cases.ContactMethods[faker.IntN(len(cases.ContactMethods))],
		})
		if err != nil {
			return fmt.Errorf("failed to seed client: %w", err)
		}

		area := areas[faker.IntN(len(areas))]
		if _, err := store.CreateCase(ctx, db.Case{
			ClientID:           clientID,
			Title:              faker.Sentence(5),
			Description:        faker.Paragraph(2, 4, 10, " "),
			Priority:           cases.PriorityLow,
			Status:             cases.StatusNew,
			PracticeAreaID:     cases.PracticeAreas[area],
			ReferenceNo:        cases.NewReference(),
			IsPublicSubmission: true,
		}); err != nil {
			return fmt.Errorf("failed to seed case: %w", err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
