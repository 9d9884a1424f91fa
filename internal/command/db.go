package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meridianlaw/intake/internal/config"
	"github.com/meridianlaw/intake/internal/storage/db"
)

func dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance commands",
	}
	cmd.AddCommand(
		dbMigrateCommand(),
		dbStatusCommand(),
	)
	return cmd
}

// dbMigrateCommand applies the embedded migrations explicitly, for
// deployments running with manage_schema disabled.
func dbMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
			if !ok {
				return errors.New("config file resolution failed")
			}
			handle, err := db.Open(cmd.Context(), slog.Default(), cfg.DBFilepath)
			if err != nil {
				return err
			}
			defer func() {
				if err := handle.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			slog.Default().InfoContext(cmd.Context(), "migrations applied",
				slog.String("db", cfg.DBFilepath),
			)
			return nil
		},
	}
}

func dbStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
			if !ok {
				return errors.New("config file resolution failed")
			}
			handle, err := db.OpenUnmigrated(cmd.Context(), cfg.DBFilepath)
			if err != nil {
				return err
			}
			defer func() {
				if err := handle.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			return db.Status(cmd.Context(), handle)
		},
	}
}
