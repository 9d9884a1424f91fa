package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meridianlaw/intake/internal/app"
	"github.com/meridianlaw/intake/internal/app/seed"
	"github.com/meridianlaw/intake/internal/sec"
	"github.com/meridianlaw/intake/internal/server"
)

func serveCommand() *cobra.Command {
	allowLegacy := true
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the case intake web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			sessions := sec.NewSessions(cfg.SessionTTL)
			resolver := sec.NewResolver(store, store.Capabilities(), logger, allowLegacy)

			if cfg.DevMode {
				if err := seed.Demo(cmd.Context(), logger, store, resolver); err != nil {
					return err
				}
			}

			srv, err := app.New(cfg, logger, store, sessions, resolver)
			if err != nil {
				return err
			}

			grp, ctx := errgroup.WithContext(cmd.Context())

			listener, err := server.Listen(ctx, cfg.WebAddress)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx,
				"starting app server...",
				slog.String("address", cfg.WebAddress),
			)
			server.Serve(ctx, grp, srv.Server, listener, server.ShutdownTimeout)
			return grp.Wait()
		},
	}

	cmd.Flags().BoolVar(
		&allowLegacy,
		"allow-legacy-credentials",
		true,
		"verify (and migrate) combined and cleartext credentials in the legacy password column",
	)
	return cmd
}
