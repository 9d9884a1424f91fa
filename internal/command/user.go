package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meridianlaw/intake/internal/sec"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User account commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
		userListCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create EMAIL",
		Short: "Create user",
		Long: "Creates a user account for the provided email and password. Passwords may be\n" +
			"provided via stdin or through the interactive prompt. The credential is stored\n" +
			"in the strongest format the configured schema supports.",

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			email := args[0]
			resolver := sec.NewResolver(store, store.Capabilities(), logger, true)
			passwd, err := prompt("password: ", true)
			if err != nil {
				return err
			}
			userID, err := resolver.Register(cmd.Context(), sec.Registration{
				Email:    email,
				Password: string(passwd),
			})
			if err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("email", email),
				slog.Uint64("user_id", userID),
			)
			return nil
		},
	}
}

func userDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete EMAIL",
		Short: "Delete user",
		Long: "Permanently deletes the user and all associated client and case data. " +
			"This operation is permanent and irreversible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			email := args[0]
			logger = logger.With(slog.String("email", email))
			user, err := store.GetUserForLogin(cmd.Context(), email)
			if err != nil {
				return err
			}
			resp, err := prompt("Are you sure you want to delete this user? [y|N] ", false)
			if !bytes.Equal(resp, []byte{'y'}) || err != nil {
				logger.InfoContext(cmd.Context(), "aborted user deletion")
				return err
			}
			if err = store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
}

func userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, _, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, user := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", user.ID, user.Email, user.DisplayName())
			}
			return nil
		},
	}
}
