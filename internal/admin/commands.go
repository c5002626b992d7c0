// Package admin implements talenthubctl, the operator CLI for the identity
// service database.
package admin

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/config"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/talenthub/internal/server/services"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// Admin is the set of maintenance operations the CLI drives.
type Admin interface {
	Migrate(ctx context.Context) error
	CreateAdmin(ctx context.Context, name, email, password string) (*models.PublicUser, bool, error)
	SetPassword(ctx context.Context, email, password string) error
	PurgeTokens(ctx context.Context) (int64, error)
}

// Opener connects to the service database described by configFile (may be
// empty) and returns the operations plus a function releasing resources.
type Opener func(ctx context.Context, configFile string) (Admin, func(), error)

// OpenFromConfig is the production Opener. Configuration is layered exactly as
// for the server: defaults, optional file, then environment.
func OpenFromConfig(ctx context.Context, configFile string) (Admin, func(), error) {
	var args []string
	if configFile != "" {
		args = []string{"-c", configFile}
	}
	cfg, err := config.Load(ctx, args, envconfig.OsLookuper())
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	db, err := dbx.Open(ctx, cfg.DatabaseDSN, dbx.PoolOptions{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	svc := services.NewAdminService(db, repomanager.NewPostgresRepositoryManager(), auth.NewBcryptHasher(cfg.BcryptCost), logger, nil)
	return svc, func() { _ = db.Close() }, nil
}

// NewRootCommand builds the talenthubctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "talenthubctl",
		Short:         "Maintenance tool for the TalentHub identity service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a JSON or YAML config file")

	// withAdmin opens the backend for the duration of one subcommand.
	withAdmin := func(run func(cmd *cobra.Command, a Admin) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, closeFn, err := open(ctx, configFile)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, a)
		}
	}

	cmd.AddCommand(newMigrateCommand(withAdmin))
	cmd.AddCommand(newCreateAdminCommand(withAdmin))
	cmd.AddCommand(newSetPasswordCommand(withAdmin))
	cmd.AddCommand(newPurgeTokensCommand(withAdmin))
	return cmd
}

type adminRunner func(run func(cmd *cobra.Command, a Admin) error) func(*cobra.Command, []string) error

func newMigrateCommand(withAdmin adminRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, a Admin) error {
			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
	}
}

func newCreateAdminCommand(withAdmin adminRunner) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first ADMIN account if none exists",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, a Admin) error {
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			var err error
			if name == "" {
				if name, err = promptLine(reader, "Name", out); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = promptLine(reader, "Email", out); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(out); err != nil {
					return err
				}
			}

			user, created, err := a.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(out, "administrator already exists: %s (%s)\n", user.Email, user.ID)
				return nil
			}
			fmt.Fprintf(out, "administrator created: %s (%s)\n", user.Email, user.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newSetPasswordCommand(withAdmin adminRunner) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace the password of an account",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, a Admin) error {
			if password == "" {
				var err error
				if password, err = promptPassword(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			if err := a.SetPassword(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPurgeTokensCommand(withAdmin adminRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired and revoked refresh tokens",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, a Admin) error {
			n, err := a.PurgeTokens(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d refresh tokens\n", n)
			return nil
		}),
	}
}
