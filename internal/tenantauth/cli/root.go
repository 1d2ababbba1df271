// Package cli is the operator command line for the credential core. Every
// command prints JSON on stdout and logs on stderr.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/app"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
	"github.com/spf13/cobra"
)

// runner carries the state shared by one command invocation.
type runner struct {
	configDir   string
	actorClient string
	actorUser   string

	app *app.Application
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *runner) {
	r := &runner{}

	root := &cobra.Command{
		Use:           "tenantauth",
		Short:         "Multi-tenant credential administration",
		Long:          `Manages Accounts, Clients and Users, issues and checks their signed assertions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return r.close()
		},
	}
	root.PersistentFlags().StringVarP(&r.configDir, "config", "c", ".", "directory holding tenantauth.yaml")
	root.PersistentFlags().StringVar(&r.actorClient, "actor-client", "", "client id recorded as the author of changes")
	root.PersistentFlags().StringVar(&r.actorUser, "actor-user", "", "user id recorded as the author of changes")

	root.AddCommand(
		r.migrateCmd(),
		r.bootstrapCmd(),
		r.hashTokenCmd(),
		r.housekeepCmd(),
		r.accountCmd(),
		r.clientCmd(),
		r.userCmd(),
		r.sessionCmd(),
		r.signalCmd(),
	)
	return root, r
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root, r := newRoot()
	err := root.Execute()
	if cerr := r.close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(root.OutOrStdout(), err)
		os.Exit(1)
	}
}

// open loads configuration and wires the application once per invocation.
func (r *runner) open(cmd *cobra.Command) (context.Context, error) {
	if r.app == nil {
		cfg, err := app.LoadConfig(r.configDir)
		if err != nil {
			return nil, err
		}
		a, err := app.New(cfg, app.WithLogOutput(cmd.ErrOrStderr()))
		if err != nil {
			return nil, err
		}
		r.app = a
	}
	ctx := r.app.Context(cmd.Context())
	return slogx.WithOperation(ctx, cmd.CommandPath()), nil
}

func (r *runner) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

// caller resolves the --actor-* flags into the bundle used for audit stamps.
func (r *runner) caller(ctx context.Context) (*domain.Caller, error) {
	if r.actorClient == "" && r.actorUser == "" {
		return nil, nil
	}

	c := &domain.Caller{}
	var accountID string
	if r.actorClient != "" {
		client, err := r.app.Clients.Get(ctx, r.actorClient)
		if err != nil {
			return nil, fmt.Errorf("actor client: %w", err)
		}
		c.Client, accountID = client, client.Account
	}
	if r.actorUser != "" {
		user, err := r.app.Users.Get(ctx, r.actorUser)
		if err != nil {
			return nil, fmt.Errorf("actor user: %w", err)
		}
		if accountID != "" && accountID != user.Account {
			return nil, domain.ValidationError("Actors belong to different accounts")
		}
		c.User, accountID = user, user.Account
	}

	account, err := r.app.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("actor account: %w", err)
	}
	c.Account = account
	return c, nil
}
