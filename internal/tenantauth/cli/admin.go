package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/spf13/cobra"
)

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the application applies migrations
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			done, err := r.app.Bootstrap.IsBootstrapped(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"status": "ok", "bootstrapped": done})
		},
	}
}

func (r *runner) bootstrapCmd() *cobra.Command {
	var (
		token string
		req   service.BootstrapData
	)
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first Account and Client",
		Long: `Creates a SUPERADMIN Account and a READWRITE Client under it. Runs once,
and only with the bootstrap token from security.bootstrap_token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			res, err := r.app.Bootstrap.Bootstrap(ctx, token, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bootstrap token")
	cmd.Flags().StringVar(&req.AccountName, "account-name", "root", "name of the first account")
	cmd.Flags().StringVar(&req.ClientName, "client-name", "root", "name of the first client")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (r *runner) hashTokenCmd() *cobra.Command {
	var generate bool
	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print the Argon2id digest for security.bootstrap_token_hash",
		Long: `Hashes the given bootstrap token, or a freshly generated one with --generate.
Needs no configuration or database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			switch {
			case generate:
				t, err := cryptox.GenerateToken(cryptox.TokenSize256)
				if err != nil {
					return err
				}
				token = t
			case len(args) == 1:
				token = args[0]
			default:
				return domain.ValidationError("Token required, or pass --generate")
			}
			digest, err := cryptox.Hash(token)
			if err != nil {
				return err
			}
			out := map[string]string{"hash": digest}
			if generate {
				out["token"] = token
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random token and print it with its digest")
	return cmd
}

func (r *runner) housekeepCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "housekeep",
		Short: "Remove stale connection records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			hk := r.app.Housekeeping
			if !watch {
				n := hk.RunOnce(ctx)
				return writeJSON(cmd.OutOrStdout(), map[string]any{"removed": n, "max_age": hk.MaxAge.String()})
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			hk.Start()
			<-ctx.Done()
			hk.Stop()
			return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "stopped"})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running on the configured interval until interrupted")
	return cmd
}
