package cli

import (
	"context"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/spf13/cobra"
)

func (r *runner) clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage machine Clients",
	}
	cmd.AddCommand(
		r.clientCreateCmd(),
		r.clientUpdateCmd(),
		r.clientSetEnabledCmd("enable", true),
		r.clientSetEnabledCmd("disable", false),
		r.clientGetCmd(),
		r.clientListCmd(),
		r.clientTokenCmd(),
		r.clientRefreshCmd(),
		r.clientSecretCmd(),
	)
	return cmd
}

func (r *runner) clientWithAccount(ctx context.Context, id string) (*domain.Client, *domain.Account, error) {
	c, err := r.app.Clients.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	a, err := r.app.Accounts.Get(ctx, c.Account)
	if err != nil {
		return nil, nil, err
	}
	return c, a, nil
}

func (r *runner) writeClient(ctx context.Context, cmd *cobra.Command, c *domain.Client) error {
	a, err := r.app.Accounts.Get(ctx, c.Account)
	if err != nil {
		return err
	}
	view, err := r.app.Clients.View(c, a)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), view)
}

func (r *runner) clientCreateCmd() *cobra.Command {
	var (
		f       attrFlags
		account string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a Client under an Account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			common, err := f.common(cmd)
			if err != nil {
				return err
			}
			caller, err := r.caller(ctx)
			if err != nil {
				return err
			}
			c, err := r.app.Clients.Create(ctx, account, domain.ClientAttrs{CommonAttrs: common, Name: f.nameAttr(cmd)}, caller)
			if err != nil {
				return err
			}
			return r.writeClient(ctx, cmd, c)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "owning account id")
	f.bind(cmd, true)
	return cmd
}

func (r *runner) clientUpdateCmd() *cobra.Command {
	var f attrFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a Client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			common, err := f.common(cmd)
			if err != nil {
				return err
			}
			caller, err := r.caller(ctx)
			if err != nil {
				return err
			}
			c, err := r.app.Clients.Update(ctx, args[0], domain.ClientAttrs{CommonAttrs: common, Name: f.nameAttr(cmd)}, caller)
			if err != nil {
				return err
			}
			return r.writeClient(ctx, cmd, c)
		},
	}
	f.bind(cmd, true)
	return cmd
}

func (r *runner) clientSetEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: use + " a Client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			caller, err := r.caller(ctx)
			if err != nil {
				return err
			}
			set := r.app.Clients.Disable
			if enabled {
				set = r.app.Clients.Enable
			}
			c, err := set(ctx, args[0], caller)
			if err != nil {
				return err
			}
			return r.writeClient(ctx, cmd, c)
		},
	}
}

func (r *runner) clientGetCmd() *cobra.Command {
	var name, account string
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a Client by id, or by --name within --account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			var c *domain.Client
			if len(args) == 1 {
				c, err = r.app.Clients.Get(ctx, args[0])
			} else {
				c, err = r.app.Clients.GetByName(ctx, name, account)
			}
			if err != nil {
				return err
			}
			return r.writeClient(ctx, cmd, c)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "client name")
	cmd.Flags().StringVar(&account, "account", "", "owning account id")
	return cmd
}

func (r *runner) clientListCmd() *cobra.Command {
	var (
		f       listFlags
		account string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			if account != "" {
				views, err := r.app.Clients.ListByAccount(ctx, account)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}
			p, err := f.params(cmd)
			if err != nil {
				return err
			}
			page, err := r.app.Clients.List(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "every client of this account, disabled included")
	f.bind(cmd)
	return cmd
}

func (r *runner) clientTokenCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "token <id>",
		Short: "Exchange a client id and secret for a token envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			pair, err := r.app.Clients.Login(ctx, args[0], secret)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pair)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "client secret")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func (r *runner) clientRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Rotate the refresh key and print a new refresh assertion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			c, a, err := r.clientWithAccount(ctx, args[0])
			if err != nil {
				return err
			}
			token, err := r.app.Clients.RefreshToken(ctx, c, a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"refresh_token": token})
		},
	}
}

func (r *runner) clientSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret <id>",
		Short: "Print the decrypted client secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			c, a, err := r.clientWithAccount(ctx, args[0])
			if err != nil {
				return err
			}
			secret, err := r.app.Clients.DecryptSecret(c, a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"id": c.ID, "secret": secret})
		},
	}
}
