package cli

import (
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/spf13/cobra"
)

func (r *runner) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage end Users identified by a public address",
	}
	cmd.AddCommand(
		r.userCreateCmd(),
		r.userUpdateCmd(),
		r.userSetEnabledCmd("enable", true),
		r.userSetEnabledCmd("disable", false),
		r.userGetCmd(),
		r.userListCmd(),
		r.userChallengeCmd(),
		r.userLoginCmd(),
		r.userNonceCmd(),
		r.userValidationTokenCmd(),
	)
	return cmd
}

func (r *runner) userCreateCmd() *cobra.Command {
	var (
		f                attrFlags
		account, address string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a User under an Account",
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
			in := domain.UserAttrs{CommonAttrs: common}
			if cmd.Flags().Changed("address") {
				in.PublicAddress = &address
			}
			u, err := r.app.Users.Create(ctx, account, in, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u.View())
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "owning account id")
	cmd.Flags().StringVar(&address, "address", "", "0x-prefixed public address")
	f.bind(cmd, false)
	return cmd
}

func (r *runner) userUpdateCmd() *cobra.Command {
	var f attrFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a User",
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
			u, err := r.app.Users.Update(ctx, args[0], domain.UserAttrs{CommonAttrs: common}, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u.View())
		},
	}
	f.bind(cmd, false)
	return cmd
}

func (r *runner) userSetEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: use + " a User",
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
			set := r.app.Users.Disable
			if enabled {
				set = r.app.Users.Enable
			}
			u, err := set(ctx, args[0], caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u.View())
		},
	}
}

func (r *runner) userGetCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a User by id or by --address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			var u *domain.User
			if len(args) == 1 {
				u, err = r.app.Users.Get(ctx, args[0])
			} else {
				u, err = r.app.Users.GetByPublicAddress(ctx, address)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u.View())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "public address")
	return cmd
}

func (r *runner) userListCmd() *cobra.Command {
	var (
		f       listFlags
		account string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			if account != "" {
				views, err := r.app.Users.GetByAccount(ctx, account)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}
			p, err := f.params(cmd)
			if err != nil {
				return err
			}
			page, err := r.app.Users.List(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "every user of this account, disabled included")
	f.bind(cmd)
	return cmd
}

func (r *runner) userChallengeCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Print the message the User has to sign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			msg, err := r.app.Users.Challenge(ctx, address)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"public_address": address, "message": msg})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "public address")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func (r *runner) userLoginCmd() *cobra.Command {
	var (
		address, signature string
		extra              []string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange a signed nonce for a token envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			c, err := claims(extra)
			if err != nil {
				return err
			}
			pair, err := r.app.Users.Authenticate(ctx, address, signature, c)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pair)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "public address")
	cmd.Flags().StringVar(&signature, "signature", "", "0x-prefixed signature over the challenge")
	cmd.Flags().StringArrayVar(&extra, "claim", nil, "extra access claim key=value, repeatable; origin pins the token")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func (r *runner) userNonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nonce <id>",
		Short: "Replace the User's nonce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			u, err := r.app.Users.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := r.app.Users.GenerateNewNonce(ctx, u); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"id": u.ID, "message": domain.NonceMessage(u.Nonce)})
		},
	}
}

func (r *runner) userValidationTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validation-token <id>",
		Short: "Issue a verification assertion and disable the User until verified",
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
			u, err := r.app.Users.Get(ctx, args[0])
			if err != nil {
				return err
			}
			token, err := r.app.Users.ValidationToken(ctx, u, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"validation_token": token})
		},
	}
}
