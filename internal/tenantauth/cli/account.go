package cli

import (
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/spf13/cobra"
)

func (r *runner) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage tenant Accounts",
	}
	cmd.AddCommand(
		r.accountCreateCmd(),
		r.accountUpdateCmd(),
		r.accountSetEnabledCmd("enable", true),
		r.accountSetEnabledCmd("disable", false),
		r.accountGetCmd(),
		r.accountListCmd(),
	)
	return cmd
}

func (r *runner) accountCreateCmd() *cobra.Command {
	var f attrFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an Account with a fresh root key",
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
			a, err := r.app.Accounts.Create(ctx, domain.AccountAttrs{CommonAttrs: common, Name: f.nameAttr(cmd)}, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.View())
		},
	}
	f.bind(cmd, true)
	return cmd
}

func (r *runner) accountUpdateCmd() *cobra.Command {
	var f attrFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an Account",
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
			a, err := r.app.Accounts.Update(ctx, args[0], domain.AccountAttrs{CommonAttrs: common, Name: f.nameAttr(cmd)}, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.View())
		},
	}
	f.bind(cmd, true)
	return cmd
}

func (r *runner) accountSetEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: use + " an Account",
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
			set := r.app.Accounts.Disable
			if enabled {
				set = r.app.Accounts.Enable
			}
			a, err := set(ctx, args[0], caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.View())
		},
	}
}

func (r *runner) accountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an Account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			a, err := r.app.Accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.View())
		},
	}
}

func (r *runner) accountListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			p, err := f.params(cmd)
			if err != nil {
				return err
			}
			page, err := r.app.Accounts.List(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	f.bind(cmd)
	return cmd
}
