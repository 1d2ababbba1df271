package cli

import (
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/spf13/cobra"
)

// callerView is what authorize prints. The client secret stays out of it.
type callerView struct {
	Account domain.AccountView `json:"account"`
	Client  *clientRef         `json:"client,omitempty"`
	User    *domain.UserView   `json:"user,omitempty"`
}

type clientRef struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AccessPermission string `json:"access_permission"`
}

func newCallerView(c *domain.Caller) callerView {
	v := callerView{Account: c.Account.View()}
	if c.Client != nil {
		v.Client = &clientRef{
			ID:               c.Client.ID,
			Name:             c.Client.Name,
			AccessPermission: domain.ClientPermissions.Name(c.Client.Permission),
		}
	}
	if c.User != nil {
		u := c.User.View()
		v.User = &u
	}
	return v
}

func (r *runner) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Refresh and check signed assertions",
	}
	cmd.AddCommand(r.sessionRefreshCmd(), r.sessionAuthorizeCmd())
	return cmd
}

func (r *runner) sessionRefreshCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh assertion for a new token envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			pair, err := r.app.Sessions.Refresh(ctx, token)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pair)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "refresh assertion")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (r *runner) sessionAuthorizeCmd() *cobra.Command {
	var token, origin string
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Resolve an access assertion into its caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			caller, err := r.app.Sessions.Authorize(ctx, token, origin)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newCallerView(caller))
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access assertion")
	cmd.Flags().StringVar(&origin, "origin", "", "origin the request came from")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
