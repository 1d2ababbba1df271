package cli

import (
	"github.com/spf13/cobra"
)

func (r *runner) signalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Track live connections of authorised callers",
	}
	cmd.AddCommand(r.signalConnectCmd(), r.signalDisconnectCmd(), r.signalListCmd())
	return cmd
}

func (r *runner) signalConnectCmd() *cobra.Command {
	var connectionID, token, origin string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Record a connection for the caller behind an access assertion",
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
			s, err := r.app.Signals.Connect(ctx, connectionID, caller)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s.View())
		},
	}
	cmd.Flags().StringVar(&connectionID, "connection-id", "", "transport connection id")
	cmd.Flags().StringVar(&token, "token", "", "access assertion")
	cmd.Flags().StringVar(&origin, "origin", "", "origin the connection came from")
	_ = cmd.MarkFlagRequired("connection-id")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (r *runner) signalDisconnectCmd() *cobra.Command {
	var connectionID string
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Drop the record of a connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := r.open(cmd)
			if err != nil {
				return err
			}
			if err := r.app.Signals.Disconnect(ctx, connectionID); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"connection_id": connectionID, "status": "disconnected"})
		},
	}
	cmd.Flags().StringVar(&connectionID, "connection-id", "", "transport connection id")
	_ = cmd.MarkFlagRequired("connection-id")
	return cmd
}

func (r *runner) signalListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections",
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
			page, err := r.app.Signals.List(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	f.bind(cmd)
	return cmd
}
