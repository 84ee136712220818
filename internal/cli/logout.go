package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"staybook/internal/auth"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and remove the stored tokens",
		Long:  "Revokes the refresh token upstream and removes the stored credentials. Local credentials are removed even if revocation fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd)
		},
	}
}

func runLogout(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if c.session.State() == auth.LoggedOut {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	ctx := c.ctx(cmd.Context())
	if err := c.session.Logout(ctx, c.api.Logout); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: revoking token: %v\n", err)
	}

	fmt.Fprintln(out, "✓ Logged out. Credentials removed.")
	return nil
}
