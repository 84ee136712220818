package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Shows the configured user service and whether the stored tokens are still accepted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Server:  %s\n", cfg.endpoints().Users)

	creds, err := c.store.Load(cmd.Context())
	if err != nil {
		return err
	}
	if creds.Empty() {
		fmt.Fprintln(out, "Session: not logged in")
		fmt.Fprintln(out, "\nRun 'staybook login' to authenticate.")
		return nil
	}
	if claims, err := auth.ParseClaims(creds.Access); err == nil && !claims.ExpiresAt.IsZero() {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired, will refresh"
		}
		fmt.Fprintf(out, "Token:   %s (%s)\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"), state)
	}

	u, err := c.api.Me(c.ctx(cmd.Context()))
	switch {
	case err == nil:
		fmt.Fprintf(out, "Status:  ✓ authenticated as %s\n", u.Email)
	case domain.StatusOf(err) == 401:
		fmt.Fprintln(out, "Status:  ✗ session rejected")
		fmt.Fprintln(out, "\nRun 'staybook login' to re-authenticate.")
	default:
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
	}
	return nil
}
