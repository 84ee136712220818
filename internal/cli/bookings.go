package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBookingsCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookings(cmd, page)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func runBookings(cmd *cobra.Command, page int) error {
	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	res, err := c.api.MyBookings(c.ctx(cmd.Context()), page)
	if err != nil {
		return fmt.Errorf("listing bookings: %w", err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, res)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(out, "No bookings.")
		return nil
	}
	printBookings(out, res.Items)
	if res.HasMore {
		fmt.Fprintf(out, "\nMore bookings: staybook bookings --page %d\n", page+1)
	}
	return nil
}
