package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"staybook/internal/domain"
	"staybook/internal/export"
)

// maxExportPages bounds a runaway has_more loop.
const maxExportPages = 100

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all your bookings to an xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "bookings.xlsx", "output file")
	return cmd
}

func runExport(cmd *cobra.Command, path string) error {
	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := c.ctx(cmd.Context())

	var all []domain.Booking
	for page := 1; page <= maxExportPages; page++ {
		res, err := c.api.MyBookings(ctx, page)
		if err != nil {
			return fmt.Errorf("listing bookings page %d: %w", page, err)
		}
		all = append(all, res.Items...)
		if !res.HasMore {
			break
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Bookings(f, all); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d bookings to %s\n", len(all), path)
	return nil
}
