// Package cli defines the cobra command tree for the staybook client.
package cli

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"staybook/internal/adapters/observability"
)

var (
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "staybook",
		Short:         "Search stays and manage bookings",
		Long:          "A command-line client for the staybook marketplace: log in, search properties page by page, and list or export your bookings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/staybook/config.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log upstream diagnostics to stderr")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newSearchCmd(),
		newBookingsCmd(),
		newExportCmd(),
	)

	return root
}

func setupLogging(w io.Writer) {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log.Logger = observability.NewLoggerTo(w, "dev").Level(level)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
