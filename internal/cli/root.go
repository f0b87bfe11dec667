package cli

import (
	"github.com/spf13/cobra"

	"notification-rules/config"
	"notification-rules/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the notification-rules CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notification-rules",
		Short: "Evaluate rules against a stream of notifications",
		Long: `notification-rules keeps a history of motion and ding notifications and
evaluates registered rules against it each time a notification is posted.
Rules whose conditions hold fire their actions (LOG or PUBLISH).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// newLogger builds the command logger, lowering the level to debug for --verbose
func newLogger(opts *RootOptions, cfg config.LogConfig) (*logger.Logger, error) {
	if opts.Verbose {
		cfg.Level = "debug"
	}
	return logger.NewLogger(&cfg)
}
