package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notification-rules/config"
	"notification-rules/internal/rule"
)

// ErrInvalidRules is returned by validate when at least one rule is rejected
var ErrInvalidRules = errors.New("invalid rules")

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Check rule files without running them",
		Long: `Load every .json, .yaml and .yml file under the rules directory and
report each rule that would be rejected at registration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	log, err := newLogger(opts, config.LogConfig{Level: "warn", OutputPath: "stderr", Encoding: "console"})
	if err != nil {
		return err
	}
	defer log.Sync()

	rules, err := rule.NewRulesLoader(log).LoadFromDirectory(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			invalid++
			fmt.Fprintf(out, "✗ rule %d (%s): %v\n", i, rules[i].Label(), err)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidRules, invalid, len(rules))
	}

	fmt.Fprintf(out, "✓ %d rules valid\n", len(rules))
	return nil
}
