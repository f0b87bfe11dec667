package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"notification-rules/config"
	"notification-rules/internal/action"
	"notification-rules/internal/notification"
	"notification-rules/internal/rule"
	"notification-rules/internal/stats"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	RulesPath string
	Count     int
	Seed      int64
	Rate      float64 // notifications per second, 0 = unpaced
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Post generated notifications against a rule set",
		Long: `Generate random motion and ding notifications and post them to an
in-memory evaluator. LOG actions print the notification as a JSON line.

Without --rules the evaluator holds two reference rules, both triggered by
motion: one requires every notification so far to be a motion, the other
requires every one to be a ding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "rules directory (default: reference rules)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 10, "number of notifications to post")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "generator seed (0 = time based)")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "notifications per second (0 = as fast as possible)")

	return cmd
}

func runDemo(rootOpts *RootOptions, opts *DemoOptions, cmd *cobra.Command) error {
	if opts.Count < 0 {
		return fmt.Errorf("count must not be negative: %d", opts.Count)
	}
	if opts.Rate < 0 {
		return fmt.Errorf("rate must not be negative: %v", opts.Rate)
	}

	log, err := newLogger(rootOpts, config.LogConfig{Level: "warn", OutputPath: "stderr", Encoding: "console"})
	if err != nil {
		return err
	}
	defer log.Sync()

	rules := referenceRules()
	if opts.RulesPath != "" {
		rules, err = rule.NewRulesLoader(log).LoadFromDirectory(opts.RulesPath)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	dispatcher := action.NewDispatcher(action.NewWriterSink(out), nil, log, nil)
	processor := rule.NewProcessor(dispatcher, log, nil)
	if err := processor.LoadRules(rules); err != nil {
		return err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := notification.NewGenerator(seed)

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	collector := stats.NewCollector()
	ctx := cmd.Context()
	for i := 0; i < opts.Count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		n := gen.Next()
		collector.IncReceived()
		if err := processor.Post(ctx, n); err != nil {
			log.Warn("notification posted with errors",
				"notification", n.ID,
				"error", err)
		}
	}

	ps := processor.GetStats()
	collector.Update(ps.Posted, ps.Matched, ps.ActionsFired, ps.ActionErrors+ps.EvaluationErrors)

	summary, err := collector.JSON()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "seed=%d %s\n", seed, summary)

	return nil
}

// referenceRules are two motion-triggered rules: the first holds while the
// history is all motions, the second while it is all dings
func referenceRules() []rule.Rule {
	return []rule.Rule{
		{
			Name:    "all-motion",
			Trigger: notification.TypeMotion,
			Conditions: []rule.Condition{{
				Field:    rule.FieldType,
				Operator: rule.OperatorEqualTo,
				Operand:  rule.StringValue(string(notification.TypeMotion)),
				Mode:     rule.ModeAll,
			}},
			Actions: []rule.Action{{Type: rule.ActionLog}},
		},
		{
			Name:    "all-ding",
			Trigger: notification.TypeMotion,
			Conditions: []rule.Condition{{
				Field:    rule.FieldType,
				Operator: rule.OperatorEqualTo,
				Operand:  rule.StringValue(string(notification.TypeDing)),
				Mode:     rule.ModeAll,
			}},
			Actions: []rule.Action{{Type: rule.ActionLog}},
		},
	}
}
