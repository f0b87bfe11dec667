package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"notification-rules/config"
	"notification-rules/internal/action"
	"notification-rules/internal/broker"
	"notification-rules/internal/broker/mqtt"
	"notification-rules/internal/broker/nats"
	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
	"notification-rules/internal/rule"
	"notification-rules/internal/stats"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	ConfigPath  string
	RulesPath   string
	Broker      string
	Topic       string
	MetricsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate rules against notifications from a broker",
		Long: `Load the rule set and post every notification received on the broker
topic to the evaluator until interrupted.

With --broker none, notifications are read as JSON lines from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default: built-in defaults)")
	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "override rules directory")
	cmd.Flags().StringVar(&opts.Broker, "broker", "", "override broker type (mqtt|nats|none)")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "override notification topic")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve metrics on this address")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, err := newLogger(rootOpts, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsService *metrics.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metricsService, err = metrics.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("failed to create metrics service: %w", err)
		}
		metricsServer = startMetricsServer(cfg.Metrics, reg, log)
	}

	client, err := newBrokerClient(cfg, log, metricsService)
	if err != nil {
		return err
	}

	var publisher action.Publisher
	if client != nil {
		publisher = client
	}

	dispatcher := action.NewDispatcher(action.NewLogSink(log), publisher, log, metricsService)
	processor := rule.NewProcessor(dispatcher, log, metricsService)

	rules, err := rule.NewRulesLoader(log).LoadFromDirectory(cfg.Rules.Path)
	if err != nil {
		closeClient(client, log)
		return err
	}
	if err := processor.LoadRules(rules); err != nil {
		closeClient(client, log)
		return err
	}

	log.Info("notification-rules started",
		"broker", cfg.Broker.Type,
		"topic", cfg.Broker.Topic,
		"rulesCount", len(rules),
		"metricsEnabled", cfg.Metrics.Enabled)

	collector := stats.NewCollector()
	if client != nil {
		bridge := broker.NewBridge(client, processor, log, metricsService)
		if err := bridge.Start(ctx, cfg.Broker.Topic); err != nil {
			closeClient(client, log)
			return err
		}
		<-ctx.Done()
		bridge.Wait()

		bs := bridge.GetStats()
		collector.AddReceived(bs.MessagesReceived)
		log.Info("shutting down",
			"received", bs.MessagesReceived,
			"decodeErrors", bs.DecodeErrors)
	} else if err := readNotifications(ctx, cmd.InOrStdin(), processor, collector, log); err != nil {
		return err
	}

	closeClient(client, log)
	shutdownMetricsServer(metricsServer, log)

	ps := processor.GetStats()
	collector.Update(ps.Posted, ps.Matched, ps.ActionsFired, ps.ActionErrors+ps.EvaluationErrors)
	log.Info("notification-rules stopped", "summary", collector.Summary())

	return nil
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig(opts *RunOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyOverrides(opts.Broker, opts.Topic, opts.RulesPath, opts.MetricsAddr)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newBrokerClient connects the configured broker; nil when the type is none
func newBrokerClient(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (broker.Client, error) {
	switch cfg.Broker.Type {
	case config.BrokerMQTT:
		c, err := mqtt.NewClient(cfg.MQTT, log, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt client: %w", err)
		}
		return c, nil
	case config.BrokerNATS:
		c, err := nats.NewClient(cfg.NATS, log, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create nats client: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}

func closeClient(client broker.Client, log *logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error("failed to close broker client", "error", err)
	}
}

// readNotifications posts one JSON notification per line of r until EOF or ctx ends
func readNotifications(ctx context.Context, r io.Reader, processor *rule.Processor, collector *stats.Collector, log *logger.Logger) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			collector.IncReceived()

			n, err := notification.Decode(line)
			if err != nil {
				log.Error("failed to decode notification", "error", err)
				continue
			}
			if err := processor.Post(ctx, n); err != nil {
				log.Error("notification posted with errors",
					"notification", n.ID,
					"error", err)
			}
		}
	}
}

func startMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:          reg,
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}

	go func() {
		log.Info("starting metrics server",
			"address", cfg.Address,
			"path", cfg.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	return server
}

func shutdownMetricsServer(server *http.Server, log *logger.Logger) {
	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown metrics server", "error", err)
	}
}
