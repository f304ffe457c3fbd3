// Command drainq empties a message queue, or its dead-letter sub-queue, by
// receiving and acknowledging every message until the queue reports empty.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dc0d/drainq/service/drain"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("DRAINQ_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "drainq")
	cmd := newRootCommand(baseLogger)
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if _, err := cmd.ExecuteContextC(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			baseLogger.Error("drain failed", "error", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "drainq [profile]",
		Short:         "drainq removes every message from a queue or its dead-letter sub-queue",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		Example: `
  # Azure Service Bus queue, sessions detected automatically
  drainq --connection-string "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=...;SharedAccessKey=..." --queue orders

  # dead-letter sub-queue of an SQS queue
  drainq --connection-string sqs://eu-west-1 --queue orders --dead-letter

  # named section of ./drainq.yaml
  drainq staging

  # in-memory queue seeded with 2500 messages in 3 sessions (tests/dev only)
  drainq --connection-string "mem://?messages=2500&sessions=3" --queue demo
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := baseLogger

			configFile, err := loadConfigFile(v)
			if err != nil {
				return err
			}
			if configFile != "" {
				logger.Debug("cli.config.loaded", "path", configFile)
			}

			if len(args) == 1 {
				found, err := selectProfile(v, args[0])
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(cmd.OutOrStdout(), "Section %s not found\n", args[0])
					return nil
				}
			}

			cfg := bindConfig(v)
			if level, ok := pslog.ParseLevel(cfg.LogLevel); ok {
				logger = logger.LogLevel(level)
			}
			if cfg.ConnectionString == "" || cfg.Queue == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration not found")
				return nil
			}

			return run(cmd, logger, cfg)
		},
	}

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.StringP("config", "c", "", "path to a config file (defaults to ./drainq.* or $HOME/.drainq/config.*)")
	persistentFlags.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	flags := cmd.Flags()
	flags.String("connection-string", "", "Service Bus connection string, sqs://[region] or mem:// endpoint")
	flags.String("queue", "", "name of the queue to drain")
	flags.Bool("dead-letter", false, "drain the dead-letter sub-queue instead of the queue")
	flags.Int("batch-size", drain.DefaultBatchSize, "most messages requested per receive")
	flags.Duration("receive-wait", drain.DefaultReceiveWait, "how long a receive waits for the first message")
	flags.Duration("session-wait", drain.DefaultSessionWait, "how long to wait for a session to become available")
	flags.Int("ack-concurrency", 0, "in-flight acknowledgements per batch (0 acknowledges the whole batch at once)")
	flags.String("metrics-listen", "", "metrics listen address (Prometheus scrape endpoint; empty disables)")

	lookup := func(name string) *pflag.Flag {
		if flag := flags.Lookup(name); flag != nil {
			return flag
		}
		return persistentFlags.Lookup(name)
	}
	bindFlag := func(name string) {
		flag := lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := v.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}

	v.SetEnvPrefix("DRAINQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	names := []string{
		"config", "log-level",
		"connection-string", "queue", "dead-letter",
		"batch-size", "receive-wait", "session-wait", "ack-concurrency",
		"metrics-listen",
	}
	for _, name := range names {
		bindFlag(name)
	}

	return cmd
}

func run(cmd *cobra.Command, logger pslog.Logger, cfg config) error {
	ctx := cmd.Context()

	backend, err := openBackend(ctx, cfg.ConnectionString, cfg.Queue)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drain.DefaultCloseTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Warn("cli.backend.close_failed", "error", err)
		}
	}()

	var metrics *drain.Metrics
	if cfg.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		metrics = drain.NewMetrics(registry)
		srv, err := startMetricsServer(cfg.MetricsListen, registry, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("cli.metrics.enabled", "listen", cfg.MetricsListen)
	}

	drainer := drain.New(drain.Options{
		Client:         backend,
		Counter:        backend,
		Logger:         logger,
		Metrics:        metrics,
		BatchSize:      cfg.BatchSize,
		ReceiveWait:    cfg.ReceiveWait,
		SessionWait:    cfg.SessionWait,
		AckConcurrency: cfg.AckConcurrency,
	})

	target := drain.Target{
		ConnectionString: cfg.ConnectionString,
		QueueName:        cfg.Queue,
		DeadLetter:       cfg.DeadLetter,
	}
	report, err := drainer.Drain(ctx, target)
	if err != nil {
		return err
	}

	what := cfg.Queue
	if cfg.DeadLetter {
		what += " (dead-letter)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "drained %s messages from %s in %d batches\n",
		humanize.Comma(report.Acknowledged), what, report.Batches)

	return nil
}
