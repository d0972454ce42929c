package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stella-systems/stellanow-sdk-go/message"
	"github.com/stella-systems/stellanow-sdk-go/metric"
	"github.com/stella-systems/stellanow-sdk-go/sdk"
)

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish JSON-line messages from stdin",
		Long: `Reads one message per line from stdin, queues each and waits for delivery.
Each line looks like:

  {"eventType":"patron_visit","entities":[{"entityTypeDefinitionId":"patron","entityId":"P1"}],"payload":{"venue":"V1"}}

The message id of every queued line is printed to stdout.`,
		RunE: runPublish,
	}
	cmd.Flags().Duration("drain-timeout", 30*time.Second, "How long to wait for queued messages after input ends")
	cmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	return cmd
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	drainTimeout, _ := cmd.Flags().GetDuration("drain-timeout")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	var registry *metric.MetricsRegistry
	if cfg.Metrics.Enabled {
		registry = metric.NewMetricsRegistry()
	}

	client, err := sdk.NewFromConfig(cfg, sdk.WithLogger(logger), sdk.WithMetrics(registry))
	if err != nil {
		return fmt.Errorf("create sdk: %w", err)
	}

	client.OnError().Subscribe(func(err error) {
		logger.Warn("Delivery error", "error", err)
	})

	if registry != nil {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry,
			metric.WithHealthFunc(client.Health))
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Stop(ctx)
		}()
		logger.Info("Metrics server listening", "address", server.Address())
	}

	signalCtx, signalCancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := client.Start(signalCtx); err != nil {
		return fmt.Errorf("start sdk: %w", err)
	}
	logger.Info("Publisher started",
		"organization_id", cfg.Organization.ID,
		"transport", cfg.Broker.Transport)

	queued, readErr := publishLines(signalCtx, client, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if readErr != nil {
		logger.Error("Reading input failed", "error", readErr)
	}

	drainCtx, drainCancel := context.WithTimeout(signalCtx, drainTimeout)
	defer drainCancel()
	drainErr := client.WaitForDrain(drainCtx)
	if drainErr != nil {
		stats := client.Stats()
		logger.Warn("Stopping with undelivered messages",
			"queued", stats.QueueLength,
			"in_flight", stats.InFlight)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := client.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Publisher finished", "queued", queued)
	if readErr != nil {
		return readErr
	}
	if drainErr != nil {
		return fmt.Errorf("messages left undelivered: %w", drainErr)
	}
	return nil
}

// sender is the part of the SDK publishLines needs
type sender interface {
	SendMessage(msg *message.Message) (string, error)
}

// publishLines queues every valid line of r and writes its message id to out.
// It stops early when ctx ends. Returns the number of messages queued.
func publishLines(ctx context.Context, s sender, r io.Reader, out io.Writer, logger *slog.Logger) (int, error) {
	queued := 0

	err := readMessages(r,
		func(line int, msg *message.Message) {
			if ctx.Err() != nil {
				return
			}
			id, err := s.SendMessage(msg)
			if err != nil {
				logger.Warn("Message rejected", "line", line, "error", err)
				return
			}
			queued++
			_, _ = fmt.Fprintln(out, id)
		},
		func(line int, err error) {
			logger.Warn("Skipping malformed line", "line", line, "error", err)
		},
	)
	if ctx.Err() != nil {
		return queued, nil
	}
	return queued, err
}
