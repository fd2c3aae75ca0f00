package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/httpapi"
	"github.com/spf13/cobra"
)

// serveCmd runs the long-lived pipeline.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline with periodic recovery sweeps and the HTTP query API",
	Long: `Run the worker pool, the cascade listener and a recovery sweep every sweep-interval,
and serve the read-only query API with Prometheus metrics.

Endpoints:
  GET /healthz
  GET /metrics
  GET /api/v1/{kind}/raw|minutes|hours|days   ?start=&end=&limit=&offset=&order=
  GET /api/v1/{kind}/latest
  GET /api/v1/{kind}/stats                    ?start=&end=
  GET /api/v1/{kind}/variations               ?min_range=&min_std_dev=
  GET /api/v1/{kind}/compare                  ?at=

When events-brokers is set, every completed bucket is also published to Kafka.
SIGINT or SIGTERM stops the listener and the sweeps, then drains pending work.

Examples:
  # Serve on the default address
  sensorium serve

  # Sweep every minute and mirror events to Kafka
  sensorium serve --sweep-interval 1m --events-brokers localhost:9092`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Workers outlive ctx so that draining finishes the tasks already accepted
		eng, err := startEngine(rootCtx)
		if err != nil {
			return err
		}

		sweeps := make(chan struct{})
		go func() {
			defer close(sweeps)
			runSweepLoop(ctx, eng.sweeper(), cfg.SweepInterval)
		}()

		queries := core.NewQueryService(eng.pipeline)
		server := httpapi.NewServer(cfg.Listen, queries, eng.collector, logger, httpapi.WithQueueDepth(eng.pool.Depth))
		serveErr := server.Start(ctx)

		stop()
		<-sweeps
		logger.Info("draining pending aggregation tasks", slog.Int("queued", eng.pool.Depth()))
		return errors.Join(serveErr, eng.close())
	},
}

// runSweepLoop recovers once at startup, then on every tick, until ctx is done.
// Sweeps never overlap.
func runSweepLoop(ctx context.Context, sweeper *core.Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := sweeper.Recover(ctx); err != nil && ctx.Err() == nil {
			logger.Error("recovery sweep failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
