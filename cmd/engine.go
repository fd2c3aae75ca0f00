package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/events"
	"github.com/huangsam/sensorium/internal/iostore"
	"github.com/huangsam/sensorium/internal/metrics"
)

// engine is the running pipeline shared by the ingest, sweep and serve commands.
type engine struct {
	pipeline  *core.Pipeline
	pool      *core.Pool
	bus       *events.Bus
	collector *metrics.Collector
}

// startEngine wires the store, event bus, metrics, cascade and worker pool from cfg
// and starts the workers.
func startEngine(ctx context.Context) (*engine, error) {
	collector := metrics.New()
	bus := events.NewBus(logger)

	if len(cfg.EventsBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.EventsBrokers, cfg.EventsTopic, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create event mirror: %w", err)
		}
		bus.AddMirror(kafka)
	}

	pipeline := core.NewPipelineFromConfig(cfg, iostore.Manager.GetSensorStore(), logger,
		core.WithPublisher(bus),
		core.WithRecorder(collector),
	)
	pool := core.NewPool(pipeline, core.PoolConfigFromConfig(cfg))
	bus.Subscribe(core.NewCascade(pipeline, pool).Handle)
	collector.TrackQueueDepth(pool.Depth)

	pool.Start(ctx)
	logger.Debug("engine started",
		slog.Int("workers", cfg.Workers),
		slog.Int("queue_size", cfg.QueueSize),
		slog.String("timezone", cfg.Location.String()))

	return &engine{pipeline: pipeline, pool: pool, bus: bus, collector: collector}, nil
}

// sweeper returns a sweeper over the configured lookbacks.
func (e *engine) sweeper() *core.Sweeper {
	return core.NewSweeper(e.pipeline, e.pool, core.SweepWindowFromConfig(cfg))
}

// close drains the pool, so cascades triggered by the last writes still run, then
// closes the event mirrors.
func (e *engine) close() error {
	e.pool.Drain()
	if err := e.bus.Close(); err != nil {
		return errors.Join(errors.New("failed to close event mirrors"), err)
	}
	return nil
}
