// Package core orchestrates aggregation: the per-resolution aggregators, the cascade
// listener, the worker pool, recovery sweeps, batch ingestion and the query service.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/metrics"
	"github.com/huangsam/sensorium/schema"
)

// Pipeline runs the aggregators against a store. It holds no mutable state of its own.
type Pipeline struct {
	store      contract.SensorStore
	publisher  contract.Publisher
	recorder   contract.Recorder
	thresholds schema.ThresholdTable
	bands      map[schema.SensorKind]schema.Band
	loc        *time.Location
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher sets where completed-bucket events go.
func WithPublisher(p contract.Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r contract.Recorder) Option {
	return func(pl *Pipeline) { pl.recorder = r }
}

// WithThresholds sets the alert table.
func WithThresholds(t schema.ThresholdTable) Option {
	return func(pl *Pipeline) { pl.thresholds = t }
}

// WithBands sets the per-reading ideal ranges.
func WithBands(b map[schema.SensorKind]schema.Band) Option {
	return func(pl *Pipeline) { pl.bands = b }
}

// WithLocation sets the location hour and day buckets are cut in.
func WithLocation(loc *time.Location) Option {
	return func(pl *Pipeline) {
		if loc != nil {
			pl.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(pl *Pipeline) {
		if log != nil {
			pl.log = log
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = now }
}

// NewPipeline creates a pipeline with the default thresholds and bands, UTC buckets,
// no event publisher and no metrics.
func NewPipeline(store contract.SensorStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		recorder:   metrics.Noop{},
		thresholds: contract.DefaultThresholds(),
		bands:      contract.DefaultBands(),
		loc:        time.UTC,
		log:        contract.DiscardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPipelineFromConfig wires a pipeline from the validated configuration.
func NewPipelineFromConfig(cfg *contract.Config, store contract.SensorStore, log *slog.Logger, opts ...Option) *Pipeline {
	base := []Option{
		WithThresholds(cfg.Thresholds),
		WithBands(cfg.Bands),
		WithLocation(cfg.Location),
		WithLogger(log),
	}
	return NewPipeline(store, append(base, opts...)...)
}

// Location returns the bucketing location.
func (p *Pipeline) Location() *time.Location {
	return p.loc
}

// Store returns the underlying store.
func (p *Pipeline) Store() contract.SensorStore {
	return p.store
}

func (p *Pipeline) bucketAttrs(b schema.Bucket) []any {
	return []any{
		slog.String("kind", string(b.Kind)),
		slog.String("resolution", string(b.Resolution)),
		slog.String("bucket", b.In(p.loc).Label()),
	}
}

// publish emits a completion event. Failures are logged and never undo the write.
func (p *Pipeline) publish(ctx context.Context, b schema.Bucket, avg float64, count int) {
	if p.publisher == nil {
		return
	}
	ev := schema.BucketCompleted{Bucket: b, Avg: avg, Count: count, WrittenAt: p.now().UTC()}
	if err := p.publisher.Publish(ctx, ev); err != nil {
		p.log.Warn("failed to publish bucket completion", append(p.bucketAttrs(b), slog.Any("error", err))...)
	}
}

// logAlerts writes each advisory at its level.
func (p *Pipeline) logAlerts(ctx context.Context, alerts []schema.Alert) {
	for _, a := range alerts {
		level := slog.LevelWarn
		if a.Level == schema.AlertInfo {
			level = slog.LevelInfo
		}
		p.log.Log(ctx, level, "variation threshold exceeded",
			append(p.bucketAttrs(a.Bucket),
				slog.String("metric", a.Metric),
				slog.Float64("value", a.Value),
				slog.Float64("threshold", a.Threshold))...)
	}
}
