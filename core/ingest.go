package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/huangsam/sensorium/core/agg"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// Ingester writes device batches to the raw store and schedules their minutes.
type Ingester struct {
	pipeline *Pipeline
	pool     *Pool
	spool    contract.BatchSpool
	log      *slog.Logger
}

// NewIngester creates an ingester staging batches in spool.
func NewIngester(pipeline *Pipeline, pool *Pool, spool contract.BatchSpool) *Ingester {
	return &Ingester{
		pipeline: pipeline,
		pool:     pool,
		spool:    spool,
		log:      pipeline.log.With(slog.String("component", "ingest")),
	}
}

// Ingest stages data, appends its readings and waits for every touched minute to reach an
// outcome. The staged file ends up in the processed area, or in the errors area when the
// batch is malformed or any of its minutes failed permanently.
func (in *Ingester) Ingest(ctx context.Context, id string, data []byte) (schema.IngestResult, error) {
	batch, decodeErr := schema.DecodeBatch(data, in.pipeline.loc)
	if decodeErr == nil && batch.ID != "" && id == "" {
		id = batch.ID
	}

	name, err := in.spool.Stage(id, data)
	if err != nil {
		return schema.IngestResult{}, fmt.Errorf("failed to stage batch: %w", err)
	}
	result := schema.IngestResult{Batch: name, Minutes: schema.SweepReport{Resolution: schema.MinuteResolution}}

	if decodeErr != nil {
		return in.reject(result, decodeErr)
	}

	readings := make([]schema.RawReading, 0, len(batch.Readings)*len(schema.AllSensorKinds))
	minutes := make(map[string]schema.Bucket)
	for kind, rs := range batch.Split() {
		for _, r := range rs {
			if alert, ok := agg.EvaluateReading(r, in.pipeline.bands); ok {
				in.logReadingAlert(ctx, alert, in.pipeline.bands[kind].Unit)
				result.Alerts++
			}
			b := agg.BucketFor(kind, schema.MinuteResolution, r.Timestamp, in.pipeline.loc)
			minutes[b.Key()] = b
			readings = append(readings, r)
		}
	}
	result.Readings = len(batch.Readings)

	if err := in.pipeline.store.InsertReadings(ctx, readings); err != nil {
		return in.reject(result, fmt.Errorf("failed to write readings: %w", err))
	}

	in.log.Info("batch written",
		slog.String("batch", name),
		slog.Int("readings", result.Readings),
		slog.Int("minutes", len(minutes)))

	report, err := in.scheduleMinutes(ctx, name, minutes)
	result.Minutes = report
	if err != nil {
		return in.reject(result, err)
	}
	if report.Failed > 0 {
		return in.reject(result, fmt.Errorf("%d minute buckets failed", report.Failed))
	}

	if err := in.spool.MarkProcessed(name); err != nil {
		return result, fmt.Errorf("failed to archive batch %s: %w", name, err)
	}
	in.pipeline.recorder.ObserveIngest(result.Readings, false)
	return result, nil
}

// scheduleMinutes submits every minute bucket in time order and waits for their outcomes.
func (in *Ingester) scheduleMinutes(ctx context.Context, name string, minutes map[string]schema.Bucket) (schema.SweepReport, error) {
	buckets := make([]schema.Bucket, 0, len(minutes))
	for _, b := range minutes {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].Start.Equal(buckets[j].Start) {
			return buckets[i].Start.Before(buckets[j].Start)
		}
		return buckets[i].Kind < buckets[j].Kind
	})

	report := schema.SweepReport{Resolution: schema.MinuteResolution}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	var submitErr error
	for _, b := range buckets {
		wg.Add(1)
		task := Task{Bucket: b, Batch: name, Done: func(o schema.Outcome) {
			mu.Lock()
			report.Add(o)
			mu.Unlock()
			wg.Done()
		}}
		if err := in.pool.Submit(ctx, task); err != nil {
			wg.Done()
			submitErr = fmt.Errorf("failed to schedule %s: %w", b.Key(), err)
			break
		}
	}
	wg.Wait()
	return report, submitErr
}

func (in *Ingester) reject(result schema.IngestResult, cause error) (schema.IngestResult, error) {
	result.Failed = true
	in.log.Error("batch rejected", slog.String("batch", result.Batch), slog.Any("error", cause))
	in.pipeline.recorder.ObserveIngest(result.Readings, true)
	if err := in.spool.MarkFailed(result.Batch); err != nil {
		return result, errors.Join(cause, fmt.Errorf("failed to move batch %s to errors: %w", result.Batch, err))
	}
	return result, cause
}

func (in *Ingester) logReadingAlert(ctx context.Context, a schema.Alert, unit string) {
	level := slog.LevelWarn
	if a.Level == schema.AlertInfo {
		level = slog.LevelInfo
	}
	in.log.Log(ctx, level, "reading outside ideal range",
		slog.String("kind", string(a.Bucket.Kind)),
		slog.Time("timestamp", a.Bucket.Start),
		slog.Float64("value", a.Value),
		slog.Float64("threshold", a.Threshold),
		slog.String("unit", unit))
}
