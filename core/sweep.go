package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/huangsam/sensorium/core/agg"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// SweepWindow bounds a sweep. Since overrides both lookbacks when set.
type SweepWindow struct {
	HourLookback time.Duration
	DayLookback  time.Duration
	Since        time.Time
}

// SweepWindowFromConfig reads the lookbacks and the --since override.
func SweepWindowFromConfig(cfg *contract.Config) SweepWindow {
	return SweepWindow{HourLookback: cfg.HourLookback, DayLookback: cfg.DayLookback, Since: cfg.Since}
}

func (w SweepWindow) from(now time.Time, lookback, fallback time.Duration) time.Time {
	if !w.Since.IsZero() {
		return w.Since
	}
	if lookback <= 0 {
		lookback = fallback
	}
	return now.Add(-lookback)
}

// Sweeper re-evaluates completed buckets in a trailing window and dispatches the
// eligible ones. It recovers buckets whose cascade was missed.
type Sweeper struct {
	pipeline *Pipeline
	pool     *Pool
	cascade  *Cascade
	window   SweepWindow
	log      *slog.Logger
}

// NewSweeper creates a sweeper dispatching through pool.
func NewSweeper(pipeline *Pipeline, pool *Pool, window SweepWindow) *Sweeper {
	return &Sweeper{
		pipeline: pipeline,
		pool:     pool,
		cascade:  NewCascade(pipeline, pool),
		window:   window,
		log:      pipeline.log.With(slog.String("component", "sweep")),
	}
}

// SweepHours processes every completed hour in the window for all sensor kinds.
func (s *Sweeper) SweepHours(ctx context.Context) (schema.SweepReport, error) {
	now := s.pipeline.now()
	from := s.window.from(now, s.window.HourLookback, contract.DefaultHourLookback*time.Hour)
	return s.sweep(ctx, schema.HourResolution, from, now)
}

// SweepDays processes every completed day in the window for all sensor kinds.
func (s *Sweeper) SweepDays(ctx context.Context) (schema.SweepReport, error) {
	now := s.pipeline.now()
	from := s.window.from(now, s.window.DayLookback, contract.DefaultDayLookback*24*time.Hour)
	return s.sweep(ctx, schema.DayResolution, from, now)
}

// Recover runs the hour sweep, then the day sweep, so days see the hours just recovered.
func (s *Sweeper) Recover(ctx context.Context) ([]schema.SweepReport, error) {
	hours, err := s.SweepHours(ctx)
	if err != nil {
		return []schema.SweepReport{hours}, err
	}
	days, err := s.SweepDays(ctx)
	return []schema.SweepReport{hours, days}, err
}

func (s *Sweeper) sweep(ctx context.Context, res schema.Resolution, from, now time.Time) (schema.SweepReport, error) {
	report := schema.SweepReport{Resolution: res}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(o schema.Outcome) {
		mu.Lock()
		report.Add(o)
		mu.Unlock()
	}

	for _, kind := range schema.AllSensorKinds {
		for _, b := range agg.CompletedBuckets(kind, res, from, now, s.pipeline.loc) {
			if err := ctx.Err(); err != nil {
				wg.Wait()
				return report, err
			}

			exists, err := s.pipeline.store.HasAggregate(ctx, b)
			if err != nil {
				wg.Wait()
				return report, err
			}
			if exists {
				record(schema.Duplicate(b))
				continue
			}
			g, err := s.cascade.gate(ctx, b)
			if err != nil {
				wg.Wait()
				return report, err
			}
			if !g.Eligible {
				s.pipeline.logSkip(b, inputUnit(res), g)
				record(schema.Skipped(b, g.Reason, g.Detail))
				continue
			}

			wg.Add(1)
			task := Task{Bucket: b, Done: func(o schema.Outcome) {
				record(o)
				wg.Done()
			}}
			if err := s.pool.Submit(ctx, task); err != nil {
				wg.Done()
				wg.Wait()
				return report, err
			}
		}
	}
	wg.Wait()

	s.log.Info("sweep finished",
		slog.String("resolution", string(res)),
		slog.Time("from", from),
		slog.Int("scanned", report.Scanned),
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
		slog.Int("duplicate", report.Duplicate),
		slog.Int("failed", report.Failed))
	return report, nil
}

func inputUnit(res schema.Resolution) string {
	if res == schema.DayResolution {
		return "hours"
	}
	return "minutes"
}
