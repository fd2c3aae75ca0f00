package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/sensorium/core/agg"
	"github.com/huangsam/sensorium/schema"
)

// Scheduler accepts aggregation tasks without blocking.
type Scheduler interface {
	TrySubmit(t Task) error
}

// Cascade schedules the containing hour or day after a lower bucket is written.
// Evaluating the same parent more than once is harmless; the store guard decides.
type Cascade struct {
	pipeline  *Pipeline
	scheduler Scheduler
	log       *slog.Logger
}

// NewCascade creates a cascade listener bound to scheduler.
func NewCascade(pipeline *Pipeline, scheduler Scheduler) *Cascade {
	return &Cascade{
		pipeline:  pipeline,
		scheduler: scheduler,
		log:       pipeline.log.With(slog.String("component", "cascade")),
	}
}

// Handle is an events.Handler. Scheduling failures are logged and never surface to the
// writer that emitted the event.
func (c *Cascade) Handle(ctx context.Context, ev schema.BucketCompleted) {
	parent, ok := agg.Parent(ev.Bucket, c.pipeline.loc)
	if !ok {
		return
	}

	eligible, err := c.Eligible(ctx, parent)
	if err != nil {
		c.log.Warn("failed to evaluate parent bucket", append(c.pipeline.bucketAttrs(parent), slog.Any("error", err))...)
		return
	}
	if !eligible {
		return
	}

	if err := c.scheduler.TrySubmit(Task{Bucket: parent}); err != nil {
		c.log.Warn("failed to schedule parent bucket", append(c.pipeline.bucketAttrs(parent), slog.Any("error", err))...)
		return
	}
	c.log.Debug("scheduled parent bucket", c.pipeline.bucketAttrs(parent)...)
}

// Eligible reports whether b has no row yet and its inputs pass the gate now.
func (c *Cascade) Eligible(ctx context.Context, b schema.Bucket) (bool, error) {
	exists, err := c.pipeline.store.HasAggregate(ctx, b)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	g, err := c.gate(ctx, b)
	return g.Eligible, err
}

// gate evaluates the completeness gate of b against its current inputs.
func (c *Cascade) gate(ctx context.Context, b schema.Bucket) (agg.GateResult, error) {
	var starts []time.Time
	switch b.Resolution {
	case schema.HourResolution:
		minutes, err := c.pipeline.store.ListMinutes(ctx, b.Kind, b.Start, agg.End(b))
		if err != nil {
			return agg.GateResult{}, err
		}
		for _, m := range minutes {
			starts = append(starts, m.BucketStart)
		}
		return agg.CheckHour(starts), nil
	case schema.DayResolution:
		hours, err := c.pipeline.store.ListHours(ctx, b.Kind, b.Start, agg.End(b))
		if err != nil {
			return agg.GateResult{}, err
		}
		for _, h := range hours {
			starts = append(starts, h.BucketStart)
		}
		return agg.CheckDay(starts), nil
	}
	return agg.GateResult{}, fmt.Errorf("resolution %q has no gate", b.Resolution)
}
