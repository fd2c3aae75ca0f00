package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huangsam/sensorium/core/agg"
	"github.com/huangsam/sensorium/schema"
)

// Process runs the aggregator matching b's resolution.
// Skips and duplicates are outcomes; only store failures are errors.
func (p *Pipeline) Process(ctx context.Context, b schema.Bucket) (schema.Outcome, error) {
	if _, ok := schema.ValidSensorKinds[b.Kind]; !ok {
		return schema.Outcome{}, fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, b.Kind)
	}
	switch b.Resolution {
	case schema.MinuteResolution:
		return p.ProcessMinute(ctx, b)
	case schema.HourResolution:
		return p.ProcessHour(ctx, b)
	case schema.DayResolution:
		return p.ProcessDay(ctx, b)
	default:
		return schema.Outcome{}, fmt.Errorf("resolution %q cannot be aggregated", b.Resolution)
	}
}

// alreadyProcessed checks the bucket before any reads so finished buckets cost one query.
func (p *Pipeline) alreadyProcessed(ctx context.Context, b schema.Bucket) (bool, error) {
	exists, err := p.store.HasAggregate(ctx, b)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", b.Key(), err)
	}
	if exists {
		p.log.Debug("bucket already processed", p.bucketAttrs(b)...)
	}
	return exists, nil
}

func (p *Pipeline) logSkip(b schema.Bucket, unit string, gate agg.GateResult) {
	msg := fmt.Sprintf("insufficient %s for %s", unit, b.Resolution)
	if gate.Reason == schema.InsufficientCoverage {
		msg = fmt.Sprintf("insufficient coverage for %s", b.Resolution)
	}
	p.log.Info(msg, append(p.bucketAttrs(b),
		slog.Int("found", gate.Found),
		slog.Int("required", gate.Required),
		slog.Int("coverage", gate.Coverage),
		slog.String("reason", gate.Detail))...)
}

func (p *Pipeline) logApproved(b schema.Bucket, count int) {
	p.log.Info(fmt.Sprintf("%s approved", b.Resolution), append(p.bucketAttrs(b),
		slog.Int("count", count),
		slog.Float64("coverage_pct", agg.CoveragePercent(b.Resolution, count)),
		slog.String("quality", agg.QualityLabel(b.Resolution, count)))...)
}

// ProcessMinute aggregates the raw readings of one minute.
func (p *Pipeline) ProcessMinute(ctx context.Context, b schema.Bucket) (schema.Outcome, error) {
	if done, err := p.alreadyProcessed(ctx, b); err != nil || done {
		return schema.Duplicate(b), err
	}

	readings, err := p.store.ListReadings(ctx, b.Kind, b.Start, agg.End(b))
	if err != nil {
		return schema.Outcome{}, fmt.Errorf("failed to load readings for %s: %w", b.Key(), err)
	}

	minute, gate := agg.ComputeMinute(b, readings)
	if !gate.Eligible {
		p.logSkip(b, "readings", gate)
		return schema.Skipped(b, gate.Reason, gate.Detail), nil
	}

	written, err := p.store.InsertMinute(ctx, minute)
	if err != nil {
		return schema.Outcome{}, err
	}
	if !written {
		return schema.Duplicate(b), nil
	}

	p.logAlerts(ctx, agg.EvaluateMinute(minute, p.thresholds))
	p.publish(ctx, b, minute.Avg, minute.ReadingCount)
	return schema.Processed(b, minute), nil
}

// ProcessHour aggregates the minute rows of one hour.
func (p *Pipeline) ProcessHour(ctx context.Context, b schema.Bucket) (schema.Outcome, error) {
	if done, err := p.alreadyProcessed(ctx, b); err != nil || done {
		return schema.Duplicate(b), err
	}

	minutes, err := p.store.ListMinutes(ctx, b.Kind, b.Start, agg.End(b))
	if err != nil {
		return schema.Outcome{}, fmt.Errorf("failed to load minutes for %s: %w", b.Key(), err)
	}

	hour, gate := agg.ComputeHour(b, minutes)
	if !gate.Eligible {
		p.logSkip(b, "minutes", gate)
		return schema.Skipped(b, gate.Reason, gate.Detail), nil
	}

	written, err := p.store.InsertHour(ctx, hour)
	if err != nil {
		return schema.Outcome{}, err
	}
	if !written {
		return schema.Duplicate(b), nil
	}

	p.logApproved(b, hour.MinuteCount)
	p.logAlerts(ctx, agg.EvaluateHour(hour, p.thresholds))
	p.publish(ctx, b, hour.Avg, hour.MinuteCount)
	return schema.Processed(b, hour), nil
}

// ProcessDay aggregates the hour rows of one calendar date.
func (p *Pipeline) ProcessDay(ctx context.Context, b schema.Bucket) (schema.Outcome, error) {
	if done, err := p.alreadyProcessed(ctx, b); err != nil || done {
		return schema.Duplicate(b), err
	}

	hours, err := p.store.ListHours(ctx, b.Kind, b.Start, agg.End(b))
	if err != nil {
		return schema.Outcome{}, fmt.Errorf("failed to load hours for %s: %w", b.Key(), err)
	}

	day, gate := agg.ComputeDay(b, hours, p.loc)
	if !gate.Eligible {
		p.logSkip(b, "hours", gate)
		return schema.Skipped(b, gate.Reason, gate.Detail), nil
	}

	written, err := p.store.InsertDay(ctx, day)
	if err != nil {
		return schema.Outcome{}, err
	}
	if !written {
		return schema.Duplicate(b), nil
	}

	p.logApproved(b, day.HourCount)
	p.logAlerts(ctx, agg.EvaluateDay(b, day, p.thresholds))
	p.publish(ctx, b, day.Avg, day.HourCount)
	return schema.Processed(b, day), nil
}
