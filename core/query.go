package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/sensorium/core/agg"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// ErrNoData is returned when a lookup matched nothing.
var ErrNoData = errors.New("no data found")

// QueryService is the read-only view over the store shared by the CLI, HTTP and MCP surfaces.
type QueryService struct {
	store      contract.SensorStore
	thresholds schema.ThresholdTable
	loc        *time.Location
}

// NewQueryService creates a query service using the pipeline's store and thresholds.
func NewQueryService(p *Pipeline) *QueryService {
	return &QueryService{store: p.store, thresholds: p.thresholds, loc: p.loc}
}

// Location is the zone day buckets and wall-clock arguments are read in.
func (s *QueryService) Location() *time.Location {
	return s.loc
}

// NormalizeListQuery validates q and fills in the defaults.
func NormalizeListQuery(q schema.ListQuery) (schema.ListQuery, error) {
	if _, ok := schema.ValidSensorKinds[q.Kind]; !ok {
		return q, fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, q.Kind)
	}
	switch {
	case q.Limit == 0:
		q.Limit = contract.DefaultResultLimit
	case q.Limit < 0 || q.Limit > contract.MaxResultLimit:
		return q, fmt.Errorf("limit must be between 1 and %d (received %d)", contract.MaxResultLimit, q.Limit)
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("offset cannot be negative (received %d)", q.Offset)
	}
	switch q.Order {
	case "":
		q.Order = schema.Descending
	case schema.Ascending, schema.Descending:
	default:
		return q, fmt.Errorf("invalid order '%s'. must be asc, desc", q.Order)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.After(q.End) {
		return q, fmt.Errorf("start time (%s) cannot be after end time (%s)", q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	}
	return q, nil
}

// Readings lists raw readings.
func (s *QueryService) Readings(ctx context.Context, q schema.ListQuery) ([]schema.RawReading, error) {
	q, err := NormalizeListQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.QueryReadings(ctx, q)
}

// Minutes lists minute aggregates.
func (s *QueryService) Minutes(ctx context.Context, q schema.ListQuery) ([]schema.MinuteAggregate, error) {
	q, err := NormalizeListQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.QueryMinutes(ctx, q)
}

// Hours lists hour aggregates.
func (s *QueryService) Hours(ctx context.Context, q schema.ListQuery) ([]schema.HourAggregate, error) {
	q, err := NormalizeListQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.QueryHours(ctx, q)
}

// Days lists day aggregates. Range bounds are compared as dates in the bucketing location.
func (s *QueryService) Days(ctx context.Context, q schema.ListQuery) ([]schema.DayAggregate, error) {
	q, err := NormalizeListQuery(q)
	if err != nil {
		return nil, err
	}
	if !q.Start.IsZero() {
		q.Start = q.Start.In(s.loc)
	}
	if !q.End.IsZero() {
		q.End = q.End.In(s.loc)
	}
	return s.store.QueryDays(ctx, q)
}

// Latest returns the newest raw reading of kind.
func (s *QueryService) Latest(ctx context.Context, kind schema.SensorKind) (schema.RawReading, error) {
	if _, ok := schema.ValidSensorKinds[kind]; !ok {
		return schema.RawReading{}, fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, kind)
	}
	r, ok, err := s.store.LatestReading(ctx, kind)
	if err != nil {
		return schema.RawReading{}, err
	}
	if !ok {
		return schema.RawReading{}, fmt.Errorf("%w for %s", ErrNoData, kind)
	}
	return r, nil
}

// Stats summarizes the raw readings of kind in [start, end). Zero bounds are open.
func (s *QueryService) Stats(ctx context.Context, kind schema.SensorKind, start, end time.Time) (schema.ReadingStats, error) {
	if _, ok := schema.ValidSensorKinds[kind]; !ok {
		return schema.ReadingStats{}, fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, kind)
	}
	return s.store.ReadingStats(ctx, kind, start, end)
}

// Variations lists minutes whose range or std-dev exceeds the floors. An unset floor falls
// back to the kind's minute alert limit.
func (s *QueryService) Variations(ctx context.Context, q schema.VariationQuery) ([]schema.MinuteAggregate, error) {
	lq, err := NormalizeListQuery(q.ListQuery)
	if err != nil {
		return nil, err
	}
	q.ListQuery = lq
	if (q.MinRange != nil && *q.MinRange < 0) || (q.MinStdDev != nil && *q.MinStdDev < 0) {
		return nil, fmt.Errorf("variation floors cannot be negative")
	}
	limit, _ := s.thresholds.Lookup(schema.MinuteResolution, q.Kind)
	if q.MinRange == nil {
		q.MinRange = &limit.MaxRange
	}
	if q.MinStdDev == nil {
		q.MinStdDev = &limit.MaxStdDev
	}
	return s.store.MinuteVariations(ctx, q)
}

// Status reports row counts per table and the newest reading per kind.
func (s *QueryService) Status(ctx context.Context) (schema.StoreStatus, error) {
	return s.store.GetStatus(ctx)
}

// Compare pairs the minute aggregate containing at with the raw readings of that minute.
func (s *QueryService) Compare(ctx context.Context, kind schema.SensorKind, at time.Time) (schema.MinuteComparison, error) {
	if _, ok := schema.ValidSensorKinds[kind]; !ok {
		return schema.MinuteComparison{}, fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, kind)
	}
	b := agg.BucketFor(kind, schema.MinuteResolution, at, time.UTC)
	end := agg.End(b)

	minutes, err := s.store.QueryMinutes(ctx, schema.ListQuery{Kind: kind, Start: b.Start, End: end, Limit: 1})
	if err != nil {
		return schema.MinuteComparison{}, err
	}
	readings, err := s.store.ListReadings(ctx, kind, b.Start, end)
	if err != nil {
		return schema.MinuteComparison{}, err
	}
	if len(minutes) == 0 && len(readings) == 0 {
		return schema.MinuteComparison{}, fmt.Errorf("%w for %s at %s", ErrNoData, kind, b.Start.Format(time.RFC3339))
	}

	cmp := schema.MinuteComparison{Kind: kind, Minute: b.Start, Readings: readings}
	if len(minutes) > 0 {
		cmp.Aggregate = &minutes[0]
	}
	if len(readings) > 0 {
		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = r.Value
		}
		sum := agg.Summarize(values)
		cmp.Computed = &schema.MinuteAggregate{
			Kind:         kind,
			BucketStart:  b.Start,
			Avg:          agg.Round(sum.Mean, agg.ValuePlaces),
			Min:          agg.Round(sum.Min, agg.ValuePlaces),
			Max:          agg.Round(sum.Max, agg.ValuePlaces),
			StdDev:       agg.Round(sum.StdDev, agg.StdDevPlaces),
			Range:        agg.Round(sum.Range, agg.ValuePlaces),
			ReadingCount: sum.Count,
		}
	}
	return cmp, nil
}
