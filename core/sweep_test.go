package core

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweepFixture(t *testing.T, now time.Time, window SweepWindow) (*Sweeper, *Pool, *Pipeline) {
	t.Helper()
	store := newMemoryStore(t)
	p := NewPipeline(store, WithClock(func() time.Time { return now }))
	pool := NewPool(p, testPoolConfig(2))
	pool.Start(context.Background())
	t.Cleanup(pool.Drain)
	return NewSweeper(p, pool, window), pool, p
}

func TestSweepHours(t *testing.T) {
	ctx := context.Background()
	now := morning.Add(2*time.Hour + 30*time.Minute) // 11:30
	sweeper, _, p := newSweepFixture(t, now, SweepWindow{HourLookback: 3 * time.Hour})

	for _, m := range minuteRows(schema.Temperature, morning, 50) {
		_, err := p.store.InsertMinute(ctx, m)
		require.NoError(t, err)
	}
	// The current hour is never swept even when it is already eligible.
	for _, m := range minuteRows(schema.Temperature, morning.Add(2*time.Hour), 20) {
		_, err := p.store.InsertMinute(ctx, m)
		require.NoError(t, err)
	}

	report, err := sweeper.SweepHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.HourResolution, report.Resolution)
	assert.Equal(t, 18, report.Scanned, "08:00, 09:00 and 10:00 for six kinds")
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 17, report.Skipped)
	assert.Zero(t, report.Failed)

	again, err := sweeper.SweepHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Processed)
	assert.Equal(t, 1, again.Duplicate)

	hours, err := p.store.ListHours(ctx, schema.Temperature, morning, now)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, 50, hours[0].MinuteCount)
}

func TestSweepDays_SinceOverridesLookback(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 6, 0, 0, 0, time.UTC)
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper, _, p := newSweepFixture(t, now, SweepWindow{DayLookback: 24 * time.Hour, Since: since})

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for _, h := range hourRows(schema.Noise, day, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22) {
		_, err := p.store.InsertHour(ctx, h)
		require.NoError(t, err)
	}

	report, err := sweeper.SweepDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24, report.Scanned, "March 1 to March 4 for six kinds")
	assert.Equal(t, 1, report.Processed)

	days, err := p.store.QueryDays(ctx, schema.ListQuery{Kind: schema.Noise})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, 21, days[0].HourCount)
}

func TestRecover_HoursThenDays(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC)
	sweeper, _, p := newSweepFixture(t, now, SweepWindow{HourLookback: 26 * time.Hour, DayLookback: 48 * time.Hour})

	// Twenty complete hours of minutes on March 2; no hour rows exist yet.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for h := range 20 {
		for _, m := range minuteRows(schema.Humidity, day.Add(time.Duration(h)*time.Hour), 50) {
			_, err := p.store.InsertMinute(ctx, m)
			require.NoError(t, err)
		}
	}

	reports, err := sweeper.Recover(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 20, reports[0].Processed)
	assert.Equal(t, schema.DayResolution, reports[1].Resolution)
	assert.Equal(t, 1, reports[1].Processed)
}

func TestSweep_CanceledContext(t *testing.T) {
	sweeper, _, _ := newSweepFixture(t, morning, SweepWindow{HourLookback: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sweeper.SweepHours(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
