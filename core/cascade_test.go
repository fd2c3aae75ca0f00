package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/sensorium/internal/events"
	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func (f *fakeScheduler) TrySubmit(t Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeScheduler) submitted() []Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Task(nil), f.tasks...)
}

func TestCascade_DaySchedulesAtTwentiethHourOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	p := NewPipeline(store)
	sched := &fakeScheduler{}
	c := NewCascade(p, sched)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	hours := hourRows(schema.Humidity, day, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21)
	for i, h := range hours {
		_, err := store.InsertHour(ctx, h)
		require.NoError(t, err)
		c.Handle(ctx, schema.BucketCompleted{Bucket: hourBucket(schema.Humidity, h.BucketStart)})

		switch {
		case i < 19:
			assert.Empty(t, sched.submitted(), "hour %d", i+1)
		case i == 19:
			tasks := sched.submitted()
			require.Len(t, tasks, 1)
			assert.Equal(t, dayBucket(schema.Humidity, day), tasks[0].Bucket)

			o, err := p.Process(ctx, tasks[0].Bucket)
			require.NoError(t, err)
			require.Equal(t, schema.ProcessedStatus, o.Status)
			assert.Equal(t, 20, o.Day.HourCount)
		default:
			assert.Len(t, sched.submitted(), 1, "a processed day is terminal")
		}
	}
}

func TestCascade_HourNeedsFiftyMinutes(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	p := NewPipeline(store)
	sched := &fakeScheduler{}
	c := NewCascade(p, sched)

	for i, m := range minuteRows(schema.Noise, morning, 50) {
		_, err := store.InsertMinute(ctx, m)
		require.NoError(t, err)
		c.Handle(ctx, schema.BucketCompleted{Bucket: minuteBucket(schema.Noise, m.BucketStart)})
		if i < 49 {
			assert.Empty(t, sched.submitted())
		}
	}
	tasks := sched.submitted()
	require.Len(t, tasks, 1)
	assert.Equal(t, hourBucket(schema.Noise, morning), tasks[0].Bucket)
}

func TestCascade_IgnoresDaysAndSchedulingFailures(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	p := NewPipeline(store)
	sched := &fakeScheduler{err: schema.ErrQueueFull}
	c := NewCascade(p, sched)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c.Handle(ctx, schema.BucketCompleted{Bucket: dayBucket(schema.TVOC, day)})

	for _, m := range minuteRows(schema.TVOC, morning, 55) {
		_, err := store.InsertMinute(ctx, m)
		require.NoError(t, err)
	}
	assert.NotPanics(t, func() {
		c.Handle(ctx, schema.BucketCompleted{Bucket: minuteBucket(schema.TVOC, morning)})
	})
	assert.Empty(t, sched.submitted())
}

func TestCascade_ThroughBusAndPool(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	bus := events.NewBus(nil)
	p := NewPipeline(store, WithPublisher(bus))
	cfg := testPoolConfig(2)
	cfg.QueueSize = 128
	pool := NewPool(p, cfg)
	bus.Subscribe(NewCascade(p, pool).Handle)
	pool.Start(ctx)

	// Fifty-two complete minutes of temperature between 09:00 and 09:51.
	for i := range 52 {
		minute := morning.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.InsertReadings(ctx, readingsEvery(schema.Temperature, minute, 12, 21.0+float64(i%3))))
	}
	for i := range 52 {
		require.NoError(t, pool.Submit(ctx, Task{Bucket: minuteBucket(schema.Temperature, morning.Add(time.Duration(i)*time.Minute))}))
	}
	pool.Drain()

	hours, err := store.ListHours(ctx, schema.Temperature, morning, morning.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 1, "the hour is written once it becomes eligible")
	assert.GreaterOrEqual(t, hours[0].MinuteCount, 50)
	assert.LessOrEqual(t, hours[0].MinuteCount, 52)
}

func TestCascade_EligibleErrors(t *testing.T) {
	store := newMemoryStore(t)
	c := NewCascade(NewPipeline(store), &fakeScheduler{})
	_, err := c.Eligible(context.Background(), minuteBucket(schema.Noise, morning))
	assert.Error(t, err)
	_, err = c.Eligible(context.Background(), hourBucket(schema.SensorKind("radon"), morning))
	assert.True(t, errors.Is(err, schema.ErrUnknownSensorKind))
}
