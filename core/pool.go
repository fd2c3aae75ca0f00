package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// Task asks the pool to aggregate one bucket.
type Task struct {
	Bucket schema.Bucket
	Batch  string               // originating spool name, empty for sweeps and cascades
	Done   func(schema.Outcome) // optional; called once the bucket reaches an outcome
}

// PoolConfig tunes the worker pool.
type PoolConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Timeouts    map[schema.Resolution]time.Duration
	NewBackOff  func() backoff.BackOff // nil means exponential from 500ms up to 10s
}

// PoolConfigFromConfig derives the pool settings from the validated configuration.
func PoolConfigFromConfig(cfg *contract.Config) PoolConfig {
	return PoolConfig{
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		MaxAttempts: cfg.MaxAttempts,
		Timeouts: map[schema.Resolution]time.Duration{
			schema.MinuteResolution: cfg.MinuteTimeout,
			schema.HourResolution:   cfg.HourTimeout,
			schema.DayResolution:    cfg.DayTimeout,
		},
	}
}

type job struct {
	bucket   schema.Bucket
	batch    string
	owner    func(schema.Outcome)
	attached []func(schema.Outcome)
}

// Pool runs aggregation tasks on a fixed number of workers.
//
// A bucket that is already waiting in the queue is not queued twice; the second
// submitter is notified with the same outcome. Once a worker picks a bucket up it may be
// queued again, since newer inputs may have arrived after its reads.
type Pool struct {
	pipeline *Pipeline
	cfg      PoolConfig
	log      *slog.Logger
	queue    chan *job
	stop     chan struct{}
	stopOnce sync.Once
	workers  sync.WaitGroup

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	queued  map[string]*job
	closed  bool
}

// NewPool creates a pool. Call Start before submitting blocking work.
func NewPool(pipeline *Pipeline, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = contract.DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * contract.DefaultQueuePerWorker
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = contract.DefaultMaxAttempts
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = map[schema.Resolution]time.Duration{}
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(10*time.Second),
				backoff.WithMaxElapsedTime(0),
			)
		}
	}
	p := &Pool{
		pipeline: pipeline,
		cfg:      cfg,
		log:      pipeline.log.With(slog.String("component", "pool")),
		queue:    make(chan *job, cfg.QueueSize),
		stop:     make(chan struct{}),
		queued:   make(map[string]*job),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. ctx bounds every task they run.
func (p *Pool) Start(ctx context.Context) {
	for range p.cfg.Workers {
		p.workers.Add(1)
		go p.worker(ctx)
	}
}

// Submit queues t, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	return p.enqueue(ctx, t, true)
}

// TrySubmit queues t without blocking. It returns schema.ErrQueueFull when there is no room.
func (p *Pool) TrySubmit(t Task) error {
	return p.enqueue(context.Background(), t, false)
}

// Depth is the number of tasks waiting for a worker.
func (p *Pool) Depth() int {
	return len(p.queue)
}

// Drain waits until every accepted task, including those submitted while draining,
// has finished. Then it stops the workers and rejects further submissions.
func (p *Pool) Drain() {
	p.mu.Lock()
	for p.pending > 0 {
		p.idle.Wait()
	}
	p.closed = true
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })
	p.workers.Wait()
}

func (p *Pool) enqueue(ctx context.Context, t Task, block bool) error {
	if _, ok := schema.ValidSensorKinds[t.Bucket.Kind]; !ok {
		return fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, t.Bucket.Kind)
	}

	key := t.Bucket.Key()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return schema.ErrPoolClosed
	}
	if j, ok := p.queued[key]; ok {
		if t.Done != nil {
			j.attached = append(j.attached, t.Done)
		}
		p.mu.Unlock()
		return nil
	}
	j := &job{bucket: t.Bucket, batch: t.Batch, owner: t.Done}
	p.queued[key] = j
	p.pending++
	p.mu.Unlock()

	if block {
		select {
		case p.queue <- j:
			return nil
		case <-ctx.Done():
			p.abandon(j, ctx.Err())
			return ctx.Err()
		case <-p.stop:
			p.abandon(j, schema.ErrPoolClosed)
			return schema.ErrPoolClosed
		}
	}
	select {
	case p.queue <- j:
		return nil
	default:
		p.abandon(j, schema.ErrQueueFull)
		return schema.ErrQueueFull
	}
}

// abandon forgets a job that never reached the queue. The submitter gets the error;
// anyone who attached to the job in the meantime gets a failed outcome.
func (p *Pool) abandon(j *job, err error) {
	p.mu.Lock()
	delete(p.queued, j.bucket.Key())
	attached := j.attached
	p.mu.Unlock()

	for _, done := range attached {
		done(schema.Failed(j.bucket, err, 0))
	}
	p.finish()
}

func (p *Pool) finish() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.workers.Done()
	for {
		select {
		case <-p.stop:
			return
		case j := <-p.queue:
			p.mu.Lock()
			delete(p.queued, j.bucket.Key())
			callbacks := append([]func(schema.Outcome){j.owner}, j.attached...)
			p.mu.Unlock()

			o := p.run(ctx, j)
			for _, done := range callbacks {
				if done != nil {
					done(o)
				}
			}
			p.finish()
		}
	}
}

// run processes one bucket with retries. Each attempt gets its own timeout.
func (p *Pool) run(ctx context.Context, j *job) schema.Outcome {
	started := time.Now()
	attrs := p.pipeline.bucketAttrs(j.bucket)
	if j.batch != "" {
		attrs = append(attrs, slog.String("batch", j.batch))
	}

	attempts := 0
	operation := func() (o schema.Outcome, err error) {
		attempts++
		attemptCtx := ctx
		if timeout := p.cfg.Timeouts[j.bucket.Resolution]; timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while processing %s: %v", j.bucket.Key(), r)
			}
		}()

		o, err = p.pipeline.Process(attemptCtx, j.bucket)
		if errors.Is(err, schema.ErrUnknownSensorKind) {
			return o, backoff.Permanent(err)
		}
		return o, err
	}
	notify := func(err error, wait time.Duration) {
		p.log.Warn("aggregation attempt failed", append(attrs,
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", p.cfg.MaxAttempts),
			slog.Duration("retry_in", wait),
			slog.Any("error", err))...)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.cfg.NewBackOff(), uint64(p.cfg.MaxAttempts-1)), ctx)
	o, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		o = schema.Failed(j.bucket, err, attempts)
		p.log.Error("aggregation failed permanently", append(attrs,
			slog.Int("attempts", attempts),
			slog.Any("error", err))...)
	}
	p.pipeline.recorder.ObserveOutcome(o, time.Since(started))
	return o
}
