// Package metrics exposes pipeline and HTTP counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sensorium"

// Collector records pipeline outcomes on its own registry.
type Collector struct {
	registry *prometheus.Registry

	outcomes     *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	readings     prometheus.Counter
	batches      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ contract.Recorder = &Collector{} // Compile-time check

// New creates a Collector with Go runtime collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bucket_outcomes_total",
			Help:      "Aggregation outcomes by resolution, kind and status.",
		}, []string{"resolution", "kind", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent processing one bucket, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resolution"}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Raw readings stored across all kinds.",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Ingested batches by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		c.outcomes,
		c.taskDuration,
		c.readings,
		c.batches,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveOutcome counts one bucket outcome.
func (c *Collector) ObserveOutcome(o schema.Outcome, elapsed time.Duration) {
	if c == nil {
		return
	}
	res := string(o.Bucket.Resolution)
	c.outcomes.WithLabelValues(res, string(o.Bucket.Kind), string(o.Status)).Inc()
	c.taskDuration.WithLabelValues(res).Observe(elapsed.Seconds())
}

// ObserveIngest counts one ingested batch.
func (c *Collector) ObserveIngest(readings int, failed bool) {
	if c == nil {
		return
	}
	result := "ok"
	if failed {
		result = "failed"
	}
	c.batches.WithLabelValues(result).Inc()
	c.readings.Add(float64(readings))
}

// TrackQueueDepth exposes depth as a gauge sampled on scrape.
func (c *Collector) TrackQueueDepth(depth func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Tasks waiting in the worker queue.",
	}, func() float64 { return float64(depth()) }))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request counts and durations for route.
func (c *Collector) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if c != nil {
			c.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			c.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Noop discards every observation.
type Noop struct{}

var _ contract.Recorder = Noop{} // Compile-time check

// ObserveOutcome implements contract.Recorder.
func (Noop) ObserveOutcome(schema.Outcome, time.Duration) {}

// ObserveIngest implements contract.Recorder.
func (Noop) ObserveIngest(int, bool) {}
