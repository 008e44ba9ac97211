// Package metrics exposes the handful of Prometheus series an operator
// needs to watch the dispatcher pool (spec §5 Design Notes).
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can construct one without
// colliding with prometheus's global default registry.
type Collector struct {
	registry *prometheus.Registry

	jobsClaimed    prometheus.Counter
	jobsCompleted  *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	dispatcherPool prometheus.Gauge
	runningJobs    prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asdb_jobs_claimed_total",
			Help: "Total number of jobs claimed from the queue.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asdb_jobs_completed_total",
			Help: "Total number of jobs that reached a terminal status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "asdb_job_duration_seconds",
			Help:    "Wall-clock time spent running a single job's handler.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s .. 8192s (~2.3h), covers the 1h timeout
		}),
		dispatcherPool: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asdb_dispatcher_pool_size",
			Help: "Target dispatcher pool size (max_jobs) the supervisor reconciles against.",
		}),
		runningJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asdb_running_jobs",
			Help: "Current number of running dispatcher goroutines.",
		}),
	}

	c.registry.MustRegister(c.jobsClaimed, c.jobsCompleted, c.jobDuration, c.dispatcherPool, c.runningJobs)
	return c
}

func (c *Collector) RecordClaim() {
	c.jobsClaimed.Inc()
}

func (c *Collector) RecordCompletion(status string, durationSeconds float64) {
	c.jobsCompleted.WithLabelValues(status).Inc()
	c.jobDuration.Observe(durationSeconds)
}

func (c *Collector) SetDispatcherPoolSize(n int) {
	c.dispatcherPool.Set(float64(n))
}

func (c *Collector) SetRunningJobs(n int) {
	c.runningJobs.Set(float64(n))
}

// Serve starts the /metrics HTTP endpoint and blocks until ctx is
// cancelled or the server errors.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}
