package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// Metrics owns a private prometheus registry. Every method is safe on a nil
// receiver so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	engineOps       *prometheus.CounterVec
	engineLatency   *prometheus.HistogramVec
	engineConflicts *prometheus.CounterVec
	engineRetries   *prometheus.CounterVec

	createdConcepts      *prometheus.CounterVec
	createdRelationships *prometheus.CounterVec
	lockWait             *prometheus.HistogramVec

	historyDBStats *prometheus.GaugeVec
	redisUp        prometheus.Gauge
	redisPing      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conceptdb_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conceptdb_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		engineOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_engine_operations_total",
			Help: "Engine transactions by operation and status.",
		}, []string{"op", "status"}),
		engineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conceptdb_engine_operation_duration_seconds",
			Help:    "Engine transaction latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"op", "status"}),
		engineConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_engine_conflicts_total",
			Help: "Engine transactions that failed with a conflict.",
		}, []string{"op"}),
		engineRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_engine_retryable_errors_total",
			Help: "Engine transactions that failed with a retryable error.",
		}, []string{"op"}),
		createdConcepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_created_concepts_total",
			Help: "Concepts created by insertion batches.",
		}, []string{"facet"}),
		createdRelationships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptdb_created_relationships_total",
			Help: "Relationships created by insertion batches.",
		}, []string{"facet"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conceptdb_lock_wait_seconds",
			Help:    "Time spent waiting for batch locks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		historyDBStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conceptdb_history_db_stats",
			Help: "Import history database pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conceptdb_redis_up",
			Help: "Whether the lock redis answered the last ping.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conceptdb_redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.engineOps, m.engineLatency, m.engineConflicts, m.engineRetries,
		m.createdConcepts, m.createdRelationships, m.lockWait,
		m.historyDBStats, m.redisUp, m.redisPing,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on a dedicated address until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveEngineOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "success"
	}
	m.engineOps.WithLabelValues(op, status).Inc()
	m.engineLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncEngineConflict(op string) {
	if m == nil {
		return
	}
	m.engineConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncEngineRetry(op string) {
	if m == nil {
		return
	}
	m.engineRetries.WithLabelValues(op).Inc()
}

// AddCreated records the output of one insertion batch.
func (m *Metrics) AddCreated(facet string, concepts, relationships int) {
	if m == nil {
		return
	}
	if facet == "" {
		facet = "none"
	}
	m.createdConcepts.WithLabelValues(facet).Add(float64(concepts))
	m.createdRelationships.WithLabelValues(facet).Add(float64(relationships))
}

func (m *Metrics) ObserveLockWait(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(op, status).Observe(dur.Seconds())
}

// StartHistoryDBCollector samples the gorm connection pool every interval.
func (m *Metrics) StartHistoryDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: history db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.historyDBStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.historyDBStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.historyDBStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.historyDBStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.historyDBStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
			}
		}
	}()
}

// StartRedisCollector pings the lock redis every interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err := rdb.Ping(pctx).Err()
				cancel()
				if err != nil {
					m.redisUp.Set(0)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
