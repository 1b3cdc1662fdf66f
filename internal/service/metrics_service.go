package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/summercamp-api/internal/models"
)

// Settlement outcome labels.
const (
	SettlementOutcomeCompleted  = "completed"
	SettlementOutcomePartial    = "partial"
	SettlementOutcomeRolledBack = "rolled_back"
	SettlementOutcomeRejected   = "rejected"
)

// MetricsService exports camp traffic to Prometheus and keeps running totals for the admin
// summary. A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration  *prometheus.HistogramVec
	catalogCache  *prometheus.HistogramVec
	catalogLookup *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	settlements   *prometheus.CounterVec
	seatConflicts prometheus.Counter

	totals struct {
		requests     atomic.Uint64
		requestNanos atomic.Uint64
		queries      atomic.Uint64
		queryNanos   atomic.Uint64
		cacheHits    atomic.Uint64
		cacheMisses  atomic.Uint64
		settled      atomic.Uint64
		unsettled    atomic.Uint64
		sold         atomic.Uint64
	}
}

// NewMetricsService builds a private registry with the camp collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		catalogCache: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "class_catalog_cache_seconds",
			Help:    "Latency of class catalog cache reads and writes",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
		catalogLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "class_catalog_cache_lookups_total",
			Help: "Class catalog cache lookups by result",
		}, []string{"result"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of store operations by label",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Enrollment settlements by outcome",
		}, []string{"outcome"}),
		seatConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seat_conflicts_total",
			Help: "Seat claims rejected because the class was sold out",
		}),
	}
	m.registry.MustRegister(m.httpDuration, m.catalogCache, m.catalogLookup, m.storeDuration, m.settlements, m.seatConflicts)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
	m.totals.requests.Add(1)
	m.totals.requestNanos.Add(uint64(duration))
}

// RecordCacheOperation records a catalog cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogCache.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.catalogLookup.WithLabelValues("hit").Inc()
		m.totals.cacheHits.Add(1)
		return
	}
	m.catalogLookup.WithLabelValues("miss").Inc()
	m.totals.cacheMisses.Add(1)
}

// ObserveCacheWrite records a catalog cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogCache.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveDBQuery records the duration of a labelled store operation.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.totals.queries.Add(1)
	m.totals.queryNanos.Add(uint64(duration))
}

// RecordSettlement counts a settlement by outcome.
func (m *MetricsService) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
	if outcome == SettlementOutcomeCompleted {
		m.totals.settled.Add(1)
	} else {
		m.totals.unsettled.Add(1)
	}
}

// RecordSeatConflict counts a sold-out seat claim.
func (m *MetricsService) RecordSeatConflict() {
	if m == nil {
		return
	}
	m.seatConflicts.Inc()
	m.totals.sold.Add(1)
}

// Snapshot summarises the running totals for GET /admin/metrics.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	hits, misses := m.totals.cacheHits.Load(), m.totals.cacheMisses.Load()
	requests, queries := m.totals.requests.Load(), m.totals.queries.Load()
	return models.SystemMetrics{
		CacheHitRatio:            ratio(float64(hits), float64(hits+misses)),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: ratio(float64(m.totals.requestNanos.Load()), float64(requests)) / float64(time.Millisecond),
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: ratio(float64(m.totals.queryNanos.Load()), float64(queries)) / float64(time.Millisecond),
		SettlementsCompleted:     m.totals.settled.Load(),
		SettlementsFailed:        m.totals.unsettled.Load(),
		SeatConflicts:            m.totals.sold.Load(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func ratio(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole
}
