// Package metrics provides Prometheus metrics for the clickarena service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Click ingestion
	clicksRecorded prometheus.Counter
	clicksCoerced  prometheus.Counter

	// Queue (async durable path)
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Flush workers
	flushAppends prometheus.Counter
	flushRetries prometheus.Counter
	flushDropped prometheus.Counter
	flushLatency prometheus.Histogram
	workerActive prometheus.Gauge

	// Snapshot cache
	snapshotHits            prometheus.Counter
	snapshotMisses          prometheus.Counter
	snapshotRefreshes       prometheus.Counter
	snapshotRefreshDuration prometheus.Histogram

	// Broadcast hub
	broadcastDeliveries prometheus.Counter
	broadcastDropped    prometheus.Counter
	subscriberCount     prometheus.Gauge

	// Long polling
	pollRequests prometheus.Counter
	pollWakeups  prometheus.Counter
	pollTimeouts prometheus.Counter

	// Battles
	activeBattles prometheus.Gauge

	// Loot redemption
	redemptions        *prometheus.CounterVec
	redemptionFailures *prometheus.CounterVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager on a custom registry so default Go collectors stay out.
var globalManager *Manager                     //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry()  //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clickarena",
		subsystem:        "battle",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one registration per collector
	auto := promauto.With(m.registry)

	m.clicksRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clicks_recorded_total",
		Help: "Click events accepted into the aggregator",
	})
	m.clicksCoerced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clicks_coerced_total",
		Help: "Click events whose delta was coerced to 1",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Events currently waiting for durable append",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured capacity of the flush queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_utilization",
		Help: "Flush queue fill ratio (0-1)",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueues_total",
		Help: "Events enqueued for durable append",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_dequeues_total",
		Help: "Events handed to flush workers",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Enqueue attempts rejected (full or closed queue)",
	})

	m.flushAppends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flush_appends_total",
		Help: "Click events durably appended to the event store",
	})
	m.flushRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flush_retries_total",
		Help: "Durable append retries after transient failures",
	})
	m.flushDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flush_dropped_total",
		Help: "Click events dropped after exhausting append retries",
	})
	m.flushLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "flush_latency_milliseconds",
		Help:    "Durable append latency",
		Buckets: m.histogramBuckets,
	})
	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flush_workers",
		Help: "Number of running flush workers",
	})

	m.snapshotHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshot_cache_hits_total",
		Help: "GetSnapshot calls served from the cache",
	})
	m.snapshotMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshot_cache_misses_total",
		Help: "GetSnapshot calls requiring a recompute",
	})
	m.snapshotRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "snapshot_refreshes_total",
		Help: "Snapshot recomputations from the event store",
	})
	m.snapshotRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "snapshot_refresh_milliseconds",
		Help:    "Snapshot recompute duration",
		Buckets: m.histogramBuckets,
	})

	m.broadcastDeliveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "broadcast_deliveries_total",
		Help: "Deltas delivered to subscriber channels",
	})
	m.broadcastDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "broadcast_dropped_total",
		Help: "Deltas dropped due to slow subscribers",
	})
	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "subscribers",
		Help: "Currently registered battle subscribers",
	})

	m.pollRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "poll_requests_total",
		Help: "Long-poll requests received",
	})
	m.pollWakeups = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "poll_wakeups_total",
		Help: "Long-poll requests answered with a change",
	})
	m.pollTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "poll_timeouts_total",
		Help: "Long-poll requests that timed out unchanged",
	})

	m.activeBattles = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "active_battles",
		Help: "Battles currently in the active state",
	})

	m.redemptions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "loot",
		Name: "redemptions_total",
		Help: "Container redemptions by resolved outcome kind",
	}, []string{"kind"})
	m.redemptionFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "loot",
		Name: "redemption_failures_total",
		Help: "Container redemptions rejected before a draw",
	}, []string{"reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_milliseconds",
		Help:    "HTTP request duration",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Click ingestion.

func RecordClick()        { globalManager.clicksRecorded.Inc() }
func RecordClickCoerced() { globalManager.clicksCoerced.Inc() }

// Queue.

func UpdateQueueSize(size int)             { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)     { globalManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }
func RecordQueueEnqueue()                  { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()                  { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()             { globalManager.queueEnqueueErrors.Inc() }

// Flush workers.

func RecordFlushAppend()                    { globalManager.flushAppends.Inc() }
func RecordFlushRetry()                     { globalManager.flushRetries.Inc() }
func RecordFlushDropped()                   { globalManager.flushDropped.Inc() }
func RecordFlushLatency(latencyMs float64)  { globalManager.flushLatency.Observe(latencyMs) }
func UpdateFlushWorkerCount(count int)      { globalManager.workerActive.Set(float64(count)) }

// Snapshot cache.

func RecordSnapshotHit()                      { globalManager.snapshotHits.Inc() }
func RecordSnapshotMiss()                     { globalManager.snapshotMisses.Inc() }
func RecordSnapshotRefresh()                  { globalManager.snapshotRefreshes.Inc() }
func RecordSnapshotRefreshDuration(ms float64) { globalManager.snapshotRefreshDuration.Observe(ms) }

// Broadcast hub.

func RecordBroadcastDelivery()        { globalManager.broadcastDeliveries.Inc() }
func RecordBroadcastDropped()         { globalManager.broadcastDropped.Inc() }
func UpdateSubscriberCount(count int) { globalManager.subscriberCount.Set(float64(count)) }

// Long polling.

func RecordPollRequest() { globalManager.pollRequests.Inc() }
func RecordPollWakeup()  { globalManager.pollWakeups.Inc() }
func RecordPollTimeout() { globalManager.pollTimeouts.Inc() }

// Battles.

func UpdateActiveBattles(count int) { globalManager.activeBattles.Set(float64(count)) }

// Loot redemption.

func RecordRedemption(kind string) { globalManager.redemptions.WithLabelValues(kind).Inc() }
func RecordRedemptionFailure(reason string) {
	globalManager.redemptionFailures.WithLabelValues(reason).Inc()
}

// HTTP surface.

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// GetRegistry exposes the custom registry for the metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
