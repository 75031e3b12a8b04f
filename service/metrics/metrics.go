package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the indexer. Following the
// explicit dependency injection pattern, this struct is passed to every
// component that needs to record metrics; components must tolerate a nil
// *Metrics so tests can skip registration.
type Metrics struct {
	// Ledger RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec
	rpcRetries      *prometheus.CounterVec

	// Decode metrics
	decodedTotal     *prometheus.CounterVec
	decodeFailsTotal *prometheus.CounterVec

	// State table metrics
	stateUpdatesTotal *prometheus.CounterVec
	stateTableSize    prometheus.Gauge

	// Storage metrics
	backendWritesTotal   *prometheus.CounterVec
	backendWriteDuration *prometheus.HistogramVec
	cacheLookupsTotal    *prometheus.CounterVec

	// Ingestion metrics
	unitsIngestedTotal *prometheus.CounterVec
	unitsDroppedTotal  *prometheus.CounterVec
	pluginQueueDepth   prometheus.Gauge

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rpc_calls_total",
				Help: "Total number of ledger RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_rpc_call_duration_seconds",
				Help:    "Duration of ledger RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rpc_retries_total",
				Help: "Total number of ledger RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		decodedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "records_decoded_total",
				Help: "Total number of records decoded by unit and variant",
			},
			[]string{"unit", "kind"},
		),
		decodeFailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "record_decode_failures_total",
				Help: "Total number of per-record decode failures",
			},
			[]string{"unit"},
		),

		stateUpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "state_updates_total",
				Help: "State table updates by outcome (applied or stale-rejected)",
			},
			[]string{"outcome"},
		),
		stateTableSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "state_table_accounts",
				Help: "Number of accounts currently tracked in the state table",
			},
		),

		backendWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_backend_writes_total",
				Help: "Total number of backend writes by backend, op, and status",
			},
			[]string{"backend", "op", "status"},
		),
		backendWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_backend_write_duration_seconds",
				Help:    "Duration of backend writes in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"backend", "op"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_cache_lookups_total",
				Help: "Cache-aside lookups by record kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		unitsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_units_total",
				Help: "Units of work delivered to the pipeline by adapter and type",
			},
			[]string{"adapter", "unit"},
		),
		unitsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_units_dropped_total",
				Help: "Units rejected because an adapter queue was full",
			},
			[]string{"adapter", "unit"},
		),
		pluginQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ingest_plugin_queue_depth",
				Help: "Current depth of the push-callback adapter queue",
			},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
	}
}

// RecordRPCCall records a ledger RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.rpcCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.rpcRetries.WithLabelValues(method, reason).Inc()
}

// RecordDecoded records a successfully decoded record.
func (m *Metrics) RecordDecoded(unit, kind string) {
	m.decodedTotal.WithLabelValues(unit, kind).Inc()
}

// RecordDecodeFailure records a per-record decode failure.
func (m *Metrics) RecordDecodeFailure(unit string) {
	m.decodeFailsTotal.WithLabelValues(unit).Inc()
}

// RecordStateUpdate records a state table update outcome.
func (m *Metrics) RecordStateUpdate(applied bool) {
	outcome := "applied"
	if !applied {
		outcome = "stale_rejected"
	}
	m.stateUpdatesTotal.WithLabelValues(outcome).Inc()
}

// SetStateTableSize records the current state table size.
func (m *Metrics) SetStateTableSize(n int) {
	m.stateTableSize.Set(float64(n))
}

// RecordBackendWrite records one backend write attempt.
func (m *Metrics) RecordBackendWrite(backend, op string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.backendWritesTotal.WithLabelValues(backend, op, status).Inc()
	m.backendWriteDuration.WithLabelValues(backend, op).Observe(duration)
}

// RecordCacheLookup records a cache-aside lookup outcome.
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordUnitIngested records a unit of work delivered to the pipeline.
func (m *Metrics) RecordUnitIngested(adapter, unit string) {
	m.unitsIngestedTotal.WithLabelValues(adapter, unit).Inc()
}

// RecordUnitDropped records a unit rejected at a full adapter queue.
func (m *Metrics) RecordUnitDropped(adapter, unit string) {
	m.unitsDroppedTotal.WithLabelValues(adapter, unit).Inc()
}

// SetPluginQueueDepth records the push-callback queue depth.
func (m *Metrics) SetPluginQueueDepth(n int) {
	m.pluginQueueDepth.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
