package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maritime_alarm"

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultSkipped  = "skipped"
	ResultInvalid  = "invalid"
	ResultCapacity = "capacity"
	ResultRejected = "rejected"
	ResultKept     = "kept"
	ResultFiltered = "filtered"
	ResultDropped  = "dropped"
)

//nolint:gochecknoglobals // Collectors live on the default registry.
var (
	// Engine metrics.
	AlarmsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_fired_total",
			Help:      "Total number of alarms fired by reason",
		},
		[]string{"reason"},
	)

	AlarmDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_deliveries_total",
			Help:      "Alarm deliveries per sink and result",
		},
		[]string{"sink", "result"}, // sink: "store", "feed", "forward"
	)

	SnapshotPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_polls_total",
			Help:      "Snapshot polls by result",
		},
		[]string{"result"},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_poll_duration_seconds",
			Help:      "Duration of snapshot fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	TrackedVessels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_vessels",
			Help:      "Number of vessels in the engine state",
		},
	)

	// Store metrics.
	SnapshotUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_upserts_total",
			Help:      "Snapshot store upserts by result",
		},
		[]string{"result"},
	)

	// Transport metrics.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket alarm feed connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_sent_total",
			Help:      "Messages queued to websocket clients",
		},
	)

	// Ingest metrics.
	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "AIS stream messages by result",
		},
		[]string{"result"},
	)

	IngestReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_reconnects_total",
			Help:      "Times the AIS stream was reopened",
		},
	)

	// Circuit breaker metrics.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Requests through circuit breakers by result",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordPoll records the outcome and duration of a snapshot fetch.
func RecordPoll(duration time.Duration, err error) {
	PollDuration.Observe(duration.Seconds())

	if err != nil {
		SnapshotPolls.WithLabelValues(ResultFailure).Inc()

		return
	}

	SnapshotPolls.WithLabelValues(ResultSuccess).Inc()
}

// RecordDelivery records one alarm hand-off to a sink.
func RecordDelivery(sink string, err error) {
	if err != nil {
		AlarmDeliveries.WithLabelValues(sink, ResultFailure).Inc()

		return
	}

	AlarmDeliveries.WithLabelValues(sink, ResultSuccess).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
