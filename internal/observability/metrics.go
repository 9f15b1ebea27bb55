package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overthinkistan_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RecordMutations counts lifecycle writes by entity kind and operation.
	RecordMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overthinkistan_record_mutations_total",
		Help: "Total number of record lifecycle mutations",
	}, []string{"kind", "operation"})

	// CacheLookups counts read-through cache lookups by key prefix and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overthinkistan_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"prefix", "result"})

	// PostReactions counts likes and dislikes.
	PostReactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overthinkistan_post_reactions_total",
		Help: "Total number of post reactions",
	}, []string{"reaction"})

	// UploadsTotal counts processed uploads by purpose and outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overthinkistan_uploads_total",
		Help: "Total number of processed uploads",
	}, []string{"purpose", "outcome"})

	// WebSocketConnectionsTotal is the gauge of open feed connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overthinkistan_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overthinkistan_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
