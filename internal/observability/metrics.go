package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// JoinAttempts counts allocator outcomes: joined, already_member,
	// rejected, server_busy, error.
	JoinAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurawell_join_attempts_total",
		Help: "Total number of room join attempts by outcome",
	}, []string{"outcome"})

	// AllocationConflicts counts transient storage races the allocator
	// retired by retrying: slot_taken, duplicate_room_number, stale_update.
	AllocationConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurawell_allocation_conflicts_total",
		Help: "Total number of transient allocation conflicts by kind",
	}, []string{"kind"})

	// AllocationRetries observes how many attempts a successful join needed.
	AllocationRetries = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aurawell_allocation_attempts_per_join",
		Help:    "Attempts consumed per successful join",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	// RoomsCreated counts new rooms opened by the allocator.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aurawell_rooms_created_total",
		Help: "Total number of support rooms created",
	})

	// ModerationActions counts moderation operations by action type.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurawell_moderation_actions_total",
		Help: "Total number of moderation actions by type",
	}, []string{"action"})

	// AuditLogFailures counts swallowed audit append failures. These never
	// fail the moderation mutation, so the counter is the only signal.
	AuditLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aurawell_audit_log_failures_total",
		Help: "Total number of audit log appends that failed and were swallowed",
	})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aurawell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aurawell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
