// Package metrics defines all Prometheus metrics for the coplay service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// SessionsActive tracks the number of live sessions on this instance
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coplay_sessions_active",
			Help: "Number of live co-play sessions",
		},
	)

	// SessionsStartedTotal tracks sessions started by target kind
	SessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_sessions_started_total",
			Help: "Total sessions started by target kind",
		},
		[]string{"target"},
	)

	// SessionsStoppedTotal tracks sessions stopped by reason (stopped/idle)
	SessionsStoppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_sessions_stopped_total",
			Help: "Total sessions stopped by reason",
		},
		[]string{"reason"},
	)

	// PlayersJoinedTotal tracks successful player slot claims
	PlayersJoinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coplay_players_joined_total",
			Help: "Total successful player slot claims",
		},
	)
)

// Input Metrics
var (
	// InputEventsTotal tracks admitted input events by target kind
	InputEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_input_events_total",
			Help: "Total admitted input events by target kind",
		},
		[]string{"target"},
	)

	// InputRejectedTotal tracks rejected input events by reason
	InputRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_input_rejected_total",
			Help: "Total rejected input events by reason",
		},
		[]string{"reason"},
	)
)

// Save-state Metrics
var (
	// SaveStatesTotal tracks save-state operations by kind (save/load)
	SaveStatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_save_states_total",
			Help: "Total save-state operations by kind",
		},
		[]string{"kind"},
	)
)

// Relay Metrics
var (
	// RelayPendingRequests tracks in-flight emulator relay requests
	RelayPendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coplay_relay_pending_requests",
			Help: "In-flight emulator relay requests awaiting replies",
		},
	)

	// RelayTimeoutsTotal tracks relay requests that expired without a reply
	RelayTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coplay_relay_timeouts_total",
			Help: "Total relay requests that expired without a reply",
		},
	)

	// RelayRepliesTotal tracks relay replies by status (ok/error/unknown)
	RelayRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coplay_relay_replies_total",
			Help: "Total relay replies by status",
		},
		[]string{"status"},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectedClients tracks connected clients across all channels
	WebSocketConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coplay_websocket_connected_clients",
			Help: "Connected WebSocket clients across all channels",
		},
	)

	// WebSocketSlowClientsTotal tracks clients evicted for slow consumption
	WebSocketSlowClientsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coplay_websocket_slow_clients_total",
			Help: "Total clients disconnected for slow consumption",
		},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query latency in seconds
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database query errors
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database query errors",
		},
		[]string{"query"},
	)
)

// Idle Cleanup Metrics
var (
	// IdleCleanupScansTotal tracks idle cleanup scan runs
	IdleCleanupScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coplay_idle_cleanup_scans_total",
			Help: "Total idle cleanup scan runs",
		},
	)

	// IdleSessionsStoppedTotal tracks sessions torn down by the idle policy
	IdleSessionsStoppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coplay_idle_sessions_stopped_total",
			Help: "Total sessions torn down by the idle policy",
		},
	)
)
