package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ==================== Session / Billing Metrics ====================

	// ActiveChargingSessions tracks the number of active charging sessions
	ActiveChargingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csms_active_charging_sessions",
		Help: "Number of active charging sessions",
	})

	// EnergyDeliveredTotal tracks total energy delivered in kWh
	EnergyDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csms_energy_delivered_kwh_total",
		Help: "Total energy delivered in kWh",
	})

	// RevenueTotal tracks total revenue by currency, derived from Tariff-rated orders
	RevenueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_revenue_total",
		Help: "Total revenue by currency",
	}, []string{"currency"})

	// TransactionsTotal tracks total transactions by status
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_transactions_total",
		Help: "Total transactions by status",
	}, []string{"status"})

	// ChargingDuration tracks the duration of charging sessions
	ChargingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csms_charging_duration_seconds",
		Help:    "Duration of charging sessions in seconds",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400}, // 1min, 5min, 10min, 30min, 1h, 2h, 4h
	})

	// ==================== OCPP Metrics ====================

	// OCPPMessagesTotal tracks OCPP messages by action and direction
	OCPPMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_ocpp_messages_total",
		Help: "Total OCPP messages",
	}, []string{"action", "direction"})

	// OCPPConnectionsActive tracks charge points currently connected, across
	// all transports, sourced from connregistry.Registry.ConnectedCount.
	OCPPConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csms_ocpp_connections_active",
		Help: "Number of charge points currently connected",
	})

	// OCPPPendingResponses tracks outstanding CSMS-originated calls awaiting
	// a reply, sourced from transport.Registry.Size.
	OCPPPendingResponses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csms_ocpp_pending_responses",
		Help: "Number of CSMS-originated OCPP calls awaiting a response",
	})

	// OCPPDispatchLatency tracks how long the dispatcher takes to handle an
	// inbound action, end to end (decode through repository writes).
	OCPPDispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csms_ocpp_dispatch_latency_seconds",
		Help:    "Dispatcher handling latency by action",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"action"})

	// ==================== Charge Point / Device Metrics ====================

	// ChargePointsTotal tracks total charge points by connectivity status
	ChargePointsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csms_charge_points_total",
		Help: "Total charge points by status",
	}, []string{"status"})

	// DeviceLastSeen tracks when devices were last seen
	DeviceLastSeen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csms_device_last_seen_timestamp",
		Help: "Timestamp of last device heartbeat",
	}, []string{"device_id"})

	// ==================== Infrastructure Metrics ====================

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csms_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path", "status"})

	// HTTPRequestsTotal tracks total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// DatabaseLatency tracks database query latency
	DatabaseLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csms_database_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"operation", "table"})

	// CacheHitsTotal tracks cache hits and misses
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_cache_hits_total",
		Help: "Total cache hits and misses",
	}, []string{"result"}) // hit, miss

	// MessageQueueMessagesTotal tracks message queue messages
	MessageQueueMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_mq_messages_total",
		Help: "Total message queue messages",
	}, []string{"topic", "status"}) // status: published, consumed, failed

	// CircuitBreakerState tracks each outbound breaker's state, sourced from
	// resilience.OutboundGuard.Status.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csms_circuit_breaker_state",
		Help: "Circuit breaker state by key (0=closed, 1=half-open, 2=open)",
	}, []string{"breaker"})
)

// RecordTransactionStarted increments metrics when a transaction starts
func RecordTransactionStarted() {
	ActiveChargingSessions.Inc()
	TransactionsTotal.WithLabelValues("started").Inc()
}

// RecordTransactionCompleted updates metrics when a transaction completes
func RecordTransactionCompleted(energyKWh float64, cost float64, currency string, durationSeconds float64) {
	ActiveChargingSessions.Dec()
	TransactionsTotal.WithLabelValues("completed").Inc()
	EnergyDeliveredTotal.Add(energyKWh)
	RevenueTotal.WithLabelValues(currency).Add(cost)
	ChargingDuration.Observe(durationSeconds)
}

// RecordOCPPMessage records an OCPP message metric
func RecordOCPPMessage(action string, inbound bool) {
	direction := "outbound"
	if inbound {
		direction = "inbound"
	}
	OCPPMessagesTotal.WithLabelValues(action, direction).Inc()
}

// RecordOCPPDispatch records how long the dispatcher spent on one action
func RecordOCPPDispatch(action string, durationSeconds float64) {
	OCPPDispatchLatency.WithLabelValues(action).Observe(durationSeconds)
}

// SetConnectivityGauges refreshes the point-in-time gauges that have no
// natural "event" to hook into (connection count, pending-response count).
// Intended to be called on a short ticker from cmd/server, or on /metrics
// scrape, rather than on every registry mutation.
func SetConnectivityGauges(connectedChargePoints int, pendingResponses int) {
	OCPPConnectionsActive.Set(float64(connectedChargePoints))
	OCPPPendingResponses.Set(float64(pendingResponses))
}

// RecordHTTPRequest records an HTTP request metric
func RecordHTTPRequest(method, path string, status int, durationSeconds float64) {
	statusStr := fmt.Sprintf("%d", status)
	HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(durationSeconds)
}

// RecordCacheAccess records a cache access metric
func RecordCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheHitsTotal.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState records a breaker's current state as a gauge value
func SetCircuitBreakerState(breakerKey string, state int) {
	CircuitBreakerState.WithLabelValues(breakerKey).Set(float64(state))
}
