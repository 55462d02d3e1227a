package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "constserv_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "constserv_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Resolution metrics
	ConstantLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_constant_lookups_total",
			Help: "Total number of constant name lookups",
		},
		[]string{"result"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "constserv_batch_size",
			Help:    "Number of names per batch request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// Dataset metrics
	DatasetReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_dataset_reloads_total",
			Help: "Total number of dataset reload attempts",
		},
		[]string{"status"},
	)

	DatasetConstants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "constserv_dataset_constants",
			Help: "Number of constants in the active dataset snapshot",
		},
	)

	// Lifecycle metrics
	LifecycleState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "constserv_lifecycle_state",
			Help: "Current lifecycle state (0=starting, 1=serving, 2=draining, 3=stopped)",
		},
	)

	ShutdownTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_shutdown_triggers_total",
			Help: "Total number of shutdown trigger deliveries",
		},
		[]string{"source"},
	)

	// MQTT metrics
	MQTTMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_mqtt_messages_received_total",
			Help: "Total number of MQTT messages received",
		},
		[]string{"topic"},
	)

	// Database metrics
	DBOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"},
	)

	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "constserv_db_operation_duration_seconds",
			Help:    "Database operation latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Kafka metrics
	KafkaPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "constserv_kafka_publish_total",
			Help: "Total number of Kafka publish attempts",
		},
		[]string{"topic", "status"},
	)

	KafkaPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "constserv_kafka_publish_duration_seconds",
			Help:    "Kafka publish latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordLookup records a single constant lookup outcome
func RecordLookup(found bool) {
	if found {
		ConstantLookupsTotal.WithLabelValues("found").Inc()
		return
	}
	ConstantLookupsTotal.WithLabelValues("missing").Inc()
}

// RecordBatch records the size of a batch request
func RecordBatch(size int) {
	BatchSize.Observe(float64(size))
}

// RecordDatasetReload records a dataset reload attempt and, on success, the snapshot size
func RecordDatasetReload(status string, constants int) {
	DatasetReloadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		DatasetConstants.Set(float64(constants))
	}
}

// SetLifecycleState publishes the coordinator state
func SetLifecycleState(state int) {
	LifecycleState.Set(float64(state))
}

// RecordShutdownTrigger records a shutdown trigger delivery by its producer
func RecordShutdownTrigger(source string) {
	ShutdownTriggersTotal.WithLabelValues(source).Inc()
}

// RecordMQTTMessage records MQTT message received
func RecordMQTTMessage(topic string) {
	MQTTMessagesReceived.WithLabelValues(topic).Inc()
}

// RecordDBOperation records database operation metrics
func RecordDBOperation(operation, table, status string, duration float64) {
	DBOperationsTotal.WithLabelValues(operation, table, status).Inc()
	DBOperationDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordKafkaPublish records Kafka publish metrics
func RecordKafkaPublish(topic, status string, duration float64) {
	KafkaPublishTotal.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.WithLabelValues(topic).Observe(duration)
}
