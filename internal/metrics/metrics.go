package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline services
type Metrics struct {
	// HTTP metrics (progress/transcript-sync API)
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Job state store metrics
	RedisOperationDuration prometheus.HistogramVec
	RedisOperationsTotal   prometheus.CounterVec

	// Object store metrics
	ObjectStoreOperationDuration prometheus.HistogramVec
	ObjectStoreOperationsTotal   prometheus.CounterVec

	// Broker metrics
	BrokerPublishedTotal  prometheus.CounterVec
	BrokerConsumedTotal   prometheus.CounterVec
	BrokerRetriedTotal    prometheus.CounterVec
	BrokerDeadLetterTotal prometheus.CounterVec

	// Worker/stage metrics
	StageDuration  prometheus.HistogramVec
	StageFailures  prometheus.CounterVec
	SegmentsDone   prometheus.GaugeVec
	FanInWaitJobs  prometheus.GaugeVec
	JobsActive     prometheus.GaugeVec
	JobsTerminated prometheus.CounterVec
	ErrorsTotal    prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			RedisOperationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "store_operation_duration_seconds",
					Help:    "Job state store operation latency in seconds",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
				},
				[]string{"operation", "key_pattern"},
			),
			RedisOperationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "store_operations_total",
					Help: "Total number of job state store operations",
				},
				[]string{"operation", "status"},
			),

			ObjectStoreOperationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "objectstore_operation_duration_seconds",
					Help:    "Object store operation latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
				},
				[]string{"operation"},
			),
			ObjectStoreOperationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "objectstore_operations_total",
					Help: "Total number of object store operations",
				},
				[]string{"operation", "status"},
			),

			BrokerPublishedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broker_published_total",
					Help: "Total number of messages published",
				},
				[]string{"exchange", "routing_key"},
			),
			BrokerConsumedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broker_consumed_total",
					Help: "Total number of messages consumed",
				},
				[]string{"exchange", "routing_key", "status"},
			),
			BrokerRetriedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broker_retried_total",
					Help: "Total number of messages requeued for retry",
				},
				[]string{"exchange", "routing_key"},
			),
			BrokerDeadLetterTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broker_dead_letter_total",
					Help: "Total number of messages routed to a dead letter queue",
				},
				[]string{"exchange", "routing_key"},
			),

			StageDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "stage_processing_duration_seconds",
					Help:    "Pipeline stage processing duration in seconds",
					Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
				},
				[]string{"stage"},
			),
			StageFailures: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "stage_failures_total",
					Help: "Total pipeline stage processing failures",
				},
				[]string{"stage", "reason"},
			),
			SegmentsDone: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "segments_done",
					Help: "Segments completed for the current job sample",
				},
				[]string{"job_id"},
			),
			FanInWaitJobs: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "fan_in_waiting_jobs",
					Help: "Jobs currently waiting on fan-in (segment/diarization) completion",
				},
				[]string{},
			),
			JobsActive: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "jobs_active",
					Help: "Number of jobs currently in a non-terminal status",
				},
				[]string{},
			),
			JobsTerminated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "jobs_terminated_total",
					Help: "Total jobs reaching a terminal status",
				},
				[]string{"status"},
			),
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "component"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
