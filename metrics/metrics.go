// Package metrics defines the process's Prometheus metrics, following the
// teacher's promauto registration style: one struct of named
// Counter/Gauge/Histogram vectors, constructed once into a package-level
// Metrics value at process startup.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientMetrics is the generic shape used for the blob store and document
// store clients: a retry
// gauge, a failure counter, and a request-duration histogram, labeled by
// operation.
type ClientMetrics struct {
	RetryCount      *prometheus.GaugeVec
	FailureCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func newClientMetrics(name string) ClientMetrics {
	return ClientMetrics{
		RetryCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: name + "_retry_count",
			Help: "Number of retries attempted for the current in-flight operation, by op",
		}, []string{"op"}),
		FailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: name + "_failure_count",
			Help: "Number of operations that ultimately failed, by op",
		}, []string{"op"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name + "_request_duration_seconds",
			Help:    "Duration of operations against this client, by op",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op", "success"}),
	}
}

// AssetPipelineMetrics is the full set of metrics exported by the worker
// process.
type AssetPipelineMetrics struct {
	Version *prometheus.CounterVec

	// Task Queue / Worker Pool (§4.I / §4.J)
	QueueDepth        prometheus.Gauge
	TasksInFlight     prometheus.Gauge
	TasksDequeued     *prometheus.CounterVec
	TaskDurationSec   *prometheus.HistogramVec
	TaskFailureCount  *prometheus.CounterVec

	// Pipeline Engine / step runners (§4.G)
	StepRunCount      *prometheus.CounterVec
	StepDurationSec   *prometheus.HistogramVec
	StepWaitingCount  *prometheus.CounterVec

	// External Job Coordinators (§4.H)
	RemoteJobsCreated  *prometheus.CounterVec
	RemoteJobsReused   *prometheus.CounterVec
	RemoteJobDurationSec *prometheus.HistogramVec
	RemoteJobTimeouts  *prometheus.CounterVec

	// Key rotator (§4.D)
	KeyRotations    *prometheus.CounterVec
	QuotaExhaustions *prometheus.CounterVec

	// Completion event publisher (§4.K)
	EventsPublished *prometheus.CounterVec
	EventPublishErrors *prometheus.CounterVec

	BlobStoreClient ClientMetrics
	DocStoreClient  ClientMetrics
}

func NewMetrics() *AssetPipelineMetrics {
	m := &AssetPipelineMetrics{
		Version: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_pipeline_version",
			Help: "Fired once on startup to record the running build version",
		}, []string{"version"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "task_queue_depth",
			Help: "Approximate number of pending tasks in the broker queue",
		}),
		TasksInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tasks_in_flight",
			Help: "Number of tasks currently being processed by this worker process",
		}),
		TasksDequeued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_dequeued_total",
			Help: "Total tasks dequeued, by task type",
		}, []string{"type"}),
		TaskDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "task_duration_seconds",
			Help:    "Wall-clock duration of a dequeued task, by type and outcome",
			Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"type", "status"}),
		TaskFailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "task_failure_count",
			Help: "Total tasks that ended in status=failed, by type",
		}, []string{"type"}),

		StepRunCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_step_run_count",
			Help: "Total step runner invocations, by step id and terminal status",
		}, []string{"step", "status"}),
		StepDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_step_duration_seconds",
			Help:    "Duration of a single step runner invocation, by step id",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"step"}),
		StepWaitingCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_step_waiting_count",
			Help: "Total step runner invocations that returned waiting, by step id",
		}, []string{"step"}),

		RemoteJobsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_jobs_created_total",
			Help: "Total remote jobs created, by coordinator kind",
		}, []string{"kind"}),
		RemoteJobsReused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_jobs_reused_total",
			Help: "Total remote job lookups that reused a completed prior job via config hash, by coordinator kind",
		}, []string{"kind"}),
		RemoteJobDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_job_duration_seconds",
			Help:    "Duration from remote job creation to terminal state, by coordinator kind",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		RemoteJobTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_job_timeouts_total",
			Help: "Total remote jobs that exceeded their poll-loop max wait, by coordinator kind",
		}, []string{"kind"}),

		KeyRotations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "key_rotator_rotations_total",
			Help: "Total key rotations triggered by quota-exhausted responses",
		}, []string{"reason"}),
		QuotaExhaustions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "key_rotator_quota_exhaustions_total",
			Help: "Total quota-exhausted responses observed, by model",
		}, []string{"model"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_events_published_total",
			Help: "Total completion events published, by event type",
		}, []string{"type"}),
		EventPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_event_publish_errors_total",
			Help: "Total completion event publish failures (logged and swallowed), by event type",
		}, []string{"type"}),

		BlobStoreClient: newClientMetrics("blob_store_client"),
		DocStoreClient:  newClientMetrics("doc_store_client"),
	}
	return m
}

var Metrics = NewMetrics()
