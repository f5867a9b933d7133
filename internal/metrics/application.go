package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks pipeline-domain metrics not covered by the generic Metrics set
type ApplicationMetrics struct {
	JobsSubmittedTotal   prometheus.CounterVec
	AlignmentDuration    prometheus.HistogramVec
	AlignmentFallbacks   prometheus.CounterVec
	TranscriptSyncTotal  prometheus.CounterVec
	CleanupSweptKeys     prometheus.CounterVec
}

// InitializeApplicationMetrics creates and registers all application metrics
func InitializeApplicationMetrics() *ApplicationMetrics {
	return &ApplicationMetrics{
		JobsSubmittedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_submitted_total",
				Help: "Total number of jobs submitted for processing",
			},
			[]string{},
		),
		AlignmentDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alignment_duration_seconds",
				Help:    "Word-to-speaker alignment duration in seconds",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 2.5},
			},
			[]string{},
		),
		AlignmentFallbacks: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alignment_fallbacks_total",
				Help: "Total words assigned via the zero-overlap fallback path",
			},
			[]string{"fallback"},
		),
		TranscriptSyncTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transcript_sync_total",
				Help: "Total transcript edit-sync operations",
			},
			[]string{"status"},
		),
		CleanupSweptKeys: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cleanup_swept_keys_total",
				Help: "Total object store keys swept during job termination",
			},
			[]string{"prefix"},
		),
	}
}

var (
	appInstance *ApplicationMetrics
	appOnce     sync.Once
)

// GetApplication returns the global ApplicationMetrics, initializing it on
// first use so callers don't need to sequence their own startup against
// Initialize.
func GetApplication() *ApplicationMetrics {
	appOnce.Do(func() {
		appInstance = InitializeApplicationMetrics()
	})
	return appInstance
}
