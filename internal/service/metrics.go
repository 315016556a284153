package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// taskTransitionsTotal counts committed status changes, creation included.
	taskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamline_task_transitions_total",
			Help: "Committed task status transitions",
		},
		[]string{"from", "to"},
	)

	taskErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamline_task_operation_errors_total",
			Help: "Task and user directory operations that failed, by operation and error kind",
		},
		[]string{"op", "kind"},
	)

	proofBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streamline_proof_upload_bytes",
			Help:    "Size of stored proof attachments in bytes",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
		},
	)

	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamline_proof_compensations_total",
			Help: "Orphaned proof attachments removed after a failed commit",
		},
		[]string{"result"},
	)
)
