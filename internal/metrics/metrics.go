package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakroom_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloakroom_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakroom_deposits_total",
			Help: "Records deposited, by location.",
		},
		[]string{"location"},
	)

	ReturnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakroom_returns_total",
			Help: "Records returned, by location.",
		},
		[]string{"location"},
	)

	DepositConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloakroom_deposit_conflicts_total",
			Help: "Deposits rejected because the token already has a live deposit.",
		},
	)

	RecordsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakroom_records_deleted_total",
			Help: "Records removed by the deletion pipeline, by action.",
		},
		[]string{"action"},
	)

	BlobUnlinkTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloakroom_blob_unlink_total",
			Help: "Blob deletion attempts by result (success, missing, no_path, error).",
		},
		[]string{"result"},
	)

	AuditFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloakroom_audit_failures_total",
			Help: "Audit entries that could not be written.",
		},
	)
)
