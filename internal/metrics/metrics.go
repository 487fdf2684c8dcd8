// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RuntimeCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extract_gateway_runtime_command_duration_seconds",
			Help:    "Time spent in model runtime subprocesses in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"command"},
	)

	RuntimeCommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_gateway_runtime_command_errors_total",
			Help: "Model runtime subprocess failures",
		},
		[]string{"command", "reason"},
	)

	Provisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_gateway_provisions_total",
			Help: "Model provisioning attempts",
		},
		[]string{"model", "status"},
	)

	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_gateway_extractions_total",
			Help: "Extraction requests by terminal outcome",
		},
		[]string{"model", "outcome"},
	)

	InflightRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extract_gateway_inflight_runs",
			Help: "Model runs currently holding a run slot",
		},
	)

	ProvisionWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extract_gateway_provision_waiters",
			Help: "Requests waiting on an in-flight model pull",
		},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_gateway_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
