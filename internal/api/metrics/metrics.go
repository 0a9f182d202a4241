// Package metrics defines and registers all custom Prometheus metrics for the
// meter API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics register themselves with the default Prometheus registry through
// promauto when the package is loaded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meter_api"

// ── Access control metrics ────────────────────────────────────────────────────

// AuthAttemptsTotal counts login and token checks.
// Labels:
//   - method: "password" or "token"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// AuthzDeniedTotal counts requests refused by the capability table or a scope check.
// Label:
//   - role: the principal's role
var AuthzDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denied_total",
		Help:      "Total number of requests denied by authorization.",
	},
	[]string{"role"},
)

// InvariantViolationsTotal counts mutations rejected by a business rule.
// Label:
//   - rule: short rule name (e.g. "reading_must_increase")
var InvariantViolationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "Total number of mutations rejected by a business rule.",
	},
	[]string{"rule"},
)

// ── Reading metrics ───────────────────────────────────────────────────────────

// ReadingsProcessedTotal counts readings accepted by the batch dispatcher.
// Label:
//   - source: where the reading came from ("batch")
var ReadingsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_processed_total",
		Help:      "Total number of batch readings successfully applied.",
	},
	[]string{"source"},
)

// ReadingsErrorsTotal counts batch readings that failed.
// Label:
//   - reason: "forbidden", "meter_not_found", "reading_must_increase" or "update_failed"
var ReadingsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_errors_total",
		Help:      "Total number of batch readings that failed processing.",
	},
	[]string{"reason"},
)

// ReadingsQueueDepth tracks the number of readings waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ReadingsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readings_queue_depth",
		Help:      "Current number of readings pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ReadingProcessingDuration measures how long a single batch reading takes.
// Label:
//   - result: "ok" or "error"
var ReadingProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reading_processing_duration_seconds",
		Help:      "Duration of batch reading processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// ── Inventory metrics ─────────────────────────────────────────────────────────

// MetersCreatedTotal counts newly registered meters.
// Label:
//   - type: "gas", "water" or "electricity"
var MetersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meters_created_total",
		Help:      "Total number of meters created, by type.",
	},
	[]string{"type"},
)
