// Package metrics defines the marketplace backend's Prometheus metrics. All
// names live under the "marketplace" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── Product metrics ───────────────────────────────────────────────────────────

// ProductsSubmittedTotal counts submissions.
// Label:
//   - result: "created", "replayed" (Idempotency-Key hit) or "error"
var ProductsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "products_submitted_total",
		Help:      "Total number of product submissions, by result.",
	},
	[]string{"result"},
)

// ModerationDecisionsTotal counts approve/reject requests.
// Labels:
//   - decision: "approve" or "reject"
//   - result: "applied", "noop", "conflict", "denied" or "error"
var ModerationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_decisions_total",
		Help:      "Total number of moderation decisions, by decision and result.",
	},
	[]string{"decision", "result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts moderation events written by the audit dispatcher.
// Label:
//   - result: "written", "error" or "dropped"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of moderation audit events handled by the dispatcher.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks events waiting in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of moderation events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditWriteDuration measures one audit insert.
var AuditWriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_write_duration_seconds",
		Help:      "Duration of a moderation audit insert.",
		Buckets:   prometheus.DefBuckets,
	},
)
