// Package metrics defines and registers all custom Prometheus metrics for the
// tracker API. It is the single source of truth for metric names, labels and
// help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// ── Authentication ────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts credential and session operations.
// Labels:
//   - operation: "register", "login", "refresh" or "logout"
//   - result: "success", "conflict", "unauthorized", "invalid" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokenRefreshTotal counts refresh token exchanges.
// Label:
//   - result: "rotated" or "rejected"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of refresh token exchanges, by result.",
	},
	[]string{"result"},
)

// ── Authorization ─────────────────────────────────────────────────────────────

// AuthzDecisionsTotal counts gate outcomes.
// Labels:
//   - decision: "allow", "deny", "unauthenticated" or "error"
//   - reason: deny reason code, empty on allow
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of authorization gate decisions.",
	},
	[]string{"decision", "reason"},
)

// AuthzDecisionDuration measures token verification plus principal lookup.
var AuthzDecisionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "authz_decision_duration_seconds",
		Help:      "Duration of a full gate check including the principal store read.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Refresh token maintenance ─────────────────────────────────────────────────

// RefreshTokensPurgedTotal counts rows removed by the expiry sweeper.
var RefreshTokensPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_tokens_purged_total",
		Help:      "Total number of expired refresh tokens removed by the sweeper.",
	},
)

// ── Audit ─────────────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts events discarded because the worker queue was full
// or the dispatcher was stopped.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of auth audit events dropped before persistence.",
	},
)

// AuditEventsWrittenTotal counts persistence attempts.
// Label:
//   - result: "ok" or "error"
var AuditEventsWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_written_total",
		Help:      "Total number of auth audit events handed to the repository.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
