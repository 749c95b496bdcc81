// Package metrics defines the custom Prometheus metrics of the service-desk
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "servicedesk"

// ── Authentication ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Labels:
//   - outcome: "success" or "failure"
//   - reason: failure cause ("unknown_subject", "locked", "bad_password"), empty on success
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by outcome and internal failure reason.",
	},
	[]string{"outcome", "reason"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created", "invalid_role" or "duplicate_subject"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokenRejectionsTotal counts bearer or refresh tokens that failed verification
// or identity resolution.
// Label:
//   - reason: "missing", "malformed", "bad_signature", "expired", "unknown_subject", "locked"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "token_rejections_total",
		Help:      "Total number of rejected tokens, by internal reason.",
	},
	[]string{"reason"},
)

// ── Authorization ─────────────────────────────────────────────────────────────

// AccessDeniedTotal counts 403 responses.
// Label:
//   - layer: "route" (gatekeeper) or "handler" (handler-level role check)
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz",
		Name:      "access_denied_total",
		Help:      "Total number of requests denied for insufficient role.",
	},
	[]string{"layer"},
)

// PolicyMismatchTotal counts disagreements between the route table and a
// handler's declared roles. Any non-zero value is a deployment defect.
var PolicyMismatchTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz",
		Name:      "policy_mismatch_total",
		Help:      "Total number of route/handler access policy disagreements detected.",
	},
)

// ── Identity cache ────────────────────────────────────────────────────────────

// IdentityCacheTotal counts identity cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var IdentityCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_cache_total",
		Help:      "Total number of identity cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Audit trail ───────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events discarded because their worker
// queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_dropped_total",
		Help:      "Total number of audit events dropped on a full queue.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditWriteDuration measures how long persisting a single audit event takes.
// Label:
//   - result: "ok" or "error"
var AuditWriteDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "write_duration_seconds",
		Help:      "Duration of audit event persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
