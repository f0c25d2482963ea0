// Package metrics defines and registers all custom Prometheus metrics for the
// client portal. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication operations.
// Labels:
//   - operation: "register", "login", "verify", "update_profile", "logout"
//   - result: "success" or a short failure reason (e.g. "invalid_credentials")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokensRevokedTotal counts tokens placed on the revocation list at logout.
var TokensRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Total number of session tokens revoked at logout.",
	},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// DirectoryUpsertsTotal counts directory upserts.
// Label:
//   - result: "inserted", "updated", "error" or "dropped" (dispatcher queue full)
var DirectoryUpsertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_upserts_total",
		Help:      "Total number of directory upserts, by result.",
	},
	[]string{"result"},
)

// DirectoryListErrorsTotal counts directory reads that degraded to an empty list.
var DirectoryListErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_list_errors_total",
		Help:      "Total number of directory list failures answered with an empty list.",
	},
)

// DirectoryQueueDepth tracks the number of upserts waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var DirectoryQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "directory_queue_depth",
		Help:      "Current number of directory upserts pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
