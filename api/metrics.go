/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counts the engine's business outcomes so operators can alert on them:
  award volume by source, duplicate award no-ops, consumption denials by
  reason, flag volume by severity, suspensions by type.

  Registered via promauto on the default registry and exposed on
  GET /metrics by the router.

SEE ALSO:
  - handlers.go: increments these counters
  - server.go: mounts the /metrics endpoint
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	creditsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_credits_awarded_total",
		Help: "Credit ledger entries created, by source classification.",
	}, []string{"source"})

	creditsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "referral_credits_duplicate_total",
		Help: "Award calls that resolved to an existing entry (idempotent no-ops).",
	})

	poolConsumptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_consumptions_total",
		Help: "Pool consumption attempts, by kind and outcome (ok or denial reason).",
	}, []string{"kind", "outcome"})

	flagsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "behavioral_flags_recorded_total",
		Help: "Behavioral flags recorded against representatives, by severity.",
	}, []string{"severity"})

	suspensionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suspensions_created_total",
		Help: "Suspensions created or escalated, by type.",
	}, []string{"type"})
)
