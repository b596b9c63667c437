/*
Package observe holds the Prometheus instrumentation.

PURPOSE:
  Counters for the flows that matter operationally: purchase settlements
  by outcome, event registrations, challenge generation, and tutor
  requests. Collectors register on the default registry; the HTTP server
  exposes them on /metrics via promhttp.
*/
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcome label values.
const (
	OutcomeSettled             = "settled"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeCompensated         = "compensated"
	OutcomeReconcilePending    = "reconcile_pending"
	OutcomeError               = "error"
)

var (
	// Settlements counts purchase settlement attempts by outcome.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radventure",
		Name:      "settlements_total",
		Help:      "Purchase settlement attempts by outcome.",
	}, []string{"outcome"})

	// Registrations counts successful event registrations.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "radventure",
		Name:      "event_registrations_total",
		Help:      "Successful event registrations.",
	})

	// ChallengesGenerated counts daily challenges created, by source
	// ("curated" or "fallback").
	ChallengesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radventure",
		Name:      "challenges_generated_total",
		Help:      "Daily challenges created, by source.",
	}, []string{"source"})

	// TutorRequests counts AI tutor requests by result
	// ("answered", "rate_limited", "no_credits", "error").
	TutorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radventure",
		Name:      "tutor_requests_total",
		Help:      "AI tutor requests by result.",
	}, []string{"result"})

	// LedgerAppends counts ledger entries written, by transaction type.
	LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radventure",
		Name:      "ledger_appends_total",
		Help:      "Ledger entries written, by transaction type.",
	}, []string{"tx_type"})
)
