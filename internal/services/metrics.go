// Package services – domain metrics.
//
// Claim outcomes and engagement recording results are counted so the
// sold-out/contention rate of hot specials is visible on dashboards
// without log scraping. Label cardinality is fixed: outcomes come from
// the closed error taxonomy, never from request data.
package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// claimOutcomes counts claim attempts by final outcome.
	claimOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specials_claim_attempts_total",
			Help: "Total claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// viewEvents counts engagement recording results. Dropped events
	// are only ever logged and counted, never surfaced to callers.
	viewEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specials_view_events_total",
			Help: "View events by recording result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(claimOutcomes, viewEvents)
}

// claimOutcomeLabel maps a coordinator result to a bounded label value.
func claimOutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "claimed"
	case errors.Is(err, ErrSoldOut):
		return "sold_out"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrSpecialInactive), errors.Is(err, ErrSpecialNotYetValid), errors.Is(err, ErrSpecialExpired):
		return "window_rejected"
	case errors.Is(err, ErrSpecialNotFound):
		return "not_found"
	case errors.Is(err, ErrClaimContention):
		return "contention"
	default:
		return "error"
	}
}
