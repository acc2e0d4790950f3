// Package services – availability calculator.
//
// Derived availability is never persisted; it is always recomputed from
// the special's configured capacity and a fresh ledger count so there is
// no shadow counter that could drift out of sync with the claim ledger.
package services

import "github.com/shtetl/go-specials-backend/internal/domain"

// Availability is the derived number of claims left on a special.
// Either Unbounded is true, or Remaining holds a non-negative count.
type Availability struct {
	Unbounded bool
	Remaining int
}

// ClaimsLeft derives availability from a capacity cap and an active
// claim count. A nil cap means unbounded. Pure function, no I/O.
//
// When used to authorize a claim, activeClaims must come from the same
// transaction snapshot as the eventual insert; for display purposes a
// slightly stale count is acceptable.
func ClaimsLeft(maxClaimsTotal *int, activeClaims int64) Availability {
	if maxClaimsTotal == nil {
		return Availability{Unbounded: true}
	}
	left := int(int64(*maxClaimsTotal) - activeClaims)
	if left < 0 {
		left = 0
	}
	return Availability{Remaining: left}
}

// Exhausted reports whether a bounded special has no capacity left.
func (a Availability) Exhausted() bool {
	return !a.Unbounded && a.Remaining == 0
}

// Sentinel renders availability the way API clients expect: the real
// remainder for bounded specials and a large fixed sentinel for
// unbounded ones.
func (a Availability) Sentinel() int {
	if a.Unbounded {
		return domain.UnboundedClaimsSentinel
	}
	return a.Remaining
}
