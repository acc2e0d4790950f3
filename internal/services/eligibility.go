// Package services – eligibility checker.
package services

import (
	"time"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// CheckEligibility decides whether a new claim on sp is allowed given a
// snapshot of ledger state. It returns nil when eligible, or exactly
// one of ErrSpecialInactive, ErrSpecialNotYetValid, ErrSpecialExpired,
// ErrSoldOut, ErrAlreadyClaimed.
//
// Checks run in a fixed order so outcomes are deterministic: inactive,
// then window, then capacity, then duplicate. A request that is both
// over capacity and a duplicate therefore reports ErrSoldOut.
//
// Pure function. The inputs must be read inside the same atomic unit of
// work as the eventual insert, otherwise the decision is only advisory.
func CheckEligibility(sp *domain.Special, activeClaims int64, hasActiveClaim bool, now time.Time) error {
	if !sp.IsActive {
		return ErrSpecialInactive
	}
	if now.Before(sp.ValidFrom) {
		return ErrSpecialNotYetValid
	}
	if now.After(sp.ValidUntil) {
		return ErrSpecialExpired
	}
	if ClaimsLeft(sp.MaxClaimsTotal, activeClaims).Exhausted() {
		return ErrSoldOut
	}
	if hasActiveClaim && !sp.PerVisit {
		return ErrAlreadyClaimed
	}
	return nil
}
