// Package services defines the business logic for the specials claim
// engine. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is
// performed at the handler layer. Rejection reasons stay distinguishable
// end-to-end so the UI can show "fully claimed" vs "already claimed by
// you" instead of a generic failure.
package services

import (
	"errors"
	"fmt"
)

// Claim eligibility and lifecycle errors.
var (
	// ErrSpecialNotFound indicates the requested special does not exist.
	ErrSpecialNotFound = errors.New("special not found")

	// ErrSpecialInactive is returned when the special has been
	// soft-disabled by its business.
	ErrSpecialInactive = errors.New("special is not active")

	// ErrSpecialNotYetValid is returned for claim attempts before the
	// validity window opens.
	ErrSpecialNotYetValid = errors.New("special is not yet valid")

	// ErrSpecialExpired is returned for claim attempts after the
	// validity window closed.
	ErrSpecialExpired = errors.New("special has expired")

	// ErrSoldOut is returned when a bounded special has no capacity
	// left. When a request is simultaneously a duplicate and over
	// capacity, this error wins (checked before ErrAlreadyClaimed).
	ErrSoldOut = errors.New("special is fully claimed")

	// ErrAlreadyClaimed is returned when the claimant already holds an
	// active claim on a non-per-visit special.
	ErrAlreadyClaimed = errors.New("special already claimed by this claimant")

	// ErrClaimNotFound indicates the claim does not exist or does not
	// belong to the current claimant.
	ErrClaimNotFound = errors.New("claim not found")

	// ErrClaimFinal is returned when attempting to transition a claim
	// that already reached a terminal state.
	ErrClaimFinal = errors.New("claim is already in a terminal state")
)

// ErrTransient marks retryable failures: storage errors inside the
// claim transaction and lock-wait timeouts. Callers may retry; without
// an idempotency key a retry can legitimately produce a second claim
// on a per-visit special, which is a caller responsibility.
var ErrTransient = errors.New("transient failure, retry may succeed")

// ErrClaimContention is the lock-timeout variant of ErrTransient:
// the per-special lock could not be acquired within the configured
// bounded wait.
var ErrClaimContention = fmt.Errorf("timed out waiting for the special's claim lock: %w", ErrTransient)

// transient wraps an unexpected storage error so handlers can match it
// with errors.Is(err, ErrTransient) while logs keep the cause.
func transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
