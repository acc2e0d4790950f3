// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (sold_out, already_claimed, ...) distinguish claim
//     rejection reasons that share a status, so clients can render "fully
//     claimed" vs "already claimed by you" instead of a generic failure.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "sold_out",
//	  "message": "special is fully claimed"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific claim rejections (all 409):
	ErrCodeSpecialInactive    = "special_inactive"
	ErrCodeSpecialNotYetValid = "special_not_yet_valid"
	ErrCodeSpecialExpired     = "special_expired"
	ErrCodeSoldOut            = "sold_out"
	ErrCodeAlreadyClaimed     = "already_claimed"
	ErrCodeClaimFinal         = "claim_final"

	// Retryable (503):
	ErrCodeTransient = "transient"

	ErrCodeMethodNotAllowed = "method_not_allowed"
)
