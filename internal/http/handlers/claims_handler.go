// Claim HTTP handlers.
//
// This file exposes the REST endpoints for the claim lifecycle:
//   - POST /specials/{id}/claim   (reserve one unit of capacity)
//   - POST /claims/{id}/cancel    (claimant voids an active claim)
//
// Handlers are transport-thin: they validate input, delegate to the
// claim coordinator, and translate domain/service errors into HTTP
// results. Rejection reasons stay distinguishable via the `code` field
// even though most share a 409 status.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous
// successful claim exists for (claimant, special, key), the handler
// returns that recorded claim and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shtetl/go-specials-backend/internal/domain"
	"github.com/shtetl/go-specials-backend/internal/http/middleware"
	"github.com/shtetl/go-specials-backend/internal/repo"
	"github.com/shtetl/go-specials-backend/internal/services"
)

// defaultIdempotencyTTL bounds the replay window when the deployment
// does not configure one.
const defaultIdempotencyTTL = 24 * time.Hour

//
// DTOs
//

// ClaimResponse is the JSON envelope for a successful (or replayed) claim.
type ClaimResponse struct {
	// Claim is the ledger row recording the reservation.
	Claim *domain.Claim `json:"claim"`
	// ClaimsLeft is the remaining capacity after this claim; 999999
	// when the special is unbounded.
	ClaimsLeft int `json:"claims_left"`
}

//
// Handlers
//

// ClaimSpecial godoc
// @ID          claimSpecial
// @Summary     Claim a special
// @Description Reserves one unit of the special's capacity for the current claimant.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID           header  string  false "User ID (one identity required)"           example(user123)
// @Param       X-Guest-Session-ID  header  string  false "Guest session ID (one identity required)"  example(guest-9f2)
// @Param       Idempotency-Key     header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id                  path    string  true  "Special ID (UUID)"  format(uuid)
//
// @Success     201  {object}  handlers.ClaimResponse  "Claim recorded"
// @Success     200  {object}  handlers.ClaimResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing claimant identity"
// @Failure     404  {object}  handlers.ErrorResponse  "Special not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Claim rejected (see code)"
// @Failure     503  {object}  handlers.ErrorResponse  "Transient failure, retry"
// @Router      /specials/{id}/claim [post]
func (h *Handlers) ClaimSpecial(c *gin.Context) {
	ctx := c.Request.Context()
	specialID := c.Param("id")
	if _, err := uuid.Parse(specialID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "special id must be a UUID")
		return
	}

	who, hasIdentity := requireClaimant(c)
	if !hasIdentity {
		return
	}

	// Idempotency (replay path) — read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		idemKey = c.GetHeader(middleware.HeaderIdempotencyKey)
	}
	svc, isConcrete := h.claimSvc.(*services.ClaimService)
	if idemKey != "" && isConcrete && svc.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, svc.DB, who.Key(), specialID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.GetClaim(ctx, svc.DB, rec.ClaimID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, ClaimResponse{Claim: prev, ClaimsLeft: replayClaimsLeft(c, svc, specialID)})
				return
			}
		}
	}

	receipt, err := h.claimSvc.Claim(ctx, specialID, who)
	if err != nil {
		failClaimError(c, err)
		return
	}

	// Idempotency (store path) — best effort.
	if idemKey != "" && isConcrete && svc.DB != nil {
		_, _ = repo.CreateIdempotency(ctx, svc.DB, who.Key(), specialID, idemKey, receipt.Claim.ID, http.StatusCreated, h.idemTTL)
	}

	ok(c, http.StatusCreated, ClaimResponse{
		Claim:      receipt.Claim,
		ClaimsLeft: receipt.ClaimsLeft.Sentinel(),
	})
}

// CancelClaim godoc
// @ID          cancelClaim
// @Summary     Cancel a claim
// @Description Voids the claimant's own active claim, releasing its capacity slot.
// @Tags        Claims
// @Produce     json
//
// @Param       X-User-ID           header  string  false "User ID (one identity required)"           example(user123)
// @Param       X-Guest-Session-ID  header  string  false "Guest session ID (one identity required)"  example(guest-9f2)
// @Param       id                  path    string  true  "Claim ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing claimant identity"
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Failure     409  {object} handlers.ErrorResponse "Claim already final"
// @Failure     503  {object} handlers.ErrorResponse "Transient failure, retry"
// @Router      /claims/{id}/cancel [post]
func (h *Handlers) CancelClaim(c *gin.Context) {
	claimID := c.Param("id")
	if _, err := uuid.Parse(claimID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "claim id must be a UUID")
		return
	}

	who, hasIdentity := requireClaimant(c)
	if !hasIdentity {
		return
	}

	if err := h.claimSvc.Cancel(c.Request.Context(), claimID, who); err != nil {
		failClaimError(c, err)
		return
	}
	noContent(c)
}

// replayClaimsLeft recomputes availability for a replayed claim
// response. Best effort: a failed lookup reports zero rather than
// failing the replay.
func replayClaimsLeft(c *gin.Context, svc *services.ClaimService, specialID string) int {
	ctx := c.Request.Context()
	sp, err := repo.GetSpecial(ctx, svc.DB, specialID)
	if err != nil {
		return 0
	}
	active, err := repo.CountActiveClaims(ctx, svc.DB, specialID)
	if err != nil {
		return 0
	}
	return services.ClaimsLeft(sp.MaxClaimsTotal, active).Sentinel()
}

// failClaimError maps claim-lifecycle errors onto HTTP responses with
// stable codes. Eligibility rejections share a 409 status but keep
// distinct codes so clients can explain the outcome.
func failClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSpecialNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "special not found")
	case errors.Is(err, services.ErrSpecialInactive):
		fail(c, http.StatusConflict, ErrCodeSpecialInactive, "special is not active")
	case errors.Is(err, services.ErrSpecialNotYetValid):
		fail(c, http.StatusConflict, ErrCodeSpecialNotYetValid, "special is not yet valid")
	case errors.Is(err, services.ErrSpecialExpired):
		fail(c, http.StatusConflict, ErrCodeSpecialExpired, "special has expired")
	case errors.Is(err, services.ErrSoldOut):
		fail(c, http.StatusConflict, ErrCodeSoldOut, "special is fully claimed")
	case errors.Is(err, services.ErrAlreadyClaimed):
		fail(c, http.StatusConflict, ErrCodeAlreadyClaimed, "special already claimed")
	case errors.Is(err, services.ErrClaimNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "claim not found")
	case errors.Is(err, services.ErrClaimFinal):
		fail(c, http.StatusConflict, ErrCodeClaimFinal, "claim is already in a terminal state")
	case errors.Is(err, services.ErrTransient):
		c.Header("Retry-After", "1")
		fail(c, http.StatusServiceUnavailable, ErrCodeTransient, "temporary failure, please retry")
	case errors.Is(err, domain.ErrInvalidClaimant):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "exactly one claimant identity is required")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
