// Claimant identity extraction.
//
// The specials API serves both authenticated users and anonymous guests.
// Upstream auth middleware stashes the identity in the Gin context
// ("userID" or "guestSessionID"); demo setups and tests supply it via
// the X-User-ID / X-Guest-Session-ID headers. Exactly one identity is
// required: requests with neither (or both) are rejected with 401
// before any service call.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shtetl/go-specials-backend/internal/domain"
)

// Identity headers accepted when no upstream middleware has populated
// the context.
const (
	HeaderUserID         = "X-User-ID"
	HeaderGuestSessionID = "X-Guest-Session-ID"
)

// claimantFrom assembles the request's claimant identity plus audit
// metadata. The bool result is false when no valid identity is present.
func claimantFrom(c *gin.Context) (domain.Claimant, bool) {
	var who domain.Claimant

	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			who.UserID = s
		}
	}
	if v, ok := c.Get("guestSessionID"); ok {
		if s, ok := v.(string); ok {
			who.GuestSessionID = s
		}
	}
	if who.UserID == "" && who.GuestSessionID == "" && c.Request != nil {
		who.UserID = strings.TrimSpace(c.GetHeader(HeaderUserID))
		who.GuestSessionID = strings.TrimSpace(c.GetHeader(HeaderGuestSessionID))
	}
	if who.Validate() != nil {
		return domain.Claimant{}, false
	}

	who.IPAddress = c.ClientIP()
	if c.Request != nil {
		who.UserAgent = c.Request.UserAgent()
	}
	return who, true
}

// requireClaimant extracts the identity or aborts with 401.
func requireClaimant(c *gin.Context) (domain.Claimant, bool) {
	who, ok := claimantFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "exactly one of X-User-ID or X-Guest-Session-ID is required")
		return domain.Claimant{}, false
	}
	return who, true
}
