// Package handlers implements the public specials API: browsing and
// searching active specials, claiming a special, and cancelling a
// claim.
//
// This file holds the shared response helpers. Every failure, from a
// malformed special ID to a sold-out rejection, uses the same
// ErrorResponse envelope with a stable machine-readable code, so
// storefront clients can branch on `code` without parsing messages:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "sold_out",
//	  "message": "no claims remaining for this special"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shtetl/go-specials-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint.
// RequestID echoes X-Request-ID so a client error can be matched to
// server logs; Code is one of the errors.go constants and is the only
// field clients should branch on.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"sold_out"`
	Message   string `json:"message" example:"no claims remaining for this special"`
}

// fail aborts the request with an ErrorResponse. Claim rejections
// (4xx) are expected traffic and stay out of the error log; only 5xx
// is logged, with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail exposes fail to the router for its NoRoute/NoMethod and
// rate-limit responses, keeping every error on the wire in the same
// envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent is the cancel endpoint's success shape.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
