// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation and structured access logging
// for the specials API:
//
//   - RequestID() gives every request a stable correlation ID
//     (X-Request-ID header, "requestID" context key), so a failed claim
//     can be traced from the client's error envelope to the server log.
//   - Logger() emits one structured access line per request and attaches
//     a request-scoped zerolog.Logger under the "logger" context key;
//     handlers and services enrich it with domain fields, e.g.
//     lg.Warn().Str("special_id", id).Msg("view event dropped").
//   - Recovery() converts panics into the standard JSON 500 envelope
//     while keeping the correlation ID.
//
// Compose RequestID first, then a logger, then Recovery, so panics and
// errors carry the correlation ID. Query strings are clipped before
// logging to keep pathological search queries from bloating log lines.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shtetl/go-specials-backend/internal/sysutil"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader propagates the correlation ID to and from clients.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps logged query-string bytes; search requests
	// carry free text in `q` and get clipped past this.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
//
// An incoming X-Request-ID is reused; otherwise a new UUIDv4 is
// generated. The ID is echoed on the response header and stored in the
// Gin context under "requestID". Mount this first so everything
// downstream (logs, error envelopes) can rely on it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log line per request and stores a
// request-scoped zerolog.Logger in the Gin context (key "logger").
//
// Logged fields cover method, route, remote IP, user agent, the
// claimant identity when upstream auth populated the context, clipped
// query string, sizes, status, and latency. Level follows outcome:
// error for 5xx or collected Gin errors, warn for 4xx (claim
// rejections land here), info otherwise.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			// Unmatched route (404): fall back to the raw path.
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", ctxString(rid)).
			Str("claimant", claimantForLog(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", clip(c.Request.URL.RawQuery, maxQueryLogLength)).
			// ContentLength is -1 when unknown.
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		// Make it available to handlers/services.
		c.Set("logger", &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics, logs a stack trace, and returns the
// standard JSON 500 envelope with the correlation ID intact. If the
// handler already started writing, only the status is forced.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", ctxString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, ctxString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": ctxString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or a plain
// fallback when no logging middleware ran. Callers never need a nil
// check.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// claimantForLog reports the request's claimant identity for log
// correlation: the user ID when authenticated, the guest session
// otherwise, empty for anonymous catalogue browsing. Context only —
// identity headers are left to the redacting logger's scrubbing rules.
func claimantForLog(c *gin.Context) string {
	uid, _ := c.Get("userID")
	gid, _ := c.Get("guestSessionID")
	return sysutil.FirstNonEmpty(ctxString(uid), ctxString(gid))
}

// ctxString narrows an arbitrary context value to a string, returning
// "" for absent or non-string values.
func ctxString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// clip bounds s to max bytes, appending an ellipsis when truncated.
// max <= 0 disables clipping. Byte-oriented on purpose: log budgets,
// not display.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
