// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger used in front
// of the specials API. Requests here routinely carry identifying data —
// claimant identity headers on claim/cancel calls, free-text search
// queries that users paste emails or phone numbers into — so the logger
// scrubs before it emits:
//
//   - request and response bodies are never logged
//   - emails, phone numbers, and UUIDs are pattern-redacted from query
//     strings and header values (claim and special IDs are UUIDs, so
//     they redact too; use the request ID for correlation instead)
//   - secret-bearing headers (Authorization, Cookie, Set-Cookie, plus
//     any configured extras) are fully masked
//   - the claimant identity headers X-User-ID and X-Guest-Session-ID
//     are pseudonymized to a short prefix: enough to tell two claimants
//     apart in a log window, not enough to identify one
//
// Scrubbing reduces but does not eliminate leak risk; clients should
// still keep PII out of query strings where possible.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are fully replaced
// with "[REDACTED]". Matching is case-insensitive and merged with the
// built-in secret headers.
type RedactOptions struct {
	MaskHeaders []string
}

// claimantPrefixLen is how many leading characters of an identity
// header survive pseudonymization.
const claimantPrefixLen = 4

// RedactingLogger returns a Gin middleware that logs HTTP requests with
// sensitive values scrubbed per the package rules above. Level follows
// status: info by default, warn for 4xx (claim rejections), error for
// 5xx.
//
// UUIDs are redacted before phone numbers so the loose phone pattern
// cannot match the digit/hyphen runs inside an ID.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern, e.g. "+1 212-555-1212", "(212) 555-1212".
	phoneRE := regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

	scrub := func(s string) string {
		if s == "" {
			return s
		}
		out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		return phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	}

	// Secret headers: fully masked (case-insensitive).
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	// Identity headers: pseudonymized, not masked, so claim flows stay
	// traceable across a log window.
	identityHeaders := map[string]struct{}{
		"x-user-id":          {},
		"x-guest-session-id": {},
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := scrub(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			keyLower := strings.ToLower(k)
			val := strings.Join(vv, ", ")
			switch {
			case mapHas(maskHeaders, keyLower):
				safeHeaders[k] = "[REDACTED]"
			case mapHas(identityHeaders, keyLower):
				safeHeaders[k] = pseudonymize(val)
			default:
				safeHeaders[k] = scrub(val)
			}
		}

		c.Next()

		status := c.Writer.Status()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

// pseudonymize keeps a short identifying prefix of a claimant header
// value and drops the rest.
func pseudonymize(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= claimantPrefixLen {
		return strings.Repeat("*", len(v))
	}
	return v[:claimantPrefixLen] + "…"
}

func mapHas(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
