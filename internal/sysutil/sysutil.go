// Package sysutil holds small process-level helpers shared by the config
// layer and the HTTP middleware: log-level wiring and lenient string
// parsing for environment values.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string.
// Unknown or empty values fall back to info, so a typo in LOG_LEVEL
// never silences the process.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	parsed, err := zerolog.ParseLevel(s)
	if err != nil || parsed < zerolog.DebugLevel || parsed > zerolog.PanicLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// IsTruthy reports whether an environment value means "enabled":
// 1, true, yes, y, on (case-insensitive, surrounding space ignored).
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// IsFalsy reports whether an environment value means "disabled":
// 0, false, no, n, off. A value that is neither truthy nor falsy is
// both IsTruthy==false and IsFalsy==false, letting callers keep their
// default.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank, preserving
// its original spacing. Used to pick whichever claimant identity a
// request carried.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
