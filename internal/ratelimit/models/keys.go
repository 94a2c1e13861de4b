package models

import (
	"fmt"
	"strings"
)

const keyNamespace = "rl"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where caller-controlled identifiers
// containing ':' could address adjacent buckets.
//
// Example: an identifier "ip:admin" becomes "ip_admin".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewRateLimitKey builds the counter key for one limiter subject and class,
// e.g. "rl:ip:ingest:203.0.113.7". The store appends the window start.
func NewRateLimitKey(kind LimiterKind, identifier string, class EndpointClass) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyNamespace, kind, class, SanitizeKeySegment(identifier))
}

// WindowKey suffixes key with the window start in Unix milliseconds.
func WindowKey(key string, windowStartMillis int64) string {
	return fmt.Sprintf("%s:%d", key, windowStartMillis)
}
