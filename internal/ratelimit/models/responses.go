package models

import "time"

// RateLimitExceededResponse is the 429 body. Error keeps the shared error
// envelope shape; the remaining fields are the budget hint.
type RateLimitExceededResponse struct {
	Error      string      `json:"error"`
	Limiter    LimiterKind `json:"limiter"`
	Limit      int         `json:"limit"`
	Remaining  int         `json:"remaining"`
	ResetAt    time.Time   `json:"resetAt"`
	RetryAfter int         `json:"retryAfter"`
}

// ResetRateLimitResponse reports which counters an admin reset cleared.
type ResetRateLimitResponse struct {
	Type       LimiterKind     `json:"type"`
	Identifier string          `json:"identifier"`
	Classes    []EndpointClass `json:"classes"`
}
