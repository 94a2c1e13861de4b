package models

import (
	"strings"

	dErrors "ingestgate/pkg/domain-errors"
)

// ResetRateLimitRequest clears the current window for one limiter subject.
// Identifier is an IP address for "ip" and a partner id for "credential".
type ResetRateLimitRequest struct {
	Type       LimiterKind   `json:"type"`
	Identifier string        `json:"identifier"`
	Class      EndpointClass `json:"class,omitempty"` // empty resets every class
}

func (r *ResetRateLimitRequest) Normalize() {
	if r == nil {
		return
	}
	r.Type = LimiterKind(strings.TrimSpace(strings.ToLower(string(r.Type))))
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.Class = EndpointClass(strings.TrimSpace(strings.ToLower(string(r.Class))))
}

// Validate follows the order: Size -> Required -> Syntax.
func (r *ResetRateLimitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Identifier) > 255 {
		return dErrors.Validation("identifier must be 255 characters or less", nil,
			map[string][]string{"identifier": {"Must be 255 characters or less"}})
	}

	fields := map[string][]string{}
	if r.Type == "" {
		fields["type"] = []string{"Required"}
	}
	if r.Identifier == "" {
		fields["identifier"] = []string{"Required"}
	}
	if len(fields) > 0 {
		return dErrors.Validation("invalid reset request", nil, fields)
	}

	if !r.Type.IsValid() {
		return dErrors.Validation("invalid reset request", nil,
			map[string][]string{"type": {"Must be 'ip' or 'credential'"}})
	}
	if r.Class != "" && !r.Class.IsValid() {
		return dErrors.Validation("invalid reset request", nil,
			map[string][]string{"class": {"Must be 'ingest', 'read', or 'admin'"}})
	}
	return nil
}

// Classes returns the classes a reset applies to.
func (r *ResetRateLimitRequest) Classes() []EndpointClass {
	if r.Class != "" {
		return []EndpointClass{r.Class}
	}
	return []EndpointClass{ClassIngest, ClassRead, ClassAdmin}
}
