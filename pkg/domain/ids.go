// Package domain holds identifier types shared across modules.
//
// Each identifier is a distinct named UUID type so a PartnerID can never be
// passed where an EventID is expected. Parse functions are the trust boundary
// for identifiers arriving from HTTP paths, headers and stored rows.
package domain

import (
	"github.com/google/uuid"

	dErrors "ingestgate/pkg/domain-errors"
)

type (
	PartnerID    uuid.UUID
	CredentialID uuid.UUID
	EventID      uuid.UUID
	InsightID    uuid.UUID
)

func (id PartnerID) String() string    { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string      { return uuid.UUID(id).String() }
func (id InsightID) String() string    { return uuid.UUID(id).String() }

func (id PartnerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id InsightID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewEventID returns a fresh random event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewInsightID returns a fresh random insight identifier.
func NewInsightID() InsightID { return InsightID(uuid.New()) }

func ParsePartnerID(s string) (PartnerID, error) {
	u, err := parseUUID(s, "partner_id")
	return PartnerID(u), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID(s, "credential_id")
	return CredentialID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event_id")
	return EventID(u), err
}

func ParseInsightID(s string) (InsightID, error) {
	u, err := parseUUID(s, "insight_id")
	return InsightID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
