package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	id "ingestgate/pkg/domain"
)

// EventType discriminates the payload schema.
type EventType string

const (
	EventUserProfileUpdate  EventType = "user_profile_update"
	EventEventDetailsUpdate EventType = "event_details_update"
	EventSalesTransaction   EventType = "sales_transaction"
	EventUserEngagement     EventType = "user_engagement"
	EventEventAttendance    EventType = "event_attendance"
)

// EventTypes lists every accepted event type in declaration order.
var EventTypes = []EventType{
	EventUserProfileUpdate,
	EventEventDetailsUpdate,
	EventSalesTransaction,
	EventUserEngagement,
	EventEventAttendance,
}

func (t EventType) IsValid() bool {
	switch t {
	case EventUserProfileUpdate, EventEventDetailsUpdate, EventSalesTransaction,
		EventUserEngagement, EventEventAttendance:
		return true
	default:
		return false
	}
}

func (t EventType) String() string {
	return string(t)
}

// Payload is one validated event body. Implementations are the five
// variant structs below.
type Payload interface {
	EventType() EventType
}

type UserProfileUpdate struct {
	UserID           string         `json:"userId"`
	Email            string         `json:"email,omitempty"`
	FirstName        string         `json:"firstName,omitempty"`
	LastName         string         `json:"lastName,omitempty"`
	Role             string         `json:"role,omitempty"`
	Company          string         `json:"company,omitempty"`
	LastSeenAt       *Timestamp     `json:"lastSeenAt,omitempty"`
	CustomAttributes map[string]any `json:"customAttributes,omitempty"`
}

type EventDetailsUpdate struct {
	EventID   string    `json:"eventId"`
	EventName string    `json:"eventName"`
	StartAt   Timestamp `json:"startAt"`
	EndAt     Timestamp `json:"endAt"`
	Location  string    `json:"location,omitempty"`
	Category  string    `json:"category,omitempty"`
	Capacity  *int      `json:"capacity,omitempty"`
}

type SalesTransaction struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	ProductID     string    `json:"productId"`
	Currency      string    `json:"currency"`
	Value         float64   `json:"value"`
	Quantity      float64   `json:"quantity"`
	TransactionAt Timestamp `json:"transactionAt"`
	EventID       string    `json:"eventId,omitempty"`
}

type UserEngagement struct {
	UserID         string         `json:"userId"`
	EngagementType string         `json:"engagementType"`
	EngagementAt   Timestamp      `json:"engagementAt"`
	ResourceID     string         `json:"resourceId,omitempty"`
	EventID        string         `json:"eventId,omitempty"`
	Duration       *float64       `json:"duration,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type EventAttendance struct {
	EventID              string         `json:"eventId"`
	ActualAttendees      float64        `json:"actualAttendees"`
	RegisteredAttendees  float64        `json:"registeredAttendees"`
	RecordedAt           Timestamp      `json:"recordedAt"`
	AttendanceRate       *float64       `json:"attendanceRate,omitempty"`
	DemographicBreakdown map[string]any `json:"demographicBreakdown,omitempty"`
}

func (UserProfileUpdate) EventType() EventType  { return EventUserProfileUpdate }
func (EventDetailsUpdate) EventType() EventType { return EventEventDetailsUpdate }
func (SalesTransaction) EventType() EventType   { return EventSalesTransaction }
func (UserEngagement) EventType() EventType     { return EventUserEngagement }
func (EventAttendance) EventType() EventType    { return EventEventAttendance }

// NewPayload returns an empty payload for t, or nil for an unknown type.
func NewPayload(t EventType) Payload {
	switch t {
	case EventUserProfileUpdate:
		return &UserProfileUpdate{}
	case EventEventDetailsUpdate:
		return &EventDetailsUpdate{}
	case EventSalesTransaction:
		return &SalesTransaction{}
	case EventUserEngagement:
		return &UserEngagement{}
	case EventEventAttendance:
		return &EventAttendance{}
	default:
		return nil
	}
}

// DecodePayload rebuilds a typed payload from stored JSON.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	p := NewPayload(t)
	if p == nil {
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// Event is an accepted ingestion. Created once, never updated.
type Event struct {
	ID        id.EventID
	PartnerID id.PartnerID
	EventType EventType
	Payload   Payload
	CreatedAt time.Time
}
