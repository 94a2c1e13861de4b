package testutil

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IngestCase is one accepted ingest body: its eventType and payload JSON.
type IngestCase struct {
	EventType string
	Payload   string
}

// Body renders the full request body.
func (c IngestCase) Body() string {
	return `{"eventType":"` + c.EventType + `","payload":` + c.Payload + `}`
}

// RoundTripCases covers every event type with timestamps in fractional,
// offset and plain UTC forms. Each payload contains only schema fields, so
// a stored event must read back JSON-equal to it.
func RoundTripCases() []IngestCase {
	return []IngestCase{
		{
			EventType: "user_profile_update",
			Payload:   `{"userId":"u-1","email":"ada@example.com","firstName":"Ada","lastSeenAt":"2026-03-01T10:00:00.000Z","customAttributes":{"tier":"gold","seats":3}}`,
		},
		{
			EventType: "event_details_update",
			Payload:   `{"eventId":"e-1","eventName":"Launch","startAt":"2026-03-01T10:00:00+02:00","endAt":"2026-03-01T12:30:00.5+02:00","location":"Berlin","capacity":250}`,
		},
		{
			EventType: "sales_transaction",
			Payload:   `{"transactionId":"t-1","userId":"u-1","productId":"p-1","value":49.50,"currency":"EUR","quantity":2,"transactionAt":"2026-03-01T10:00:00.123456789Z","eventId":"e-1"}`,
		},
		{
			EventType: "user_engagement",
			Payload:   `{"userId":"u-1","engagementType":"click","engagementAt":"2026-03-01T10:00:00.000Z","resourceId":"r-9","duration":12.5,"metadata":{"page":"/pricing"}}`,
		},
		{
			EventType: "event_attendance",
			Payload:   `{"eventId":"e-1","actualAttendees":180,"registeredAttendees":200,"recordedAt":"2026-03-01T23:59:59-08:00","attendanceRate":0.9}`,
		},
	}
}

// AssertPayloadJSON marshals got and compares it with the submitted payload.
func AssertPayloadJSON(t *testing.T, want string, got any) {
	t.Helper()
	out, err := json.Marshal(got)
	require.NoError(t, err, "failed to marshal payload")
	assert.JSONEq(t, want, string(out))
}
