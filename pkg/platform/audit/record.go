package audit

import (
	"time"

	"github.com/google/uuid"
)

// Record is the serialized form of a SecurityEvent used by streaming and
// archive sinks.
type Record struct {
	ID          string `json:"id"`
	OccurredAt  string `json:"occurredAt"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	PartnerID   string `json:"partnerId,omitempty"`
	IP          string `json:"ip"`
	UserAgent   string `json:"userAgent,omitempty"`
	ClientClass string `json:"clientClass,omitempty"`
	Bot         bool   `json:"bot"`
	Detail      string `json:"detail,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
}

func (e SecurityEvent) Record() Record {
	return Record{
		ID:          e.ID.String(),
		OccurredAt:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:        string(e.Kind),
		Severity:    string(e.Severity),
		PartnerID:   e.PartnerID,
		IP:          e.IP,
		UserAgent:   e.UserAgent,
		ClientClass: e.ClientClass,
		Bot:         e.Bot,
		Detail:      e.Detail,
		RequestID:   e.RequestID,
	}
}

// Event converts a decoded record back to a SecurityEvent. Unparseable ids
// and timestamps become zero values.
func (r Record) Event() SecurityEvent {
	id, _ := uuid.Parse(r.ID)
	ts, _ := time.Parse(time.RFC3339Nano, r.OccurredAt)
	return SecurityEvent{
		ID:          id,
		Timestamp:   ts,
		Kind:        Kind(r.Kind),
		Severity:    Severity(r.Severity),
		PartnerID:   r.PartnerID,
		IP:          r.IP,
		UserAgent:   r.UserAgent,
		ClientClass: r.ClientClass,
		Bot:         r.Bot,
		Detail:      r.Detail,
		RequestID:   r.RequestID,
	}
}
