package models

import "time"

// IngestResponse is the 201 body. InsightID is null when derivation failed
// after the event was stored.
type IngestResponse struct {
	Success   bool    `json:"success"`
	EventID   string  `json:"eventId"`
	InsightID *string `json:"insightId"`
}

// EventResponse is returned by the event read-back endpoint.
type EventResponse struct {
	ID        string           `json:"id"`
	PartnerID string           `json:"partnerId"`
	EventType EventType        `json:"eventType"`
	Payload   Payload          `json:"payload"`
	CreatedAt time.Time        `json:"createdAt"`
	Insight   *InsightResponse `json:"insight"`
}

type InsightResponse struct {
	ID              string    `json:"id"`
	ModelName       string    `json:"modelName"`
	Prediction      string    `json:"prediction"`
	ConfidenceScore float64   `json:"confidenceScore"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Result is what the service hands back to the transport after an ingest.
type Result struct {
	Event     *Event
	InsightID *string
}

// ToResponse builds the 201 body.
func (r *Result) ToResponse() *IngestResponse {
	return &IngestResponse{
		Success:   true,
		EventID:   r.Event.ID.String(),
		InsightID: r.InsightID,
	}
}
