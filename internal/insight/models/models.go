package models

import (
	"time"

	id "ingestgate/pkg/domain"
)

// Insight is the derived prediction for exactly one ingestion event.
type Insight struct {
	ID              id.InsightID
	EventID         id.EventID
	PartnerID       id.PartnerID
	ModelName       string
	Prediction      string
	ConfidenceScore float64
	CreatedAt       time.Time
}

// Prediction is a predictor's output for one event type.
type Prediction struct {
	Label      string
	Confidence float64
}

// ModelName is the model identifier recorded for eventType.
func ModelName(eventType string) string {
	return eventType + "-model"
}
