package service

import "ingestgate/internal/insight/models"

// Predictor maps an event type to a prediction. Implementations must be
// deterministic and side-effect free.
type Predictor interface {
	Predict(eventType string) models.Prediction
}

// NoPrediction is returned for event types the table does not know.
var NoPrediction = models.Prediction{Label: "No prediction available", Confidence: 0}

// TablePredictor is the rule-based placeholder model.
type TablePredictor map[string]models.Prediction

// DefaultTable is the fixed prediction per event type.
func DefaultTable() TablePredictor {
	return TablePredictor{
		"user_profile_update":  {Label: "High-Value Lead", Confidence: 0.92},
		"event_details_update": {Label: "Expected Attendance: 85%", Confidence: 0.85},
		"sales_transaction":    {Label: "Upsell Opportunity", Confidence: 0.78},
		"user_engagement":      {Label: "Highly Engaged User", Confidence: 0.89},
		"event_attendance":     {Label: "Attendance Above Average", Confidence: 0.72},
	}
}

func (t TablePredictor) Predict(eventType string) models.Prediction {
	if p, ok := t[eventType]; ok {
		return p
	}
	return NoPrediction
}
