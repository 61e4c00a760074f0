package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	TypePredictionScored = "prediction.scored"
	TypePredictionFailed = "prediction.failed"
)

const (
	eventSource  = "diabetes-risk-api"
	eventVersion = "1.0"
)

// BaseEvent carries the envelope shared by every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	RequestID string    `json:"request_id,omitempty"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType, requestID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		RequestID: requestID,
	}
}

// PredictionScoredEvent is emitted after a successful prediction. It carries
// the clamped feature vector only; the API never receives identifying data.
type PredictionScoredEvent struct {
	BaseEvent
	Features    map[string]float64 `json:"features"`
	Label       string             `json:"label"`
	RiskScore   float64            `json:"risk_score"`
	Probability float64            `json:"probability"`
	Scorer      string             `json:"scorer"`
	Calibrated  bool               `json:"calibrated"`
}

// PredictionFailedEvent is emitted when the pipeline fails after input was accepted
type PredictionFailedEvent struct {
	BaseEvent
	Stage string `json:"stage"`
}
