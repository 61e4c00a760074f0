package prediction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one journaled prediction. Features are the clamped model inputs;
// no identifying data exists anywhere in the pipeline.
type Record struct {
	ID          uuid.UUID `ch:"id"`
	RequestID   string    `ch:"request_id"`
	ScoredAt    time.Time `ch:"scored_at"`
	Features    []float64 `ch:"features"`
	Label       string    `ch:"label"`
	RiskScore   float64   `ch:"risk_score"`
	Probability float64   `ch:"probability"`
	Scorer      string    `ch:"scorer"`
	Calibrated  bool      `ch:"calibrated"`
}

// Journal persists served predictions. Append must not block on I/O.
type Journal interface {
	Append(ctx context.Context, r *Record) error
}

// LabelCount is a per-label aggregate over journaled predictions
type LabelCount struct {
	Label        string  `ch:"label"`
	Count        uint64  `ch:"count"`
	AvgRiskScore float64 `ch:"avg_risk_score"`
}

// JournalReader queries journaled predictions
type JournalReader interface {
	CountByLabel(ctx context.Context, since time.Time) ([]LabelCount, error)
}
