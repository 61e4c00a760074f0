package insights

import (
	"context"
	"time"

	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/pkg/errors"
)

// DefaultStatsWindow is used when /prediction-stats is called without one
const DefaultStatsWindow = 24 * time.Hour

// WithJournal enables PredictionStats over journaled predictions
func (s *Service) WithJournal(r prediction.JournalReader) *Service {
	s.journal = r
	return s
}

// PredictionStats counts served predictions per label over the trailing
// window. It returns ErrNotFound when no journal is configured.
func (s *Service) PredictionStats(ctx context.Context, window time.Duration) (*insights.PredictionStats, error) {
	if window <= 0 {
		return nil, errors.NewValidationError("window", "must be positive", window.String())
	}
	if s.journal == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "prediction journal not configured")
	}

	since := s.now().Add(-window)
	counts, err := s.journal.CountByLabel(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "count journaled predictions")
	}

	stats := &insights.PredictionStats{
		Window: window.String(),
		Since:  since,
		Labels: make([]insights.LabelStats, 0, len(counts)),
	}
	for _, c := range counts {
		stats.Total += c.Count
		stats.Labels = append(stats.Labels, insights.LabelStats{
			Label:        c.Label,
			Count:        c.Count,
			AvgRiskScore: prediction.Round(c.AvgRiskScore, 2),
		})
	}
	return stats, nil
}
