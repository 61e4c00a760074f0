package insights

import (
	"context"
	"time"

	"diabetes-risk/internal/domain/evaluation"
	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/ml"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// DefaultThreshold is used when /model-metrics is called without one
const DefaultThreshold = 0.5

// Config controls the synthetic generators and metrics caching
type Config struct {
	PopulationSize int
	Seed           int64 // 0 draws a fresh seed per call
	CacheTTL       time.Duration
}

// Service serves the population charts and model performance metrics
type Service struct {
	cfg    Config
	scorer ml.Scorer
	source evaluation.Source     // nil: synthetic metrics
	cache  insights.MetricsCache // nil: no caching
	log    *logger.Logger

	journal prediction.JournalReader // nil: no prediction stats
	now     func() time.Time
}

// NewService creates a new insights service. source and cache may be nil.
func NewService(cfg Config, scorer ml.Scorer, source evaluation.Source, cache insights.MetricsCache, log *logger.Logger) *Service {
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = 500
	}
	return &Service{
		cfg:    cfg,
		scorer: scorer,
		source: source,
		cache:  cache,
		log:    log.With("service", "insights"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Population returns a synthetic population for the charts
func (s *Service) Population(ctx context.Context) []insights.PopulationRecord {
	return GeneratePopulation(newRand(s.cfg.Seed), s.cfg.PopulationSize)
}

// MetricsSource reports which kind of metrics ModelMetrics serves
func (s *Service) MetricsSource() string {
	if s.source != nil {
		return insights.SourceEvaluation
	}
	return insights.SourceSynthetic
}

// ModelMetrics returns the confusion matrix at threshold plus the ROC curve
// and its AUC. With an evaluation source every sample is scored through the
// live scorer; otherwise the figures are simulated.
func (s *Service) ModelMetrics(ctx context.Context, threshold float64) (*insights.Performance, error) {
	threshold, err := ClampThreshold(threshold)
	if err != nil {
		return nil, err
	}

	if s.source == nil {
		return s.syntheticMetrics(threshold), nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, threshold)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			s.log.Warnw("Metrics cache read failed", "error", err)
		}
	}

	perf, err := s.Evaluate(ctx, threshold)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, threshold, perf, s.cfg.CacheTTL); err != nil {
			s.log.Warnw("Metrics cache write failed", "error", err)
		}
	}
	return perf, nil
}

func (s *Service) syntheticMetrics(threshold float64) *insights.Performance {
	roc := SyntheticROC(newRand(s.cfg.Seed))
	return &insights.Performance{
		Threshold: threshold,
		Confusion: SyntheticConfusion(threshold),
		ROC:       roc,
		AUC:       AUC(roc),
		Source:    insights.SourceSynthetic,
		Samples:   syntheticPositives + syntheticNegatives,
	}
}

// Evaluate scores the whole evaluation set, uncached
func (s *Service) Evaluate(ctx context.Context, threshold float64) (*insights.Performance, error) {
	if s.source == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "no evaluation set configured")
	}

	start := time.Now()
	samples, err := s.source.Samples(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load evaluation samples from %s", s.source.Name())
	}
	if len(samples) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "evaluation set %s is empty", s.source.Name())
	}

	scored := make([]ScoredSample, 0, len(samples))
	for i := range samples {
		outcome, err := s.scorer.Score(samples[i].Vector())
		if err != nil {
			return nil, errors.Wrapf(err, "score evaluation sample %d", i)
		}
		scored = append(scored, ScoredSample{
			Class:       outcome.Class,
			Probability: outcome.Probability,
			Outcome:     samples[i].Outcome,
		})
	}

	roc, err := EvaluationROC(scored)
	if err != nil {
		return nil, err
	}

	perf := &insights.Performance{
		Threshold: threshold,
		Confusion: EvaluationConfusion(scored, threshold),
		ROC:       roc,
		AUC:       AUC(roc),
		Source:    insights.SourceEvaluation,
		Samples:   len(scored),
	}

	s.log.Infow("Evaluation set scored",
		"source", s.source.Name(),
		"samples", len(scored),
		"auc", perf.AUC,
		"took", time.Since(start),
	)
	return perf, nil
}
