package prediction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/events"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/internal/ml"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
	"diabetes-risk/pkg/requestid"
)

// Pipeline stages, used as error and metric labels
const (
	StageDecode    = "decode"
	StageNormalize = "normalize"
	StageScore     = "score"
)

// StageError tags a pipeline failure with the stage that produced it
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

// Unwrap returns the stage's error
func (e *StageError) Unwrap() error {
	return e.Err
}

// EventPublisher is the subset of events.Publisher used by the service
type EventPublisher interface {
	PublishPredictionScored(ctx context.Context, event *events.PredictionScoredEvent) error
	PublishPredictionFailed(ctx context.Context, event *events.PredictionFailedEvent) error
}

// Scored is one served prediction
type Scored struct {
	Result       prediction.Result
	Calibrated   bool
	Measurements *patient.Measurements
	Features     patient.FeatureVector
}

// Options holds the optional side channels. Nil fields are skipped.
type Options struct {
	Journal prediction.Journal
	Events  EventPublisher
	Tracker errors.Tracker
}

// Service runs the decode, normalize, score and format pipeline
type Service struct {
	scorer  ml.Scorer
	journal prediction.Journal
	events  EventPublisher
	tracker errors.Tracker
	log     *logger.Logger
}

// NewService creates a new prediction service around an immutable scorer
func NewService(scorer ml.Scorer, opts Options, log *logger.Logger) *Service {
	return &Service{
		scorer:  scorer,
		journal: opts.Journal,
		events:  opts.Events,
		tracker: opts.Tracker,
		log:     log.With("service", "prediction"),
	}
}

// Predict scores a raw request body. Errors are *StageError; ErrNoInput means
// nothing was scored. Journal and event failures are logged and never
// returned.
func (s *Service) Predict(ctx context.Context, body []byte) (*Scored, error) {
	in, err := patient.DecodeInput(body)
	if err != nil {
		return nil, s.fail(ctx, StageDecode, err)
	}
	s.breadcrumb(ctx, "payload decoded", map[string]interface{}{"fields": len(in)})

	return s.score(ctx, in)
}

func (s *Service) score(ctx context.Context, in patient.Input) (*Scored, error) {
	m, err := patient.Normalize(in)
	if err != nil {
		return nil, s.fail(ctx, StageNormalize, err)
	}
	vec := m.ToFeatureVector()
	s.breadcrumb(ctx, "features normalized", map[string]interface{}{"features": vec.Named()})

	start := time.Now()
	outcome, err := s.scorer.Score(vec)
	latency := time.Since(start)
	if err != nil {
		return nil, s.fail(ctx, StageScore, err)
	}

	result := prediction.Format(outcome.Class, outcome.Probability)
	kind := s.scorer.Kind().String()

	metrics.RecordPrediction(result.Label.String(), kind, result.RiskScore, latency)
	s.log.Debugw("Prediction served",
		"request_id", requestid.FromContext(ctx),
		"label", result.Label,
		"risk_score", result.RiskScore,
		"scorer", kind,
		"took", latency,
	)

	scored := &Scored{Result: result, Calibrated: outcome.Calibrated, Measurements: m, Features: vec}
	s.journalAppend(ctx, scored, kind)
	s.publishScored(ctx, scored, kind)

	return scored, nil
}

// fail records a stage failure. ErrNoInput is a client error and is not
// reported to the tracker.
func (s *Service) fail(ctx context.Context, stage string, err error) error {
	metrics.RecordPredictionFailure(stage)
	reqID := requestid.FromContext(ctx)

	if errors.Is(err, errors.ErrNoInput) {
		s.log.Debugw("Prediction rejected: no input", "request_id", reqID)
		return &StageError{Stage: stage, Err: err}
	}

	s.log.Errorw("Prediction failed",
		"request_id", reqID,
		"stage", stage,
		"error", err,
	)
	if s.tracker != nil {
		_ = s.tracker.CaptureError(ctx, err, map[string]string{
			"stage":  stage,
			"scorer": s.scorer.Kind().String(),
		})
	}
	if s.events != nil && stage != StageDecode {
		ev := &events.PredictionFailedEvent{
			BaseEvent: events.NewBaseEvent(events.TypePredictionFailed, reqID),
			Stage:     stage,
		}
		if perr := s.events.PublishPredictionFailed(ctx, ev); perr != nil {
			s.log.Warnw("Failed to publish prediction failure", "error", perr)
		}
	}

	return &StageError{Stage: stage, Err: err}
}

func (s *Service) breadcrumb(ctx context.Context, message string, data map[string]interface{}) {
	if s.tracker == nil {
		return
	}
	s.tracker.AddBreadcrumb(ctx, message, "prediction", errors.LevelInfo, data)
}

func (s *Service) journalAppend(ctx context.Context, scored *Scored, kind string) {
	if s.journal == nil {
		return
	}
	rec := &prediction.Record{
		ID:          uuid.New(),
		RequestID:   requestid.FromContext(ctx),
		ScoredAt:    time.Now().UTC(),
		Features:    scored.Features.Slice(),
		Label:       scored.Result.Label.String(),
		RiskScore:   scored.Result.RiskScore,
		Probability: scored.Result.Probability,
		Scorer:      kind,
		Calibrated:  scored.Calibrated,
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		s.log.Warnw("Prediction not journaled", "error", err)
	}
}

func (s *Service) publishScored(ctx context.Context, scored *Scored, kind string) {
	if s.events == nil {
		return
	}
	ev := &events.PredictionScoredEvent{
		BaseEvent:   events.NewBaseEvent(events.TypePredictionScored, requestid.FromContext(ctx)),
		Features:    scored.Features.Named(),
		Label:       scored.Result.Label.String(),
		RiskScore:   scored.Result.RiskScore,
		Probability: scored.Result.Probability,
		Scorer:      kind,
		Calibrated:  scored.Calibrated,
	}
	if err := s.events.PublishPredictionScored(ctx, ev); err != nil {
		s.log.Warnw("Prediction event not published", "error", err)
	}
}

// Kind reports the scorer variant in use
func (s *Service) Kind() ml.Kind {
	return s.scorer.Kind()
}
