package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"diabetes-risk/internal/domain/evaluation"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
)

// Compile-time check
var _ evaluation.Source = (*EvaluationRepository)(nil)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// EvaluationRepository reads and writes the held-out evaluation set
type EvaluationRepository struct {
	db    DBTX
	table string
}

// NewEvaluationRepository creates a new evaluation repository on table
func NewEvaluationRepository(db DBTX, table string) (*EvaluationRepository, error) {
	if !tableName.MatchString(table) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "invalid evaluation table name %q", table)
	}
	return &EvaluationRepository{db: db, table: table}, nil
}

// Name implements evaluation.Source
func (r *EvaluationRepository) Name() string {
	return "postgres:" + r.table
}

// EnsureSchema creates the evaluation table when missing
func (r *EvaluationRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id             BIGSERIAL PRIMARY KEY,
			pregnancies    DOUBLE PRECISION NOT NULL,
			glucose        DOUBLE PRECISION NOT NULL,
			blood_pressure DOUBLE PRECISION NOT NULL,
			skin_thickness DOUBLE PRECISION NOT NULL,
			insulin        DOUBLE PRECISION NOT NULL,
			bmi            DOUBLE PRECISION NOT NULL,
			dpf            DOUBLE PRECISION NOT NULL,
			age            DOUBLE PRECISION NOT NULL,
			outcome        SMALLINT NOT NULL CHECK (outcome IN (0, 1)),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.table)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "failed to create evaluation table")
	}
	return nil
}

// Samples implements evaluation.Source
func (r *EvaluationRepository) Samples(ctx context.Context) ([]evaluation.Sample, error) {
	var samples []evaluation.Sample

	query := fmt.Sprintf(`
		SELECT pregnancies, glucose, blood_pressure, skin_thickness,
		       insulin, bmi, dpf, age, outcome
		FROM %s
		ORDER BY id`, r.table)

	start := time.Now()
	err := r.db.SelectContext(ctx, &samples, query)
	metrics.RecordDBQuery("postgres", "evaluation_samples", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load evaluation samples")
	}

	return samples, nil
}

// Insert appends samples to the evaluation table
func (r *EvaluationRepository) Insert(ctx context.Context, samples []evaluation.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			pregnancies, glucose, blood_pressure, skin_thickness,
			insulin, bmi, dpf, age, outcome
		) VALUES (
			:pregnancies, :glucose, :blood_pressure, :skin_thickness,
			:insulin, :bmi, :dpf, :age, :outcome
		)`, r.table)

	start := time.Now()
	_, err := r.db.NamedExecContext(ctx, query, samples)
	metrics.RecordDBQuery("postgres", "evaluation_insert", time.Since(start), err)
	if err != nil {
		return errors.Wrap(err, "failed to insert evaluation samples")
	}
	return nil
}
