package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/testsupport"
	"diabetes-risk/pkg/logger"
)

func newRecord(label prediction.Label, score float64) *prediction.Record {
	return &prediction.Record{
		ID:          uuid.New(),
		RequestID:   uuid.NewString(),
		ScoredAt:    time.Now().UTC(),
		Features:    []float64{2, 200, 70, 30, 80, 55, 0.5, 45},
		Label:       label.String(),
		RiskScore:   score,
		Probability: score / 100,
		Scorer:      "probabilistic",
		Calibrated:  true,
	}
}

func TestPredictionJournal_AppendAndCount(t *testing.T) {
	helper := testsupport.NewTestClickHouse(t)
	table := helper.UniqueTableName(t, "prediction_journal_test")
	ctx := context.Background()

	journal := NewPredictionJournal(helper.Client().Conn(), JournalConfig{
		Table:         table,
		BatchSize:     10,
		FlushInterval: time.Hour,
	}, logger.NewNop())
	require.NoError(t, journal.EnsureSchema(ctx))

	journal.Start(ctx)
	require.NoError(t, journal.Append(ctx, newRecord(prediction.LabelHighRisk, 80)))
	require.NoError(t, journal.Append(ctx, newRecord(prediction.LabelHighRisk, 90)))
	require.NoError(t, journal.Append(ctx, newRecord(prediction.LabelLowRisk, 10)))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, journal.Stop(stopCtx))
	assert.Equal(t, uint64(3), journal.Stats().Flushed)

	counts, err := journal.CountByLabel(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, "High Risk", counts[0].Label)
	assert.Equal(t, uint64(2), counts[0].Count)
	assert.InDelta(t, 85, counts[0].AvgRiskScore, 1e-9)
	assert.Equal(t, "Low Risk", counts[1].Label)
	assert.Equal(t, uint64(1), counts[1].Count)
}
