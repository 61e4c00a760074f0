package insights

import (
	"context"
	"time"
)

// PopulationRecord is one synthetic person for the population charts
type PopulationRecord struct {
	Age              int     `json:"age"`
	BMI              float64 `json:"bmi"`
	Glucose          float64 `json:"glucose"`
	BloodPressure    float64 `json:"bloodPressure"`
	PhysicalActivity float64 `json:"physicalActivity"` // hours per week
	HasDiabetes      bool    `json:"hasDiabetes"`
}

// Confusion is a confusion matrix with derived rates at one threshold
type Confusion struct {
	TruePositive  int     `json:"truePositive"`
	FalsePositive int     `json:"falsePositive"`
	TrueNegative  int     `json:"trueNegative"`
	FalseNegative int     `json:"falseNegative"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1Score       float64 `json:"f1Score"`
}

// ROCPoint is one point of a ROC curve
type ROCPoint struct {
	Threshold float64 `json:"threshold"`
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
}

// Metrics sources
const (
	SourceSynthetic  = "synthetic"
	SourceEvaluation = "evaluation"
)

// Performance is the /model-metrics payload
type Performance struct {
	Threshold float64    `json:"threshold"`
	Confusion Confusion  `json:"confusion"`
	ROC       []ROCPoint `json:"roc"`
	AUC       float64    `json:"auc"`
	Source    string     `json:"source"`
	Samples   int        `json:"samples"`
}

// MetricsCache stores computed evaluation metrics per threshold
type MetricsCache interface {
	Get(ctx context.Context, threshold float64) (*Performance, error)
	Set(ctx context.Context, threshold float64, p *Performance, ttl time.Duration) error
}

// LabelStats aggregates served predictions with one label
type LabelStats struct {
	Label        string  `json:"label"`
	Count        uint64  `json:"count"`
	AvgRiskScore float64 `json:"avgRiskScore"`
}

// PredictionStats is the /prediction-stats payload
type PredictionStats struct {
	Window string       `json:"window"`
	Since  time.Time    `json:"since"`
	Total  uint64       `json:"total"`
	Labels []LabelStats `json:"labels"`
}
