package kafka

// Default topics; config overrides them per deployment.
const (
	TopicPredictionScored = "predictions.scored"
	TopicPredictionFailed = "predictions.failed"
)
