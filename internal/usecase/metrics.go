package usecase

import "context"

// MetricsSummary represents aggregated verification insights.
type MetricsSummary struct {
	TotalRequests              int64   `json:"total_requests"`
	AcceptedRequests           int64   `json:"accepted_requests"`
	AcceptanceRate             float64 `json:"acceptance_rate"`
	AverageConfidence          float64 `json:"average_confidence"`
	AverageProcessingLatencyMs float64 `json:"average_processing_latency_ms"`
}

// GetMetricsSummary aggregates verification metrics from persisted logs.
func (uc *UseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.logs.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:              aggregation.TotalCount,
		AcceptedRequests:           aggregation.SuccessCount,
		AverageConfidence:          aggregation.AverageScore,
		AverageProcessingLatencyMs: aggregation.AverageProcessingLatencyMs,
	}

	if aggregation.TotalCount > 0 {
		summary.AcceptanceRate = float64(aggregation.SuccessCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
