package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// MetricsAggregation holds raw aggregates over verification logs.
type MetricsAggregation struct {
	TotalCount                 int64
	SuccessCount               int64
	AverageScore               float64
	AverageProcessingLatencyMs float64
}

// SaveLog persists a verification log entry.
func (r *Repository) SaveLog(ctx context.Context, log *VerificationLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestIDAndUser retrieves a verification log matching the request and owner.
func (r *Repository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*VerificationLog, error) {
	var log VerificationLog
	err := r.executeWithRetry(ctx, "repository.find_log", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ? AND user_id = ?", requestID, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindDuplicatesByHash lists a user's other verifications of the same image.
func (r *Repository) FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*VerificationLog, error) {
	var logs []*VerificationLog
	err := r.executeWithRetry(ctx, "repository.find_duplicates", excludeRequestID, func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND sha1_hash = ? AND request_id <> ?", userID, hash, excludeRequestID).
			Order("created_at DESC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AggregateMetrics computes totals and averages over all verification logs.
func (r *Repository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var row struct {
		TotalCount   int64
		SuccessCount int64
		AvgScore     *float64
		AvgLatency   *float64
	}
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).Model(&VerificationLog{}).
			Select("COUNT(*) AS total_count, " +
				"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count, " +
				"AVG(score) AS avg_score, AVG(latency_ms) AS avg_latency").
			Scan(&row).Error
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agg := &MetricsAggregation{TotalCount: row.TotalCount, SuccessCount: row.SuccessCount}
	if row.AvgScore != nil {
		agg.AverageScore = *row.AvgScore
	}
	if row.AvgLatency != nil {
		agg.AverageProcessingLatencyMs = *row.AvgLatency
	}
	return agg, nil
}
