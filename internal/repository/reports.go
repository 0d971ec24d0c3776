package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// ReportFilter narrows ListReports. Zero values match everything.
type ReportFilter struct {
	Status      ReportStatus
	UserID      string
	CollectorID string
	Limit       int
	Offset      int
}

// CreateReport persists a new report.
func (r *Repository) CreateReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	return r.executeWithRetry(ctx, "repository.create_report", report.ID, func() error {
		return r.db.WithContext(ctx).Create(report).Error
	})
}

// GetReport loads a report by id.
func (r *Repository) GetReport(ctx context.Context, id string) (*Report, error) {
	var report Report
	err := r.executeWithRetry(ctx, "repository.get_report", id, func() error {
		err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Wrap(apperror.KindReportNotFound, id, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns reports matching filter, newest first.
func (r *Repository) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	var reports []Report
	err := r.executeWithRetry(ctx, "repository.list_reports", "", func() error {
		q := r.db.WithContext(ctx).Model(&Report{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.CollectorID != "" {
			q = q.Where("collector_id = ?", filter.CollectorID)
		}
		limit := filter.Limit
		if limit <= 0 {
			limit = 50
		}
		return q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&reports).Error
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// AssignCollector moves a pending, unassigned report to in_progress and
// records its collector. It reports false when no row matched.
func (r *Repository) AssignCollector(ctx context.Context, id, collectorID string) (bool, error) {
	var affected int64
	err := r.executeOnce(ctx, "repository.assign_collector", id, func() error {
		res := r.db.WithContext(ctx).Model(&Report{}).
			Where("id = ? AND status = ? AND collector_id IS NULL", id, ReportPending).
			Updates(map[string]interface{}{
				"status":       ReportInProgress,
				"collector_id": collectorID,
				"updated_at":   r.now(),
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// TransitionReport sets status to when the current status is one of from.
// It reports false when no row matched.
func (r *Repository) TransitionReport(ctx context.Context, id string, from []ReportStatus, to ReportStatus) (bool, error) {
	var affected int64
	err := r.executeOnce(ctx, "repository.transition_report", id, func() error {
		updates := map[string]interface{}{
			"status":     to,
			"updated_at": r.now(),
		}
		if to == ReportVerified {
			updates["verified_at"] = r.now()
		}
		res := r.db.WithContext(ctx).Model(&Report{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
