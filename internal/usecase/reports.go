package usecase

import (
	"context"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/auth"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/reports"
)

// SubmitReport creates the caller's account if needed and files a report.
func (uc *UseCase) SubmitReport(ctx context.Context, session auth.Session, in reports.SubmitInput) (*repository.Report, error) {
	if _, err := uc.Me(ctx, session); err != nil {
		return nil, err
	}
	in.UserID = session.UserID
	return uc.reports.Submit(ctx, in)
}

// StartCollecting assigns the caller as collector of a pending report.
func (uc *UseCase) StartCollecting(ctx context.Context, session auth.Session, reportID string) (*repository.Report, error) {
	if _, err := uc.Me(ctx, session); err != nil {
		return nil, err
	}
	return uc.reports.StartCollecting(ctx, reportID, session.UserID)
}

// CompleteReport marks the caller's in-progress report as completed.
func (uc *UseCase) CompleteReport(ctx context.Context, collectorID, reportID string) (*repository.Report, error) {
	return uc.reports.Complete(ctx, reportID, collectorID)
}

// GetReport loads one report.
func (uc *UseCase) GetReport(ctx context.Context, id string) (*repository.Report, error) {
	return uc.reports.Get(ctx, id)
}

// ListReports lists reports matching filter.
func (uc *UseCase) ListReports(ctx context.Context, filter repository.ReportFilter) ([]repository.Report, error) {
	return uc.reports.List(ctx, filter)
}
