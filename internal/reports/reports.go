// Package reports manages the lifecycle of litter reports.
package reports

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/storage"
)

// Store is the persistence the report service needs.
type Store interface {
	CreateReport(ctx context.Context, report *repository.Report) error
	GetReport(ctx context.Context, id string) (*repository.Report, error)
	ListReports(ctx context.Context, filter repository.ReportFilter) ([]repository.Report, error)
	AssignCollector(ctx context.Context, id, collectorID string) (bool, error)
	TransitionReport(ctx context.Context, id string, from []repository.ReportStatus, to repository.ReportStatus) (bool, error)
	CreateNotification(ctx context.Context, n *repository.Notification) error
}

// SubmitInput describes a new report.
type SubmitInput struct {
	UserID    string
	Location  string
	Latitude  *float64
	Longitude *float64
	TrashType string
	Quantity  string
	Image     *imagecodec.Image
}

// Service implements report operations.
type Service struct {
	store  Store
	photos storage.Store
	logger *zap.Logger
}

// NewService constructs a report service.
func NewService(store Store, photos storage.Store, logger *zap.Logger) *Service {
	return &Service{store: store, photos: photos, logger: logger.Named("reports")}
}

// Submit stores the photo and creates a pending report.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*repository.Report, error) {
	if in.Image == nil || len(in.Image.Data) == 0 {
		return nil, apperror.New(apperror.KindNoImage, "report photo is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, apperror.New(apperror.KindValidation, "location is required")
	}
	if strings.TrimSpace(in.TrashType) == "" || strings.TrimSpace(in.Quantity) == "" {
		return nil, apperror.New(apperror.KindValidation, "trash type and quantity are required")
	}

	opLogger := logging.WithOperation(s.logger, "reports.submit", in.UserID)

	url, err := s.photos.Put(ctx, "reports", in.Image)
	if err != nil {
		opLogger.Error("failed to store report photo", zap.Error(err))
		return nil, err
	}

	report := &repository.Report{
		UserID:    in.UserID,
		Location:  strings.TrimSpace(in.Location),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		TrashType: strings.TrimSpace(in.TrashType),
		Quantity:  strings.TrimSpace(in.Quantity),
		Status:    repository.ReportPending,
		ImageURL:  url,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		opLogger.Error("failed to create report", zap.Error(err))
		return nil, err
	}

	s.notify(ctx, opLogger, in.UserID, fmt.Sprintf("ส่งรายงานขยะที่ %s เรียบร้อยแล้ว", report.Location))
	opLogger.Info("report submitted", zap.String("report_id", report.ID))
	return report, nil
}

// StartCollecting assigns collectorID to a pending report.
func (s *Service) StartCollecting(ctx context.Context, reportID, collectorID string) (*repository.Report, error) {
	opLogger := logging.WithOperation(s.logger, "reports.start_collecting", reportID)

	ok, err := s.store.AssignCollector(ctx, reportID, collectorID)
	if err != nil {
		return nil, err
	}
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if report.CollectorID != nil {
			return nil, apperror.New(apperror.KindAlreadyAssigned, reportID)
		}
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("%s: %s -> %s", reportID, report.Status, repository.ReportInProgress))
	}

	if report.UserID != collectorID {
		s.notify(ctx, opLogger, report.UserID, fmt.Sprintf("มีผู้เริ่มเก็บขยะที่ %s แล้ว", report.Location))
	}
	opLogger.Info("collection started", zap.String("collector_id", collectorID))
	return report, nil
}

// Complete marks an in-progress report as completed by its collector.
func (s *Service) Complete(ctx context.Context, reportID, collectorID string) (*repository.Report, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.CollectorID == nil || *report.CollectorID != collectorID {
		return nil, apperror.New(apperror.KindForbidden, "only the assigned collector may complete a report")
	}
	return s.transition(ctx, reportID, repository.ReportCompleted)
}

// MarkVerified advances an in-progress or completed report to verified.
func (s *Service) MarkVerified(ctx context.Context, reportID string) (*repository.Report, error) {
	return s.transition(ctx, reportID, repository.ReportVerified)
}

// Get loads a report.
func (s *Service) Get(ctx context.Context, id string) (*repository.Report, error) {
	return s.store.GetReport(ctx, id)
}

// Photo loads the photo stored with report.
func (s *Service) Photo(ctx context.Context, report *repository.Report) (*imagecodec.Image, error) {
	if report == nil || report.ImageURL == "" {
		return nil, apperror.New(apperror.KindNoImage, "report has no stored photo")
	}
	img, err := s.photos.Get(ctx, report.ImageURL)
	if err != nil {
		s.logger.Warn("failed to load report photo", zap.String("report_id", report.ID), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindNoImage, "report photo unavailable", err)
	}
	return img, nil
}

// List returns reports matching filter.
func (s *Service) List(ctx context.Context, filter repository.ReportFilter) ([]repository.Report, error) {
	if filter.Status != "" {
		if _, ok := allowedTransitions[filter.Status]; !ok {
			return nil, apperror.New(apperror.KindValidation, "unknown status "+string(filter.Status))
		}
	}
	return s.store.ListReports(ctx, filter)
}

func (s *Service) transition(ctx context.Context, reportID string, to repository.ReportStatus) (*repository.Report, error) {
	ok, err := s.store.TransitionReport(ctx, reportID, sourcesOf(to), to)
	if err != nil {
		return nil, err
	}
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("%s: %s -> %s", reportID, report.Status, to))
	}
	s.logger.Info("report transitioned", zap.String("report_id", reportID), zap.String("status", string(to)))
	return report, nil
}

func (s *Service) notify(ctx context.Context, opLogger *zap.Logger, userID, message string) {
	n := &repository.Notification{UserID: userID, Message: message, Type: repository.NotificationReport}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		opLogger.Error("failed to record notification", zap.Error(err))
	}
}
