package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/aiclient"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/extractor"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/verification"
)

// VerificationResult is the outcome returned to clients.
type VerificationResult struct {
	RequestID string               `json:"request_id"`
	Status    string               `json:"status"`
	Result    *extractor.Result    `json:"result,omitempty"`
	Accepted  bool                 `json:"accepted"`
	Guidance  []extractor.BinGuide `json:"guidance,omitempty"`
	Report    *repository.Report   `json:"report,omitempty"`
	Collector *repository.User     `json:"collector,omitempty"`
	LatencyMs int64                `json:"latency_ms"`
}

type cachedVerification struct {
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	ReportID  string    `json:"report_id,omitempty"`
	Mode      string    `json:"mode"`
	Score     float32   `json:"score"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	Hash      string    `json:"sha1_hash"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateReport represents duplicate verification entries for a request.
type DuplicateReport struct {
	Request    *repository.VerificationLog
	Duplicates []*repository.VerificationLog
}

type verifyRequest struct {
	userID   string
	reportID string
	mode     extractor.Mode
	prompt   string
	before   *imagecodec.Image
	image    *imagecodec.Image
	opts     []verification.Option
}

// AnalyzeReportPhoto identifies the trash in a reporter's photo.
func (uc *UseCase) AnalyzeReportPhoto(ctx context.Context, userID string, img *imagecodec.Image) (*VerificationResult, error) {
	res, err := uc.verify(ctx, verifyRequest{
		userID: userID,
		mode:   extractor.ModeReport,
		prompt: aiclient.ReportPrompt(),
		image:  img,
	})
	if res != nil && res.Result != nil {
		res.Accepted = res.Result.Confidence > verification.ConfidenceThreshold
		res.Guidance = extractor.Guidance(res.Result.TrashType)
	}
	return res, err
}

// VerifyCollection checks a collection photo against the report and, when
// it matches, verifies the report and rewards the collector.
func (uc *UseCase) VerifyCollection(ctx context.Context, collectorID, reportID string, img *imagecodec.Image) (*VerificationResult, error) {
	report, err := uc.collectableReport(ctx, collectorID, reportID)
	if err != nil {
		return nil, err
	}
	return uc.verify(ctx, verifyRequest{
		userID:   collectorID,
		reportID: reportID,
		mode:     extractor.ModeCollect,
		prompt:   aiclient.CollectPrompt(report.TrashType, report.Quantity),
		image:    img,
		opts:     []verification.Option{verification.WithConfirmation(reportID, collectorID, verification.CollectMatchPolicy)},
	})
}

// VerifyCleanup compares before and after photos of a report location. When
// before is nil the photo stored with the report is loaded instead.
func (uc *UseCase) VerifyCleanup(ctx context.Context, collectorID, reportID string, before, after *imagecodec.Image) (*VerificationResult, error) {
	report, err := uc.collectableReport(ctx, collectorID, reportID)
	if err != nil {
		return nil, err
	}
	if before == nil {
		if before, err = uc.reports.Photo(ctx, report); err != nil {
			return nil, err
		}
	}
	return uc.verify(ctx, verifyRequest{
		userID:   collectorID,
		reportID: reportID,
		mode:     extractor.ModeCompare,
		prompt:   aiclient.ComparePrompt(),
		before:   before,
		image:    after,
		opts:     []verification.Option{verification.WithConfirmation(reportID, collectorID, verification.CleanupPolicy)},
	})
}

func (uc *UseCase) collectableReport(ctx context.Context, collectorID, reportID string) (*repository.Report, error) {
	report, err := uc.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.CollectorID == nil || *report.CollectorID != collectorID {
		return nil, apperror.New(apperror.KindForbidden, "report is not assigned to this collector")
	}
	if report.Status != repository.ReportInProgress && report.Status != repository.ReportCompleted {
		return nil, apperror.New(apperror.KindInvalidTransition,
			fmt.Sprintf("%s: %s cannot be verified", reportID, report.Status))
	}
	return report, nil
}

// verify runs one verification session and records its log. A result is
// returned whenever the model produced one, even if err is set.
func (uc *UseCase) verify(ctx context.Context, req verifyRequest) (*VerificationResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.verify."+string(req.mode), requestID)

	session := verification.New(verification.Config{
		Generator: uc.generator,
		Mode:      req.mode,
		Prompt:    req.prompt,
		Reports:   uc.reports,
		Rewards:   uc.ledger,
		Logger:    opLogger,
	}, req.opts...)

	var selectErr error
	if req.mode == extractor.ModeCompare {
		selectErr = session.SelectPair(req.before, req.image)
	} else {
		selectErr = session.Select(req.image)
	}
	if selectErr != nil {
		return nil, selectErr
	}

	cacheKey := verificationKey(requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, processingMarker, time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return nil, err
	}

	runCtx := ctx
	if uc.aiTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, uc.aiTimeout)
		defer cancel()
	}
	outcome, runErr := session.Start(runCtx)

	log := uc.buildLog(requestID, req, session, outcome, runErr)
	if err := uc.logs.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist verification log", zap.Error(wrapped))
		if runErr == nil {
			runErr = wrapped
		}
	} else {
		uc.cacheLog(ctx, opLogger, log)
	}

	if outcome == nil {
		return nil, runErr
	}

	return &VerificationResult{
		RequestID: requestID,
		Status:    session.Status().String(),
		Result:    outcome.Result,
		Accepted:  outcome.Accepted,
		Report:    outcome.Report,
		Collector: outcome.Collector,
		LatencyMs: outcome.Latency.Milliseconds(),
	}, runErr
}

func (uc *UseCase) buildLog(requestID string, req verifyRequest, session *verification.Session, outcome *verification.Outcome, runErr error) *repository.VerificationLog {
	hash := sha1.Sum(req.image.Data)
	log := &repository.VerificationLog{
		RequestID: requestID,
		UserID:    req.userID,
		ReportID:  req.reportID,
		Mode:      string(req.mode),
		CreatedAt: uc.now().UTC(),
		SHA1Hash:  hex.EncodeToString(hash[:]),
	}

	if outcome == nil {
		log.Details = fmt.Sprintf("status:%s kind:%s", session.Status(), apperror.KindOf(runErr))
		return log
	}

	log.Score = float32(outcome.Result.Confidence)
	log.LatencyMs = outcome.Latency.Milliseconds()
	log.Success = outcome.Accepted
	if req.mode == extractor.ModeReport {
		log.Success = outcome.Result.Confidence > verification.ConfidenceThreshold
	}
	if encoded, err := json.Marshal(outcome.Result); err == nil {
		log.Details = string(encoded)
	}
	return log
}

func (uc *UseCase) cacheLog(ctx context.Context, opLogger *zap.Logger, log *repository.VerificationLog) {
	serialized, err := json.Marshal(cachedVerification{
		RequestID: log.RequestID,
		UserID:    log.UserID,
		ReportID:  log.ReportID,
		Mode:      log.Mode,
		Score:     log.Score,
		Success:   log.Success,
		Details:   log.Details,
		Hash:      log.SHA1Hash,
		LatencyMs: log.LatencyMs,
		CreatedAt: log.CreatedAt,
	})
	if err != nil {
		opLogger.Error("failed to serialize verification result", zap.Error(err))
		return
	}
	if err := uc.withRedisRetry(ctx, log.RequestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, verificationKey(log.RequestID), string(serialized), uc.resultTTL)
	}); err != nil {
		opLogger.Warn("failed to cache verification result", zap.Error(err))
	}
}

// GetResult retrieves a cached verification outcome or loads from persistence.
func (uc *UseCase) GetResult(ctx context.Context, userID, requestID string) (*repository.VerificationLog, error) {
	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", verificationKey(requestID))
	switch {
	case err == nil && cached != processingMarker:
		var payload cachedVerification
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			opLogger.Warn("failed to decode cached result", zap.Error(err))
			break
		}
		if payload.UserID != userID {
			break
		}
		return &repository.VerificationLog{
			RequestID: payload.RequestID,
			UserID:    payload.UserID,
			ReportID:  payload.ReportID,
			Mode:      payload.Mode,
			Score:     payload.Score,
			Success:   payload.Success,
			Details:   payload.Details,
			SHA1Hash:  payload.Hash,
			LatencyMs: payload.LatencyMs,
			CreatedAt: payload.CreatedAt,
		}, nil
	case err != nil && !errors.Is(err, redis.Nil):
		opLogger.Warn("failed to read cache", zap.Error(err))
	}

	return uc.logs.FindByRequestIDAndUser(ctx, requestID, userID)
}

// GetDuplicateReport lists the user's other verifications of the same photo.
func (uc *UseCase) GetDuplicateReport(ctx context.Context, userID, requestID string) (*DuplicateReport, error) {
	log, err := uc.logs.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.logs.FindDuplicatesByHash(ctx, userID, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{
		Request:    log,
		Duplicates: duplicates,
	}, nil
}
