package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/aiclient"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/reports"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

// VerificationRepository defines the persistence operations needed for verification logs.
type VerificationRepository interface {
	SaveLog(ctx context.Context, log *repository.VerificationLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.VerificationLog, error)
	FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*repository.VerificationLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// AccountRepository defines the user, catalog and notification reads.
type AccountRepository interface {
	EnsureUser(ctx context.Context, user *repository.User) (*repository.User, error)
	GetUser(ctx context.Context, userID string) (*repository.User, error)
	TopUsers(ctx context.Context, limit int) ([]repository.User, error)
	ListRewards(ctx context.Context) ([]repository.Reward, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]repository.Notification, error)
	SetNotificationRead(ctx context.Context, userID, id string, read bool) (*repository.Notification, error)
}

// ReportService is the report lifecycle used by the use case.
type ReportService interface {
	Submit(ctx context.Context, in reports.SubmitInput) (*repository.Report, error)
	StartCollecting(ctx context.Context, reportID, collectorID string) (*repository.Report, error)
	Complete(ctx context.Context, reportID, collectorID string) (*repository.Report, error)
	MarkVerified(ctx context.Context, reportID string) (*repository.Report, error)
	Get(ctx context.Context, id string) (*repository.Report, error)
	Photo(ctx context.Context, report *repository.Report) (*imagecodec.Image, error)
	List(ctx context.Context, filter repository.ReportFilter) ([]repository.Report, error)
}

// Ledger applies balance changes.
type Ledger interface {
	CreditCollection(ctx context.Context, userID, reportID string) (*repository.User, error)
	Redeem(ctx context.Context, userID, rewardID string) (*repository.User, *repository.Redemption, error)
}

// Dependencies wires a UseCase.
type Dependencies struct {
	Logs      VerificationRepository
	Accounts  AccountRepository
	Reports   ReportService
	Ledger    Ledger
	Cache     Cache
	Generator aiclient.Generator
	Logger    *zap.Logger
	// AITimeout bounds a single model call. Zero means no extra bound.
	AITimeout time.Duration
	// ResultTTL is how long finished results stay cached.
	ResultTTL time.Duration
}

// UseCase encapsulates the business flows behind the HTTP surface.
type UseCase struct {
	logs      VerificationRepository
	accounts  AccountRepository
	reports   ReportService
	ledger    Ledger
	cache     Cache
	generator aiclient.Generator
	logger    *zap.Logger

	aiTimeout      time.Duration
	resultTTL      time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
}

// New constructs a use case instance.
func New(deps Dependencies) *UseCase {
	cache := deps.Cache
	if cache == nil {
		cache = NopCache{}
	}
	ttl := deps.ResultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UseCase{
		logs:           deps.Logs,
		accounts:       deps.Accounts,
		reports:        deps.Reports,
		ledger:         deps.Ledger,
		cache:          cache,
		generator:      deps.Generator,
		logger:         deps.Logger.Named("usecase"),
		aiTimeout:      deps.AITimeout,
		resultTTL:      ttl,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		now:            time.Now,
	}
}

func (uc *UseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewRetriedError(operation, requestID, attempt, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !repository.IsTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewRetriedError(operation, requestID, attempt+1, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewRetriedError(operation, requestID, uc.retryAttempts, err)
}

func (uc *UseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
