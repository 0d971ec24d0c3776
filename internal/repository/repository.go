package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
)

// Repository provides persistence APIs backed by gorm.
type Repository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
}

// NewRepository creates a new repository instance.
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:             db,
		logger:         logger.Named("repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// AutoMigrate ensures the schema is available.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&User{},
		&Notification{},
		&Report{},
		&Reward{},
		&Redemption{},
		&VerificationLog{},
	)
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	attempts := r.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewRetriedError(operation, requestID, attempt, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !IsTransientError(err) || attempt == attempts-1 {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			}
			return logging.NewRetriedError(operation, requestID, attempt+1, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewRetriedError(operation, requestID, attempts, err)
}

// executeOnce runs a write that must not be replayed, such as a balance
// delta. A timeout may arrive after the statement committed, so errors are
// returned to the caller instead of retried.
func (r *Repository) executeOnce(ctx context.Context, operation, requestID string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case IsTransientError(err):
		opLogger.Warn("write outcome unknown, not retrying", zap.Error(err))
	default:
		opLogger.Error("database operation failed", zap.Error(err))
	}
	return logging.NewRetriedError(operation, requestID, 1, err)
}

// IsTransientError reports whether err is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
