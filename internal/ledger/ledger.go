package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

// Reward for a verified collection.
const (
	CollectionPoints = 50
	CollectionScore  = 20
)

// Store is the persistence the ledger needs. Every balance change is a
// single atomic statement in the store.
type Store interface {
	IncrementBalance(ctx context.Context, userID string, points, score int) (*repository.User, error)
	DecrementPoints(ctx context.Context, userID string, points int) (*repository.User, error)
	GetReward(ctx context.Context, id string) (*repository.Reward, error)
	RedeemReward(ctx context.Context, userID string, reward *repository.Reward) (*repository.User, *repository.Redemption, error)
	CreateNotification(ctx context.Context, n *repository.Notification) error
}

// Ledger applies point and score changes to user accounts.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// New constructs a ledger.
func New(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger.Named("ledger")}
}

// Credit increments points and score and notifies the user. Deltas may be
// negative; the ledger does not check the resulting balance.
func (l *Ledger) Credit(ctx context.Context, userID string, points, score int, message string) (*repository.User, error) {
	opLogger := logging.WithOperation(l.logger, "ledger.credit", userID)

	user, err := l.store.IncrementBalance(ctx, userID, points, score)
	if err != nil {
		opLogger.Warn("credit failed", zap.Int("points", points), zap.Int("score", score), zap.Error(err))
		return nil, err
	}

	if message == "" {
		message = balanceMessage(points, score)
	}
	l.notify(ctx, opLogger, userID, message, repository.NotificationReward)

	opLogger.Info("credited",
		zap.Int("points", points),
		zap.Int("score", score),
		zap.Int("balance", user.Point))
	return user, nil
}

// Debit subtracts points only if the balance covers them.
func (l *Ledger) Debit(ctx context.Context, userID string, points int, message string) (*repository.User, error) {
	if points < 0 {
		return nil, apperror.New(apperror.KindValidation, "debit amount must not be negative")
	}
	opLogger := logging.WithOperation(l.logger, "ledger.debit", userID)

	user, err := l.store.DecrementPoints(ctx, userID, points)
	if err != nil {
		opLogger.Warn("debit failed", zap.Int("points", points), zap.Error(err))
		return nil, err
	}
	if message != "" {
		l.notify(ctx, opLogger, userID, message, repository.NotificationRedeem)
	}
	opLogger.Info("debited", zap.Int("points", points), zap.Int("balance", user.Point))
	return user, nil
}

// Redeem spends the cost of a catalog reward.
func (l *Ledger) Redeem(ctx context.Context, userID, rewardID string) (*repository.User, *repository.Redemption, error) {
	opLogger := logging.WithOperation(l.logger, "ledger.redeem", userID)

	reward, err := l.store.GetReward(ctx, rewardID)
	if err != nil {
		return nil, nil, err
	}

	user, redemption, err := l.store.RedeemReward(ctx, userID, reward)
	if err != nil {
		opLogger.Warn("redeem failed", zap.String("reward_id", rewardID), zap.Error(err))
		return nil, nil, err
	}

	l.notify(ctx, opLogger, userID,
		fmt.Sprintf("แลกของรางวัล %s สำเร็จ ใช้ %d คะแนน", reward.Name, reward.Cost),
		repository.NotificationRedeem)
	opLogger.Info("redeemed", zap.String("reward_id", rewardID), zap.Int("balance", user.Point))
	return user, redemption, nil
}

// CreditCollection grants the fixed reward for a verified collection.
func (l *Ledger) CreditCollection(ctx context.Context, userID, reportID string) (*repository.User, error) {
	l.logger.Debug("crediting collection", zap.String("user_id", userID), zap.String("report_id", reportID))
	return l.Credit(ctx, userID, CollectionPoints, CollectionScore,
		fmt.Sprintf("เก็บขยะสำเร็จ ได้รับ %d คะแนน และ %d แต้มสะสม", CollectionPoints, CollectionScore))
}

// A notification failure does not undo the balance change, which is
// already committed.
func (l *Ledger) notify(ctx context.Context, opLogger *zap.Logger, userID, message, kind string) {
	n := &repository.Notification{UserID: userID, Message: message, Type: kind}
	if err := l.store.CreateNotification(ctx, n); err != nil {
		opLogger.Error("failed to record notification", zap.String("type", kind), zap.Error(err))
	}
}

// balanceMessage describes a balance change, worded by the sign of each delta.
func balanceMessage(points, score int) string {
	var parts []string
	if p := delta(points, "คะแนน"); p != "" {
		parts = append(parts, p)
	}
	if p := delta(score, "แต้มสะสม"); p != "" {
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "ยอดคะแนนของคุณไม่มีการเปลี่ยนแปลง"
	}
	return "คุณ" + strings.Join(parts, " และ")
}

func delta(n int, unit string) string {
	switch {
	case n > 0:
		return fmt.Sprintf("ได้รับ %d %s", n, unit)
	case n < 0:
		return fmt.Sprintf("ถูกหัก %d %s", -n, unit)
	default:
		return ""
	}
}
