package usecase

import (
	"context"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/auth"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

const maxPageSize = 100

// Me returns the caller's account, creating it on first use.
func (uc *UseCase) Me(ctx context.Context, session auth.Session) (*repository.User, error) {
	return uc.accounts.EnsureUser(ctx, &repository.User{
		ID:    session.UserID,
		Email: session.Email,
		Name:  session.Name,
	})
}

// Leaderboard returns the highest scoring users.
func (uc *UseCase) Leaderboard(ctx context.Context, limit int) ([]repository.User, error) {
	return uc.accounts.TopUsers(ctx, clampLimit(limit, 10))
}

// Rewards lists the active catalog.
func (uc *UseCase) Rewards(ctx context.Context) ([]repository.Reward, error) {
	return uc.accounts.ListRewards(ctx)
}

// Redeem spends the caller's points on a reward.
func (uc *UseCase) Redeem(ctx context.Context, userID, rewardID string) (*repository.User, *repository.Redemption, error) {
	return uc.ledger.Redeem(ctx, userID, rewardID)
}

// Notifications lists the caller's notifications, newest first.
func (uc *UseCase) Notifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]repository.Notification, error) {
	if offset < 0 {
		offset = 0
	}
	return uc.accounts.ListNotifications(ctx, userID, unreadOnly, clampLimit(limit, 20), offset)
}

// SetNotificationRead toggles the read flag of one of the caller's notifications.
func (uc *UseCase) SetNotificationRead(ctx context.Context, userID, id string, read bool) (*repository.Notification, error) {
	return uc.accounts.SetNotificationRead(ctx, userID, id, read)
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
