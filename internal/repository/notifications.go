package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// CreateNotification persists a new unread notification.
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	return r.executeWithRetry(ctx, "repository.create_notification", n.UserID, func() error {
		return r.db.WithContext(ctx).Create(n).Error
	})
}

// ListNotifications returns a user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	var out []Notification
	err := r.executeWithRetry(ctx, "repository.list_notifications", userID, func() error {
		q := r.db.WithContext(ctx).Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetNotificationRead toggles the read flag of a notification owned by userID.
func (r *Repository) SetNotificationRead(ctx context.Context, userID, id string, read bool) (*Notification, error) {
	var n Notification
	err := r.executeWithRetry(ctx, "repository.set_notification_read", id, func() error {
		res := r.db.WithContext(ctx).Model(&Notification{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_read", read)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.KindNotificationNotFound, id)
		}
		return r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}
