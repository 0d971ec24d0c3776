package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// EnsureUser returns the user with user.ID, creating it from user when absent.
func (r *Repository) EnsureUser(ctx context.Context, user *User) (*User, error) {
	var out User
	err := r.executeWithRetry(ctx, "repository.ensure_user", user.ID, func() error {
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error; err != nil {
			return err
		}
		return r.db.WithContext(ctx).First(&out, "id = ?", user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser loads a user by id.
func (r *Repository) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := r.executeWithRetry(ctx, "repository.get_user", userID, func() error {
		err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Wrap(apperror.KindUserNotFound, userID, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementBalance adds points and score to a user in one UPDATE statement
// and returns the updated row. Deltas may be negative. The UPDATE is never
// retried.
func (r *Repository) IncrementBalance(ctx context.Context, userID string, points, score int) (*User, error) {
	err := r.executeOnce(ctx, "repository.increment_balance", userID, func() error {
		res := r.db.WithContext(ctx).Model(&User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"point":      gorm.Expr("point + ?", points),
				"score":      gorm.Expr("score + ?", score),
				"updated_at": r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.New(apperror.KindUserNotFound, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, userID)
}

// DecrementPoints subtracts points only when the balance covers them, in a
// single conditional UPDATE. The UPDATE is never retried.
func (r *Repository) DecrementPoints(ctx context.Context, userID string, points int) (*User, error) {
	var user User
	err := r.executeOnce(ctx, "repository.decrement_points", userID, func() error {
		return r.decrementPoints(ctx, r.db, userID, points, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) decrementPoints(ctx context.Context, db *gorm.DB, userID string, points int, out *User) error {
	res := db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND point >= ?", userID, points).
		Updates(map[string]interface{}{
			"point":      gorm.Expr("point - ?", points),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.New(apperror.KindUserNotFound, userID)
		}
		return apperror.New(apperror.KindInsufficientPoints, userID)
	}
	return db.WithContext(ctx).First(out, "id = ?", userID).Error
}

// TopUsers returns users ordered by score, highest first.
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]User, error) {
	var users []User
	err := r.executeWithRetry(ctx, "repository.top_users", "", func() error {
		return r.db.WithContext(ctx).Order("score DESC").Order("created_at ASC").Limit(limit).Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
