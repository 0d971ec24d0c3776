package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// ListRewards returns the active reward catalog, cheapest first.
func (r *Repository) ListRewards(ctx context.Context) ([]Reward, error) {
	var rewards []Reward
	err := r.executeWithRetry(ctx, "repository.list_rewards", "", func() error {
		return r.db.WithContext(ctx).Where("active = ?", true).Order("cost ASC").Find(&rewards).Error
	})
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

// GetReward loads an active reward by id.
func (r *Repository) GetReward(ctx context.Context, id string) (*Reward, error) {
	var reward Reward
	err := r.executeWithRetry(ctx, "repository.get_reward", id, func() error {
		err := r.db.WithContext(ctx).First(&reward, "id = ? AND active = ?", id, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Wrap(apperror.KindRewardNotFound, id, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// SeedRewards inserts catalog entries whose ids do not exist yet.
func (r *Repository) SeedRewards(ctx context.Context, rewards []Reward) error {
	if len(rewards) == 0 {
		return nil
	}
	return r.executeWithRetry(ctx, "repository.seed_rewards", "", func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rewards).Error
	})
}

// RedeemReward debits the reward cost and records the redemption in one
// transaction. The debit is conditional on the balance covering the cost,
// and the transaction is not replayed on error.
func (r *Repository) RedeemReward(ctx context.Context, userID string, reward *Reward) (*User, *Redemption, error) {
	var (
		user       User
		redemption *Redemption
	)
	err := r.executeOnce(ctx, "repository.redeem_reward", userID, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := r.decrementPoints(ctx, tx, userID, reward.Cost, &user); err != nil {
				return err
			}
			redemption = &Redemption{
				ID:        uuid.NewString(),
				UserID:    userID,
				RewardID:  reward.ID,
				Points:    reward.Cost,
				CreatedAt: r.now(),
			}
			return tx.Create(redemption).Error
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, redemption, nil
}

// DefaultRewards is the catalog seeded on a fresh database.
func DefaultRewards() []Reward {
	return []Reward{
		{ID: "eco-bag", Name: "ถุงผ้ารักษ์โลก", Description: "ถุงผ้าสำหรับใช้แทนถุงพลาสติก", Cost: 100, Active: true},
		{ID: "tumbler", Name: "แก้วน้ำพกพา", Description: "แก้วเก็บความเย็นลดการใช้แก้วพลาสติก", Cost: 250, Active: true},
		{ID: "tree-planting", Name: "ปลูกต้นไม้ 1 ต้น", Description: "ร่วมปลูกต้นไม้ในนามของคุณ", Cost: 500, Active: true},
		{ID: "cafe-voucher", Name: "คูปองส่วนลดร้านกาแฟ", Description: "ส่วนลด 50 บาทที่ร้านค้าที่ร่วมรายการ", Cost: 300, Active: true},
	}
}
