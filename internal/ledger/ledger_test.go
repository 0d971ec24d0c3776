package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/ledger"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository/repotest"
)

func newLedger(t *testing.T) (*ledger.Ledger, *repository.Repository) {
	t.Helper()
	repo := repotest.New(t)
	return ledger.New(repo, zap.NewNop()), repo
}

func TestCreditAndDebitCompose(t *testing.T) {
	l, repo := newLedger(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 0, 0)

	var wg sync.WaitGroup
	for _, points := range []int{10, 5} {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, err := l.Credit(ctx, "u-1", p, 0, "")
			assert.NoError(t, err)
		}(points)
	}
	wg.Wait()

	user, err := l.Debit(ctx, "u-1", 3, "")
	require.NoError(t, err)
	assert.Equal(t, 12, user.Point)
}

func TestCreditCollectionNotifies(t *testing.T) {
	l, repo := newLedger(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "collector", 5, 1)

	user, err := l.CreditCollection(ctx, "collector", "report-1")
	require.NoError(t, err)
	assert.Equal(t, 5+ledger.CollectionPoints, user.Point)
	assert.Equal(t, 1+ledger.CollectionScore, user.Score)

	notes, err := repo.ListNotifications(ctx, "collector", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, repository.NotificationReward, notes[0].Type)
	assert.False(t, notes[0].IsRead)
}

func TestCreditUnknownUser(t *testing.T) {
	l, repo := newLedger(t)

	_, err := l.Credit(context.Background(), "ghost", 10, 1, "")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	notes, err := repo.ListNotifications(context.Background(), "ghost", false, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	l, repo := newLedger(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 4, 0)

	_, err := l.Debit(ctx, "u-1", 5, "")
	assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)

	_, err = l.Debit(ctx, "u-1", -1, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	user, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 4, user.Point)
}

func TestRedeem(t *testing.T) {
	l, repo := newLedger(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 120, 0)
	require.NoError(t, repo.SeedRewards(ctx, []repository.Reward{
		{ID: "cup", Name: "Reusable cup", Cost: 100, Active: true},
	}))

	user, redemption, err := l.Redeem(ctx, "u-1", "cup")
	require.NoError(t, err)
	assert.Equal(t, 20, user.Point)
	assert.Equal(t, "cup", redemption.RewardID)

	notes, err := repo.ListNotifications(ctx, "u-1", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, repository.NotificationRedeem, notes[0].Type)

	_, _, err = l.Redeem(ctx, "u-1", "cup")
	assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)

	_, _, err = l.Redeem(ctx, "u-1", "missing")
	assert.ErrorIs(t, err, apperror.ErrRewardNotFound)
}

func TestCreditMessageFollowsSign(t *testing.T) {
	cases := []struct {
		points, score int
		want          string
	}{
		{10, 2, "คุณได้รับ 10 คะแนน และได้รับ 2 แต้มสะสม"},
		{-3, 0, "คุณถูกหัก 3 คะแนน"},
		{-5, -1, "คุณถูกหัก 5 คะแนน และถูกหัก 1 แต้มสะสม"},
		{0, 0, "ยอดคะแนนของคุณไม่มีการเปลี่ยนแปลง"},
	}
	for _, tc := range cases {
		l, repo := newLedger(t)
		ctx := context.Background()
		repotest.SeedUser(t, repo, "u-1", 10, 2)

		_, err := l.Credit(ctx, "u-1", tc.points, tc.score, "")
		require.NoError(t, err)

		notes, err := repo.ListNotifications(ctx, "u-1", false, 10, 0)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, tc.want, notes[0].Message, "%d/%d", tc.points, tc.score)
	}
}
