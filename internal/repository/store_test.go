package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/logging"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository/repotest"
)

func TestEnsureUserIsIdempotent(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()

	first, err := repo.EnsureUser(ctx, &repository.User{ID: "u-1", Name: "Somchai"})
	require.NoError(t, err)
	_, err = repo.IncrementBalance(ctx, "u-1", 10, 1)
	require.NoError(t, err)

	again, err := repo.EnsureUser(ctx, &repository.User{ID: "u-1", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, first.Name, again.Name)
	assert.Equal(t, 10, again.Point)
}

func TestIncrementBalanceUnknownUser(t *testing.T) {
	repo := repotest.New(t)

	_, err := repo.IncrementBalance(context.Background(), "missing", 5, 5)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestDecrementPointsGuardsBalance(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 30, 0)

	user, err := repo.DecrementPoints(ctx, "u-1", 20)
	require.NoError(t, err)
	assert.Equal(t, 10, user.Point)

	_, err = repo.DecrementPoints(ctx, "u-1", 20)
	assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)

	_, err = repo.DecrementPoints(ctx, "nobody", 1)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	reloaded, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.Point)
}

func TestAssignCollectorOnlyOnce(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()
	report := &repository.Report{UserID: "reporter", Status: repository.ReportPending, TrashType: "แก้ว"}
	require.NoError(t, repo.CreateReport(ctx, report))

	ok, err := repo.AssignCollector(ctx, report.ID, "collector-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AssignCollector(ctx, report.ID, "collector-2")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CollectorID)
	assert.Equal(t, "collector-1", *stored.CollectorID)
	assert.Equal(t, repository.ReportInProgress, stored.Status)
}

func TestTransitionReportMatchesFromStatus(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()
	report := &repository.Report{UserID: "reporter", Status: repository.ReportPending}
	require.NoError(t, repo.CreateReport(ctx, report))

	ok, err := repo.TransitionReport(ctx, report.ID, []repository.ReportStatus{repository.ReportInProgress}, repository.ReportVerified)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TransitionReport(ctx, report.ID, []repository.ReportStatus{repository.ReportPending}, repository.ReportInProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionReport(ctx, report.ID, []repository.ReportStatus{repository.ReportInProgress}, repository.ReportVerified)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.ReportVerified, stored.Status)
	assert.NotNil(t, stored.VerifiedAt)
}

func TestGetReportNotFound(t *testing.T) {
	repo := repotest.New(t)
	_, err := repo.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrReportNotFound)
}

func TestNotificationReadToggle(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()
	n := &repository.Notification{UserID: "u-1", Message: "hello", Type: repository.NotificationReward}
	require.NoError(t, repo.CreateNotification(ctx, n))
	older := &repository.Notification{UserID: "u-1", Message: "older", Type: repository.NotificationReport, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, repo.CreateNotification(ctx, older))

	list, err := repo.ListNotifications(ctx, "u-1", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, n.ID, list[0].ID)

	updated, err := repo.SetNotificationRead(ctx, "u-1", n.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	unread, err := repo.ListNotifications(ctx, "u-1", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, older.ID, unread[0].ID)

	updated, err = repo.SetNotificationRead(ctx, "u-1", n.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsRead)

	_, err = repo.SetNotificationRead(ctx, "someone-else", n.ID, true)
	assert.ErrorIs(t, err, apperror.ErrNotificationNotFound)
}

func TestRedeemRewardIsAtomic(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 100, 0)
	require.NoError(t, repo.SeedRewards(ctx, []repository.Reward{{ID: "bag", Name: "Tote bag", Cost: 80, Active: true}}))

	reward, err := repo.GetReward(ctx, "bag")
	require.NoError(t, err)

	user, redemption, err := repo.RedeemReward(ctx, "u-1", reward)
	require.NoError(t, err)
	assert.Equal(t, 20, user.Point)
	assert.Equal(t, 80, redemption.Points)

	_, _, err = repo.RedeemReward(ctx, "u-1", reward)
	assert.ErrorIs(t, err, apperror.ErrInsufficientPoints)

	reloaded, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.Point)
}

func TestAggregateMetrics(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()

	empty, err := repo.AggregateMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalCount)

	require.NoError(t, repo.SaveLog(ctx, &repository.VerificationLog{RequestID: "r1", UserID: "u", Success: true, Score: 0.8, LatencyMs: 100}))
	require.NoError(t, repo.SaveLog(ctx, &repository.VerificationLog{RequestID: "r2", UserID: "u", Success: false, Score: 0.4, LatencyMs: 300}))

	agg, err := repo.AggregateMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.TotalCount)
	assert.Equal(t, int64(1), agg.SuccessCount)
	assert.InDelta(t, 0.6, agg.AverageScore, 0.001)
	assert.InDelta(t, 200, agg.AverageProcessingLatencyMs, 0.001)
}

func TestTopUsersOrdersByScore(t *testing.T) {
	repo := repotest.New(t)
	repotest.SeedUser(t, repo, "low", 0, 5)
	repotest.SeedUser(t, repo, "high", 0, 50)
	repotest.SeedUser(t, repo, "mid", 0, 20)

	users, err := repo.TopUsers(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "high", users[0].ID)
	assert.Equal(t, "mid", users[1].ID)
}

func TestSeedDefaultRewardsTwice(t *testing.T) {
	repo := repotest.New(t)
	ctx := context.Background()

	require.NoError(t, repo.SeedRewards(ctx, repository.DefaultRewards()))
	require.NoError(t, repo.SeedRewards(ctx, repository.DefaultRewards()))

	rewards, err := repo.ListRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, len(repository.DefaultRewards()))
	for i := 1; i < len(rewards); i++ {
		assert.LessOrEqual(t, rewards[i-1].Cost, rewards[i].Cost)
	}
}

type lostAckError struct{}

func (lostAckError) Error() string { return "i/o timeout" }
func (lostAckError) Timeout() bool { return true }

// failAfterCommit turns the next committed update on table into a timeout,
// as if the acknowledgement was lost. It returns the update count.
func failAfterCommit(t *testing.T, db *gorm.DB, table string) *int {
	t.Helper()
	writes := 0
	armed := true
	hook := func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		writes++
		if armed && tx.Error == nil {
			armed = false
			_ = tx.AddError(lostAckError{})
		}
	}
	require.NoError(t, db.Callback().Update().After("gorm:commit_or_rollback_transaction").Register("test:lost_ack_update", hook))
	return &writes
}

func newRepoOn(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	db := repotest.Open(t)
	repo := repository.NewRepository(db, zap.NewNop())
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo, db
}

func TestIncrementBalanceIsNotReplayedAfterTimeout(t *testing.T) {
	repo, db := newRepoOn(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 0, 0)
	writes := failAfterCommit(t, db, "users")

	_, err := repo.IncrementBalance(ctx, "u-1", 50, 20)
	require.Error(t, err)
	opErr, ok := logging.OperationOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, opErr.Attempts)
	assert.Equal(t, 1, *writes)

	user, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 50, user.Point)
	assert.Equal(t, 20, user.Score)
}

func TestDecrementPointsIsNotReplayedAfterTimeout(t *testing.T) {
	repo, db := newRepoOn(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 100, 0)
	writes := failAfterCommit(t, db, "users")

	_, err := repo.DecrementPoints(ctx, "u-1", 30)
	require.Error(t, err)
	assert.Equal(t, 1, *writes)

	user, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 70, user.Point)
}

func TestRedeemRewardIsNotReplayedOnTransientError(t *testing.T) {
	repo, db := newRepoOn(t)
	ctx := context.Background()
	repotest.SeedUser(t, repo, "u-1", 100, 0)
	require.NoError(t, repo.SeedRewards(ctx, []repository.Reward{{ID: "bag", Name: "Tote bag", Cost: 40, Active: true}}))
	reward, err := repo.GetReward(ctx, "bag")
	require.NoError(t, err)

	attempts := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:redemption_timeout", func(tx *gorm.DB) {
		if tx.Statement.Table == "redemptions" {
			attempts++
			_ = tx.AddError(lostAckError{})
		}
	}))

	_, _, err = repo.RedeemReward(ctx, "u-1", reward)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	user, err := repo.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 100, user.Point, "rolled back debit must not be applied")
}
