package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingSignals() domain.EngagementSignals {
	return signals(130000, 0.85, true, true)
}

func TestTaskService_CompleteCreditsReward(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	task := testutil.CreateTask(t, db, "150", false)

	completion, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskCompleted), completion.Status)
	assert.Equal(t, 100, completion.VerificationScore)
	assert.NotNil(t, completion.CompletedAt)

	reloaded := testutil.Reload(t, db, account.ID)
	assert.True(t, reloaded.Balance.Equal(testutil.Money("150")))
	assert.Equal(t, 1, reloaded.DailyTaskCount)

	txns := testutil.Transactions(t, db, account.ID)
	require.Len(t, txns, 1)
	assert.Equal(t, string(domain.KindTaskReward), txns[0].Kind)
	assert.True(t, txns[0].Amount.Equal(testutil.Money("150")))
	assert.Equal(t, strconv.FormatUint(uint64(completion.ID), 10), txns[0].Reference)
}

func TestTaskService_CompleteIsIdempotent(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	task := testutil.CreateTask(t, db, "0", false)

	started, err := svc.Tasks.Start(ctx, account.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskInProgress), started.Status)

	again, err := svc.Tasks.Start(ctx, account.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, again.ID)

	first, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
	require.NoError(t, err)
	assert.Equal(t, started.ID, first.ID, "the started attempt is completed in place")
	assert.True(t, first.RewardAmount.Equal(plan.DailyTaskEarning), "zero task reward falls back to the plan")

	second, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
	assert.True(t, errors.Is(err, domain.ErrAlreadyCompleted))
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	assert.Len(t, testutil.Transactions(t, db, account.ID), 1)
	assert.Equal(t, 1, testutil.Reload(t, db, account.ID).DailyTaskCount)
}

func TestTaskService_CompleteFailuresChangeNothing(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	task := testutil.CreateTask(t, db, "10", false)

	t.Run("inactive membership", func(t *testing.T) {
		account := testutil.CreateAccount(t, db)
		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
		assert.True(t, errors.Is(err, domain.ErrAccessDenied))
	})

	t.Run("expired membership", func(t *testing.T) {
		account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
		past := time.Now().Add(-time.Hour)
		require.NoError(t, db.Model(account).Update("earnings_expiry_date", past).Error)

		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
		assert.True(t, errors.Is(err, domain.ErrAccessDenied))
	})

	t.Run("verification failed", func(t *testing.T) {
		account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: signals(1200, 0.1, true, false)})

		var verr *domain.VerificationError
		require.True(t, errors.As(err, &verr))
		assert.True(t, errors.Is(err, domain.ErrVerificationFailed))
		assert.Equal(t, 20, verr.Result.Score)
		assert.NotEmpty(t, verr.Result.Reasons)

		reloaded := testutil.Reload(t, db, account.ID)
		assert.True(t, reloaded.Balance.IsZero())
		assert.Zero(t, reloaded.DailyTaskCount)
		assert.Empty(t, testutil.Transactions(t, db, account.ID))
	})

	t.Run("missing signals", func(t *testing.T) {
		account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("unknown task", func(t *testing.T) {
		account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: 9999, Signals: passingSignals()})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestTaskService_DailyQuota(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db, func(p *models.MembershipPlan) { p.TasksPerDay = 2 })
	account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))

	today := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	svc.Tasks.now = func() time.Time { return today }

	for i := 0; i < 2; i++ {
		task := testutil.CreateTask(t, db, "5", false)
		_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: task.ID, Signals: passingSignals()})
		require.NoError(t, err)
	}

	extra := testutil.CreateTask(t, db, "5", false)
	_, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: extra.ID, Signals: passingSignals()})
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

	// the next operational day resets the counter
	svc.Tasks.now = func() time.Time { return today.Add(3 * time.Hour) }
	assert.Zero(t, svc.Tasks.QuotaUsed(testutil.Reload(t, db, account.ID)))

	_, err = svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: extra.ID, Signals: passingSignals()})
	require.NoError(t, err)

	reloaded := testutil.Reload(t, db, account.ID)
	assert.Equal(t, 1, reloaded.DailyTaskCount)
	assert.True(t, reloaded.Balance.Equal(testutil.Money("15")))
}

func TestTaskService_ReviewFlow(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	reviewed := testutil.CreateTask(t, db, "25", true)
	rejected := testutil.CreateTask(t, db, "25", true)

	held, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: reviewed.ID, Signals: passingSignals()})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskPendingReview), held.Status)
	assert.Empty(t, testutil.Transactions(t, db, account.ID), "held completions credit nothing")

	queue, total, err := svc.Tasks.ListReviewQueue(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, queue, 1)
	assert.Equal(t, held.ID, queue[0].ID)

	_, err = svc.Tasks.ResolveReview(ctx, held.ID, "MAYBE", "", 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	approved, err := svc.Tasks.ResolveReview(ctx, held.ID, domain.ReviewApprove, "looks fine", 1)
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskCompleted), approved.Status)
	assert.True(t, testutil.Reload(t, db, account.ID).Balance.Equal(testutil.Money("25")))

	_, err = svc.Tasks.ResolveReview(ctx, held.ID, domain.ReviewApprove, "", 1)
	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))
	assert.Len(t, testutil.Transactions(t, db, account.ID), 1)

	second, err := svc.Tasks.Complete(ctx, &CompleteInput{AccountID: account.ID, TaskID: rejected.ID, Signals: passingSignals()})
	require.NoError(t, err)
	denied, err := svc.Tasks.ResolveReview(ctx, second.ID, domain.ReviewReject, "duplicate account", 1)
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskRejected), denied.Status)
	assert.Equal(t, "duplicate account", denied.ReviewNotes)
	assert.True(t, testutil.Reload(t, db, account.ID).Balance.Equal(testutil.Money("25")))
}

func TestTaskService_StartRequiresMembership(t *testing.T) {
	db, svc := newTestServices(t)
	account := testutil.CreateAccount(t, db)
	task := testutil.CreateTask(t, db, "5", false)

	_, err := svc.Tasks.Start(context.Background(), account.ID, task.ID)
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
}
