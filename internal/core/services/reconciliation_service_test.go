package services

import (
	"context"
	"errors"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationService_ReconcileAccount(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()

	clean := testutil.CreateAccount(t, db)
	_, err := svc.Ledger.Credit(ctx, LedgerEntry{AccountID: clean.ID, Amount: testutil.Money("75.50"), Kind: domain.KindAdjustment, Reference: "seed-clean"})
	require.NoError(t, err)

	drifted := testutil.CreateAccount(t, db, testutil.WithBalance("50"))

	result, err := svc.Reconciliation.ReconcileAccount(ctx, clean.ID)
	require.NoError(t, err)
	assert.True(t, result.Consistent())
	assert.True(t, result.LedgerBalance.Equal(testutil.Money("75.50")))

	result, err = svc.Reconciliation.ReconcileAccount(ctx, drifted.ID)
	require.NoError(t, err)
	assert.False(t, result.BalanceOK)
	assert.True(t, result.HoldOK)
	assert.True(t, result.LedgerBalance.IsZero())

	// mismatches are reported, never corrected
	assert.True(t, testutil.Reload(t, db, drifted.ID).Balance.Equal(testutil.Money("50")))

	_, err = svc.Reconciliation.ReconcileAccount(ctx, 9999)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReconciliationService_HoldDrift(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := fundedAccount(t, db, svc, plan, "300")

	_, err := svc.Withdrawals.Request(ctx, account.ID, testutil.Money("120"))
	require.NoError(t, err)

	result, err := svc.Reconciliation.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.Consistent())
	assert.True(t, result.OpenHolds.Equal(testutil.Money("120")))

	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", account.ID).
		Update("pending_hold_amount", testutil.Money("20")).Error)

	result, err = svc.Reconciliation.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.BalanceOK)
	assert.False(t, result.HoldOK)
}

func TestReconciliationService_ReconcileAll(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		account := testutil.CreateAccount(t, db)
		_, err := svc.Ledger.Credit(ctx, LedgerEntry{AccountID: account.ID, Amount: testutil.Money("10"), Kind: domain.KindAdjustment, Reference: account.ReferralCode})
		require.NoError(t, err)
	}
	drifted := testutil.CreateAccount(t, db, testutil.WithBalance("1"))

	// soft-deleted accounts still carry ledger history
	deleted := testutil.CreateAccount(t, db, testutil.WithBalance("2"))
	require.NoError(t, db.Delete(&models.Account{}, deleted.ID).Error)

	report, err := svc.Reconciliation.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Checked)
	require.Len(t, report.Mismatches, 2)
	assert.Equal(t, drifted.ID, report.Mismatches[0].AccountID)
	assert.Equal(t, deleted.ID, report.Mismatches[1].AccountID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestReconciliationService_ReconcileAllCancelled(t *testing.T) {
	db, svc := newTestServices(t)
	testutil.CreateAccount(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reconciliation.ReconcileAll(ctx)
	assert.Error(t, err)
}

func TestReconcileJob(t *testing.T) {
	db, svc := newTestServices(t)
	testutil.CreateAccount(t, db, testutil.WithBalance("5"))

	_, err := NewReconcileJob(svc.Reconciliation, "not a schedule", nil, logger.Discard())
	assert.Error(t, err)

	job, err := NewReconcileJob(svc.Reconciliation, "@every 1h", nil, logger.Discard())
	require.NoError(t, err)

	job.Start()
	job.Run()
	job.Stop()
}
