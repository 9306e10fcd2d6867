package services

import (
	"context"
	"errors"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fundedAccount creates a member on plan with balance credited through the ledger
func fundedAccount(t *testing.T, db *gorm.DB, svc *Services, plan *models.MembershipPlan, amount string) *models.Account {
	t.Helper()

	account := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	_, err := svc.Ledger.Credit(context.Background(), LedgerEntry{
		AccountID: account.ID,
		Amount:    testutil.Money(amount),
		Kind:      domain.KindAdjustment,
		Reference: "fund-" + account.ReferralCode,
	})
	require.NoError(t, err)
	return account
}

func TestWithdrawalService_InsufficientBalanceScenario(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	account := fundedAccount(t, db, svc, plan, "1500")

	_, err := svc.Withdrawals.Request(context.Background(), account.ID, testutil.Money("2000"))
	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))

	var requests int64
	require.NoError(t, db.Model(&models.WithdrawalRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)
	assert.Len(t, testutil.Transactions(t, db, account.ID), 1, "only the funding entry exists")
	assert.True(t, testutil.Reload(t, db, account.ID).Balance.Equal(testutil.Money("1500")))
}

func TestWithdrawalService_RejectRefundsScenario(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := fundedAccount(t, db, svc, plan, "1500")
	admin := testutil.CreateAccount(t, db, testutil.WithRole(models.RoleAdmin))

	request, err := svc.Withdrawals.Request(ctx, account.ID, testutil.Money("1000"))
	require.NoError(t, err)
	assert.Equal(t, string(domain.WithdrawalPending), request.Status)
	require.NotNil(t, request.HoldTransactionID)

	held := testutil.Reload(t, db, account.ID)
	assert.True(t, held.Balance.Equal(testutil.Money("500")))
	assert.True(t, held.PendingHoldAmount.Equal(testutil.Money("1000")))

	rejected, err := svc.Withdrawals.Reject(ctx, request.ID, admin.ID, "bank details mismatch")
	require.NoError(t, err)
	assert.Equal(t, string(domain.WithdrawalRejected), rejected.Status)
	assert.Equal(t, "bank details mismatch", rejected.RejectionReason)

	txns := testutil.Transactions(t, db, account.ID)
	require.Len(t, txns, 3)
	assert.Equal(t, string(domain.KindWithdrawalHold), txns[1].Kind)
	assert.Equal(t, string(domain.KindWithdrawalRefund), txns[2].Kind)
	assert.True(t, txns[1].Amount.Equal(txns[2].Amount))

	after := testutil.Reload(t, db, account.ID)
	assert.True(t, after.Balance.Equal(testutil.Money("1500")))
	assert.True(t, after.PendingHoldAmount.IsZero())
	assert.True(t, after.TotalEarnings.Equal(testutil.Money("1500")), "refunds are not earnings")

	// replaying the rejection moves nothing
	again, err := svc.Withdrawals.Reject(ctx, request.ID, admin.ID, "again")
	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))
	require.NotNil(t, again)
	assert.Equal(t, "bank details mismatch", again.RejectionReason)
	assert.Len(t, testutil.Transactions(t, db, account.ID), 3)

	check, err := svc.Reconciliation.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent())
}

func TestWithdrawalService_ApproveAndSettle(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := fundedAccount(t, db, svc, plan, "300")

	request, err := svc.Withdrawals.Request(ctx, account.ID, testutil.Money("200"))
	require.NoError(t, err)

	_, err = svc.Withdrawals.Settle(ctx, request.ID, "PAY-1", 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "pending cannot settle")

	approved, err := svc.Withdrawals.Approve(ctx, request.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, string(domain.WithdrawalApproved), approved.Status)

	_, err = svc.Withdrawals.Cancel(ctx, request.ID, account.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "approved cannot be cancelled")

	_, err = svc.Withdrawals.Settle(ctx, request.ID, "  ", 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	settled, err := svc.Withdrawals.Settle(ctx, request.ID, "PAY-1", 1)
	require.NoError(t, err)
	assert.Equal(t, string(domain.WithdrawalCompleted), settled.Status)
	assert.Equal(t, "PAY-1", settled.ExternalReference)
	assert.NotNil(t, settled.ProcessedAt)

	after := testutil.Reload(t, db, account.ID)
	assert.True(t, after.Balance.Equal(testutil.Money("100")), "settlement keeps the hold as the payout")
	assert.True(t, after.PendingHoldAmount.IsZero())

	txns := testutil.Transactions(t, db, account.ID)
	last := txns[len(txns)-1]
	assert.Equal(t, string(domain.KindWithdrawalSettled), last.Kind)
	assert.Equal(t, string(domain.DirectionNone), last.Direction)
	assert.True(t, last.Amount.IsZero())

	_, err = svc.Withdrawals.Settle(ctx, request.ID, "PAY-1", 1)
	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))

	_, err = svc.Withdrawals.Reject(ctx, request.ID, 1, "late")
	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))

	check, err := svc.Reconciliation.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent())
}

func TestWithdrawalService_Guards(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	account := fundedAccount(t, db, svc, plan, "500")

	_, err := svc.Withdrawals.Request(ctx, account.ID, testutil.Money("0"))
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))

	_, err = svc.Withdrawals.Request(ctx, account.ID, testutil.Money("0.004"))
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))
	var opened int64
	require.NoError(t, db.Model(&models.WithdrawalRequest{}).Count(&opened).Error)
	assert.Zero(t, opened)

	_, err = svc.Withdrawals.Request(ctx, account.ID, testutil.Money("99.99"))
	assert.True(t, errors.Is(err, domain.ErrBelowMinimumWithdrawal))

	_, err = svc.Withdrawals.Request(ctx, account.ID, testutil.Money("100"))
	require.NoError(t, err)

	_, err = svc.Withdrawals.Request(ctx, account.ID, testutil.Money("100"))
	assert.True(t, errors.Is(err, domain.ErrWithdrawalInProgress))

	_, err = svc.Withdrawals.Reject(ctx, 9999, 1, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Withdrawals.Request(ctx, 9999, testutil.Money("100"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestWithdrawalService_Cancel(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	owner := fundedAccount(t, db, svc, plan, "400")
	other := testutil.CreateAccount(t, db)

	request, err := svc.Withdrawals.Request(ctx, owner.ID, testutil.Money("150"))
	require.NoError(t, err)

	_, err = svc.Withdrawals.Cancel(ctx, request.ID, other.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	cancelled, err := svc.Withdrawals.Cancel(ctx, request.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.WithdrawalCancelled), cancelled.Status)

	// a finished request still reads as missing to other accounts
	_, err = svc.Withdrawals.Cancel(ctx, request.ID, other.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Withdrawals.Cancel(ctx, request.ID, owner.ID)
	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))

	after := testutil.Reload(t, db, owner.ID)
	assert.True(t, after.Balance.Equal(testutil.Money("400")))
	assert.True(t, after.PendingHoldAmount.IsZero())

	// a new request is allowed once the previous one is closed
	_, err = svc.Withdrawals.Request(ctx, owner.ID, testutil.Money("150"))
	require.NoError(t, err)

	items, total, err := svc.Withdrawals.ListByAccount(ctx, owner.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	pending, total, err := svc.Withdrawals.ListByStatus(ctx, domain.WithdrawalPending, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, pending, 1)
}
