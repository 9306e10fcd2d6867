package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVoucher(amount string) testutil.PlanOption {
	return func(p *models.MembershipPlan) { p.VoucherAmount = testutil.Money(amount) }
}

func TestMembershipService_Activate(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db, withVoucher("50"))
	testutil.CreateRates(t, db, "10", "5")

	sponsor := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	member := testutil.CreateAccount(t, db, testutil.WithSponsor(sponsor))

	result, err := svc.Membership.Activate(ctx, member.ID, plan.ID, "act-1")
	require.NoError(t, err)
	assert.Equal(t, "act-1", result.BatchID)
	require.NotNil(t, result.Voucher)
	assert.Equal(t, string(domain.KindVoucherCredit), result.Voucher.Kind)
	assert.Equal(t, "act-1", result.Voucher.Reference)
	require.Len(t, result.Commissions, 1, "level two has no sponsor")
	assert.Equal(t, sponsor.ID, result.Commissions[0].AccountID)

	reloaded := testutil.Reload(t, db, member.ID)
	assert.Equal(t, string(domain.MembershipActive), reloaded.MembershipStatus)
	require.NotNil(t, reloaded.MembershipPlanID)
	assert.Equal(t, plan.ID, *reloaded.MembershipPlanID)
	require.NotNil(t, reloaded.EarningsExpiryDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, plan.DurationDays), *reloaded.EarningsExpiryDate, time.Minute)
	assert.True(t, reloaded.Balance.Equal(testutil.Money("50")))
	assert.True(t, reloaded.TotalEarnings.Equal(testutil.Money("50")))

	assert.True(t, testutil.Reload(t, db, sponsor.ID).Balance.Equal(testutil.Money("100")))
}

func TestMembershipService_ActivateRerunCreditsOnce(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db, withVoucher("50"))
	testutil.CreateRates(t, db, "10")

	sponsor := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	member := testutil.CreateAccount(t, db, testutil.WithSponsor(sponsor))

	_, err := svc.Membership.Activate(ctx, member.ID, plan.ID, "act-rerun")
	require.NoError(t, err)

	again, err := svc.Membership.Activate(ctx, member.ID, plan.ID, "act-rerun")
	require.NoError(t, err)
	assert.Nil(t, again.Voucher)
	assert.Empty(t, again.Commissions)

	assert.Len(t, testutil.Transactions(t, db, member.ID), 1)
	assert.Len(t, testutil.Transactions(t, db, sponsor.ID), 1)
	assert.True(t, testutil.Reload(t, db, sponsor.ID).Balance.Equal(testutil.Money("100")))
}

func TestMembershipService_ActivateGeneratesBatchID(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	member := testutil.CreateAccount(t, db)

	result, err := svc.Membership.Activate(context.Background(), member.ID, plan.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Nil(t, result.Voucher, "plan without voucher credits nothing")
	assert.Empty(t, testutil.Transactions(t, db, member.ID))
}

func TestMembershipService_ActivateRejects(t *testing.T) {
	db, svc := newTestServices(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, db)
	retired := testutil.CreatePlan(t, db)
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	member := testutil.CreateAccount(t, db)
	blocked := testutil.CreateAccount(t, db)
	testutil.Deactivate(t, db, blocked)

	_, err := svc.Membership.Activate(ctx, member.ID, 9999, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Membership.Activate(ctx, member.ID, retired.ID, "x")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.Membership.Activate(ctx, 9999, plan.ID, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Membership.Activate(ctx, blocked.ID, plan.ID, "x")
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))

	assert.Equal(t, string(domain.MembershipInactive), testutil.Reload(t, db, blocked.ID).MembershipStatus)
}

func TestMembershipService_ListPlansOnlyActive(t *testing.T) {
	db, svc := newTestServices(t)
	active := testutil.CreatePlan(t, db)
	retired := testutil.CreatePlan(t, db)
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	plans, err := svc.Membership.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, active.ID, plans[0].ID)
}
