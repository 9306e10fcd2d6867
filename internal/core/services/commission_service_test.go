package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// buildChain creates n active sponsors above a trigger account and returns
// them nearest first, followed by the trigger.
func buildChain(t *testing.T, db *gorm.DB, plan *models.MembershipPlan, n int) ([]*models.Account, *models.Account) {
	t.Helper()

	top := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	chain := []*models.Account{top}
	for i := 1; i < n; i++ {
		chain = append(chain, testutil.CreateAccount(t, db, testutil.WithActivePlan(plan), testutil.WithSponsor(chain[i-1])))
	}
	trigger := testutil.CreateAccount(t, db, testutil.WithSponsor(chain[n-1]))

	// nearest sponsor first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, trigger
}

func TestCommissionService_LevelOneScenario(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20")

	a := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	b := testutil.CreateAccount(t, db, testutil.WithSponsor(a))

	credits, err := svc.Commission.Distribute(context.Background(), b.ID, testutil.Money("3000"), "batch123")
	require.NoError(t, err)
	require.Len(t, credits, 1)

	assert.Equal(t, a.ID, credits[0].AccountID)
	assert.True(t, credits[0].Amount.Equal(testutil.Money("600")))
	assert.Equal(t, "batch123|1", credits[0].Reference)
	assert.Equal(t, string(domain.KindReferralCommission), credits[0].Kind)

	reloaded := testutil.Reload(t, db, a.ID)
	assert.True(t, reloaded.Balance.Equal(testutil.Money("600")))
	assert.True(t, reloaded.ReferralEarnings.Equal(testutil.Money("600")))
	assert.True(t, reloaded.TotalEarnings.Equal(testutil.Money("600")))
}

func TestCommissionService_StopsAtFiveLevels(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20", "10", "5", "3", "2")

	chain, trigger := buildChain(t, db, plan, 6)

	credits, err := svc.Commission.Distribute(context.Background(), trigger.ID, testutil.Money("1000"), "b-5")
	require.NoError(t, err)
	require.Len(t, credits, 5)

	want := []string{"200", "100", "50", "30", "20"}
	for i, txn := range credits {
		assert.Equal(t, chain[i].ID, txn.AccountID)
		assert.True(t, txn.Amount.Equal(testutil.Money(want[i])), "level %d got %s", i+1, txn.Amount)
	}
	assert.True(t, testutil.Reload(t, db, chain[5].ID).Balance.IsZero(), "sixth level is never paid")
}

func TestCommissionService_SkipsAndContinues(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	rates := testutil.CreateRates(t, db, "20", "10", "5")

	chain, trigger := buildChain(t, db, plan, 3)

	// level 1 sponsor lost membership, level 2 rate disabled
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", chain[0].ID).
		Update("membership_status", string(domain.MembershipExpired)).Error)
	require.NoError(t, db.Model(&models.CommissionRate{}).Where("id = ?", rates[1].ID).
		Update("is_active", false).Error)

	credits, err := svc.Commission.Distribute(context.Background(), trigger.ID, testutil.Money("1000"), "b-skip")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, chain[2].ID, credits[0].AccountID)
	assert.Equal(t, "b-skip|3", credits[0].Reference)
	assert.True(t, credits[0].Amount.Equal(testutil.Money("50")))
}

func TestCommissionService_DeletedSponsorIsWalkedPast(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20", "10")

	chain, trigger := buildChain(t, db, plan, 2)
	require.NoError(t, db.Delete(&models.Account{}, chain[0].ID).Error)

	credits, err := svc.Commission.Distribute(context.Background(), trigger.ID, testutil.Money("500"), "b-del")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, chain[1].ID, credits[0].AccountID)
	assert.True(t, credits[0].Amount.Equal(testutil.Money("50")))
}

func TestCommissionService_RerunPaysNothingTwice(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20", "10")
	chain, trigger := buildChain(t, db, plan, 2)
	ctx := context.Background()

	first, err := svc.Commission.Distribute(ctx, trigger.ID, testutil.Money("100"), "b-rerun")
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.Commission.Distribute(ctx, trigger.ID, testutil.Money("100"), "b-rerun")
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.True(t, testutil.Reload(t, db, chain[0].ID).Balance.Equal(testutil.Money("20")))
	assert.True(t, testutil.Reload(t, db, chain[1].ID).Balance.Equal(testutil.Money("10")))
}

func TestCommissionService_RerunAfterPartialFailure(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20", "10", "5", "3", "2")
	chain, trigger := buildChain(t, db, plan, 5)
	ctx := context.Background()

	// Fail the level 3 insert until the storage "recovers"
	var failing atomic.Bool
	failing.Store(true)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_level_3", func(tx *gorm.DB) {
		txn, ok := tx.Statement.Dest.(*models.Transaction)
		if ok && failing.Load() && strings.HasSuffix(txn.Reference, "|3") {
			_ = tx.AddError(errors.New("storage unavailable"))
		}
	}))

	first, err := svc.Commission.Distribute(ctx, trigger.ID, testutil.Money("1000"), "b-partial")
	require.Error(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "b-partial|1", first[0].Reference)
	assert.Equal(t, "b-partial|2", first[1].Reference)
	assert.True(t, testutil.Reload(t, db, chain[2].ID).Balance.IsZero())

	failing.Store(false)
	second, err := svc.Commission.Distribute(ctx, trigger.ID, testutil.Money("1000"), "b-partial")
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "b-partial|3", second[0].Reference)

	want := []string{"200", "100", "50", "30", "20"}
	for i, sponsor := range chain {
		var rows int64
		require.NoError(t, db.Model(&models.Transaction{}).
			Where("account_id = ? AND kind = ?", sponsor.ID, string(domain.KindReferralCommission)).
			Count(&rows).Error)
		assert.EqualValues(t, 1, rows, "level %d", i+1)
		assert.True(t, testutil.Reload(t, db, sponsor.ID).Balance.Equal(testutil.Money(want[i])), "level %d", i+1)
	}
}

func TestCommissionService_CycleStopsWalk(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	testutil.CreateRates(t, db, "20", "10", "5", "3", "2")

	a := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	b := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan), testutil.WithSponsor(a))
	// close the loop a -> b -> a
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", a.ID).Update("sponsor_code", b.ReferralCode).Error)

	credits, err := svc.Commission.Distribute(context.Background(), b.ID, testutil.Money("100"), "b-cycle")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, a.ID, credits[0].AccountID)
}

func TestCommissionService_OrphanSponsorCode(t *testing.T) {
	db, svc := newTestServices(t)
	testutil.CreateRates(t, db, "20")

	orphan := "MISSING1"
	trigger := testutil.CreateAccount(t, db, func(a *models.Account) { a.SponsorCode = &orphan })

	credits, err := svc.Commission.Distribute(context.Background(), trigger.ID, testutil.Money("100"), "b-orphan")
	require.NoError(t, err)
	assert.Empty(t, credits)
}

func TestCommissionService_FixedAmountRate(t *testing.T) {
	db, svc := newTestServices(t)
	plan := testutil.CreatePlan(t, db)
	require.NoError(t, db.Create(&models.CommissionRate{
		Level:       1,
		FixedAmount: decimalNull("50"),
		IsActive:    true,
	}).Error)

	sponsor := testutil.CreateAccount(t, db, testutil.WithActivePlan(plan))
	trigger := testutil.CreateAccount(t, db, testutil.WithSponsor(sponsor))

	credits, err := svc.Commission.Distribute(context.Background(), trigger.ID, testutil.Money("99999"), "b-fixed")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.True(t, credits[0].Amount.Equal(testutil.Money("50")))
}

func TestCommissionService_InvalidInput(t *testing.T) {
	db, svc := newTestServices(t)
	account := testutil.CreateAccount(t, db)
	ctx := context.Background()

	_, err := svc.Commission.Distribute(ctx, account.ID, testutil.Money("100"), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.Commission.Distribute(ctx, account.ID, testutil.Money("100"), "a|b")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.Commission.Distribute(ctx, account.ID, testutil.Money("-1"), "neg")
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))

	_, err = svc.Commission.Distribute(ctx, 9999, testutil.Money("1"), "none")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
