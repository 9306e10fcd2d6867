// Package testutil provides an in-memory database and fixtures for service and handler tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/password"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	password.Cost = bcrypt.MinCost
}

// NewDB opens a private in-memory database with the schema migrated.
// A single connection serializes transactions the way row locks do in MySQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// Config returns application config suitable for tests
func Config() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Port:    "0",
		JWT: config.JWTConfig{
			Secret:          "test-secret-with-enough-length-0123456789",
			AccessTokenMins: 15,
		},
		Cookie: config.CookieConfig{SameSite: "Lax"},
		Scoring: config.ScoringConfig{
			MinTimeSpentMs: 5000,
			MinScrollDepth: 0.6,
		},
		Ledger: config.LedgerConfig{
			Location:    time.UTC,
			EventBuffer: 64,
		},
		Cron: config.CronConfig{ReconcileSchedule: "@every 1h"},
	}
}

// Money parses a decimal literal
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// PlanOption customizes a plan fixture
type PlanOption func(*models.MembershipPlan)

// CreatePlan inserts an active plan: 3 tasks/day at 10.00, minimum withdrawal
// 100.00, commission basis 1000.00, no voucher, 30 days.
func CreatePlan(t testing.TB, db *gorm.DB, opts ...PlanOption) *models.MembershipPlan {
	t.Helper()

	plan := &models.MembershipPlan{
		Code:                  "P" + uuid.NewString()[:6],
		Name:                  "Test Plan",
		Price:                 Money("1000"),
		TasksPerDay:           3,
		DailyTaskEarning:      Money("10"),
		MinimumWithdrawal:     Money("100"),
		CommissionBasisAmount: Money("1000"),
		VoucherAmount:         decimal.Zero,
		DurationDays:          30,
		IsActive:              true,
	}
	for _, opt := range opts {
		opt(plan)
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

// AccountOption customizes an account fixture
type AccountOption func(*models.Account)

// WithSponsor places the account under sponsor
func WithSponsor(sponsor *models.Account) AccountOption {
	return func(a *models.Account) {
		code := sponsor.ReferralCode
		a.SponsorCode = &code
	}
}

// WithActivePlan gives the account an active membership that expires in 30 days
func WithActivePlan(plan *models.MembershipPlan) AccountOption {
	return func(a *models.Account) {
		expiry := time.Now().Add(30 * 24 * time.Hour)
		a.MembershipStatus = string(domain.MembershipActive)
		a.MembershipPlanID = &plan.ID
		a.EarningsExpiryDate = &expiry
	}
}

// WithBalance seeds the stored balance. Pair it with a matching ledger entry
// when the test reconciles.
func WithBalance(amount string) AccountOption {
	return func(a *models.Account) {
		a.Balance = Money(amount)
	}
}

// WithRole sets the account role
func WithRole(role string) AccountOption {
	return func(a *models.Account) {
		a.Role = role
	}
}

// CreateAccount inserts an active account with an inactive membership
func CreateAccount(t testing.TB, db *gorm.DB, opts ...AccountOption) *models.Account {
	t.Helper()

	suffix := uuid.NewString()[:8]
	account := &models.Account{
		Username:         "user_" + suffix,
		Email:            suffix + "@test.local",
		Password:         "x",
		Role:             models.RoleUser,
		ReferralCode:     "R" + strings.ToUpper(suffix),
		MembershipStatus: string(domain.MembershipInactive),
		IsActive:         true,
	}
	for _, opt := range opts {
		opt(account)
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// Deactivate flips is_active off; gorm skips false on create because of the column default
func Deactivate(t testing.TB, db *gorm.DB, account *models.Account) {
	t.Helper()
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", account.ID).Update("is_active", false).Error)
	account.IsActive = false
}

// CreateRates inserts percentage rates for levels 1..len(percentages)
func CreateRates(t testing.TB, db *gorm.DB, percentages ...string) []*models.CommissionRate {
	t.Helper()

	rates := make([]*models.CommissionRate, 0, len(percentages))
	for i, pct := range percentages {
		rate := &models.CommissionRate{
			Level:      i + 1,
			Percentage: decimal.NewNullDecimal(Money(pct)),
			IsActive:   true,
		}
		require.NoError(t, db.Create(rate).Error)
		rates = append(rates, rate)
	}
	return rates
}

// CreateTask inserts an active task
func CreateTask(t testing.TB, db *gorm.DB, reward string, requiresReview bool) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:          "Task " + uuid.NewString()[:6],
		URL:            "https://example.com/watch",
		RewardAmount:   Money(reward),
		RequiresReview: requiresReview,
		IsActive:       true,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// Reload fetches the account's current row
func Reload(t testing.TB, db *gorm.DB, id uint) *models.Account {
	t.Helper()

	var account models.Account
	require.NoError(t, db.Unscoped().First(&account, id).Error)
	return &account
}

// Transactions returns every ledger row for the account in id order
func Transactions(t testing.TB, db *gorm.DB, accountID uint) []models.Transaction {
	t.Helper()

	var txns []models.Transaction
	require.NoError(t, db.Where("account_id = ?", accountID).Order("id").Find(&txns).Error)
	return txns
}
