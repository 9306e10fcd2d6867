package services

import (
	"context"
	"errors"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const recentTransactionLimit = 10

// DashboardService builds read-only balance and earnings summaries
type DashboardService struct {
	accountRepo    repositories.AccountRepository
	planRepo       repositories.PlanRepository
	txRepo         repositories.TransactionRepository
	completionRepo repositories.TaskCompletionRepository
	withdrawalRepo repositories.WithdrawalRepository
	tasks          *TaskService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	accountRepo repositories.AccountRepository,
	planRepo repositories.PlanRepository,
	txRepo repositories.TransactionRepository,
	completionRepo repositories.TaskCompletionRepository,
	withdrawalRepo repositories.WithdrawalRepository,
	tasks *TaskService,
) *DashboardService {
	return &DashboardService{
		accountRepo:    accountRepo,
		planRepo:       planRepo,
		txRepo:         txRepo,
		completionRepo: completionRepo,
		withdrawalRepo: withdrawalRepo,
		tasks:          tasks,
	}
}

// ============================================================
// Member Dashboard
// ============================================================

// AccountSummary represents the member dashboard
type AccountSummary struct {
	Account            *models.AccountResponse `json:"account"`
	Plan               *models.MembershipPlan  `json:"plan,omitempty"`
	TasksUsedToday     int                     `json:"tasks_used_today"`
	TasksRemaining     int                     `json:"tasks_remaining"`
	DirectReferrals    int64                   `json:"direct_referrals"`
	RecentTransactions []*models.Transaction   `json:"recent_transactions"`
}

// GetAccountSummary returns the member dashboard for accountID
func (s *DashboardService) GetAccountSummary(ctx context.Context, accountID uint) (*AccountSummary, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	summary := &AccountSummary{
		Account:        account.ToResponse(),
		TasksUsedToday: s.tasks.QuotaUsed(account),
	}

	if account.MembershipPlanID != nil {
		plan, err := s.planRepo.GetPlanByID(ctx, *account.MembershipPlanID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if plan != nil {
			summary.Plan = plan
			if remaining := plan.TasksPerDay - summary.TasksUsedToday; remaining > 0 {
				summary.TasksRemaining = remaining
			}
		}
	}

	_, summary.DirectReferrals, err = s.accountRepo.ListReferrals(ctx, account.ReferralCode, 0, 1)
	if err != nil {
		return nil, err
	}

	summary.RecentTransactions, _, err = s.txRepo.ListByAccount(ctx, account.ID, 0, recentTransactionLimit)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// ListTransactions returns an account's ledger history, newest first
func (s *DashboardService) ListTransactions(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error) {
	return s.txRepo.ListByAccount(ctx, accountID, offset, limit)
}

// ListReferrals returns accounts directly sponsored by accountID
func (s *DashboardService) ListReferrals(ctx context.Context, accountID uint, offset, limit int) ([]*models.AccountResponse, int64, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}

	accounts, total, err := s.accountRepo.ListReferrals(ctx, account.ReferralCode, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.AccountResponse, len(accounts))
	for i, referral := range accounts {
		responses[i] = referral.ToResponse()
	}
	return responses, total, nil
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	AccountsByStatus    map[string]int64 `json:"accounts_by_status"`
	TotalBalances       decimal.Decimal  `json:"total_balances"`
	PendingReviews      int64            `json:"pending_reviews"`
	OpenWithdrawals     int64            `json:"open_withdrawals"`
	OpenWithdrawalTotal decimal.Decimal  `json:"open_withdrawal_total"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{GeneratedAt: time.Now()}

	var err error
	if data.AccountsByStatus, err = s.accountRepo.CountByMembershipStatus(ctx); err != nil {
		return nil, err
	}
	if data.TotalBalances, err = s.accountRepo.SumBalances(ctx); err != nil {
		return nil, err
	}
	if data.PendingReviews, err = s.completionRepo.CountByStatus(ctx, string(domain.TaskPendingReview)); err != nil {
		return nil, err
	}

	data.OpenWithdrawals, data.OpenWithdrawalTotal, err = s.withdrawalRepo.CountAndSumByStatus(ctx,
		string(domain.WithdrawalPending), string(domain.WithdrawalApproved))
	if err != nil {
		return nil, err
	}

	return data, nil
}
