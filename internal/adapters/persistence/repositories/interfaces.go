package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRepository defines account repository interface.
// WithTx binds the repository to an open gorm transaction.
type AccountRepository interface {
	WithTx(tx *gorm.DB) AccountRepository
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Account, error)
	GetByIDUnscoped(ctx context.Context, id uint) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Account, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
	ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error)
	ListReferrals(ctx context.Context, code string, offset, limit int) ([]*models.Account, int64, error)
	CountByMembershipStatus(ctx context.Context) (map[string]int64, error)
	SumBalances(ctx context.Context) (decimal.Decimal, error)
}

// TransactionRepository defines ledger transaction repository interface.
// There is no update or delete: the table is append-only.
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByKindAndReference(ctx context.Context, kind, reference string) (*models.Transaction, error)
	ExistsByKindAndReference(ctx context.Context, kind, reference string) (bool, error)
	GetReversalOf(ctx context.Context, originalID uint) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error)
	SumSigned(ctx context.Context, accountID uint) (decimal.Decimal, error)
}

// TaskRepository defines task catalog repository interface
type TaskRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	ListActive(ctx context.Context) ([]*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
}

// TaskCompletionRepository defines task completion repository interface
type TaskCompletionRepository interface {
	WithTx(tx *gorm.DB) TaskCompletionRepository
	Create(ctx context.Context, completion *models.TaskCompletion) error
	Save(ctx context.Context, completion *models.TaskCompletion) error
	GetByID(ctx context.Context, id uint) (*models.TaskCompletion, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.TaskCompletion, error)
	GetByAccountAndTask(ctx context.Context, accountID, taskID uint) (*models.TaskCompletion, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]*models.TaskCompletion, int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// WithdrawalRepository defines withdrawal request repository interface
type WithdrawalRepository interface {
	WithTx(tx *gorm.DB) WithdrawalRepository
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	Save(ctx context.Context, request *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error)
	ListByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.WithdrawalRequest, int64, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]*models.WithdrawalRequest, int64, error)
	CountOpenByAccount(ctx context.Context, accountID uint) (int64, error)
	SumOpenByAccount(ctx context.Context, accountID uint) (decimal.Decimal, error)
	CountAndSumByStatus(ctx context.Context, statuses ...string) (int64, decimal.Decimal, error)
}

// PlanRepository defines membership plan and commission rate access.
// Both tables are configuration and read-only for the ledger.
type PlanRepository interface {
	WithTx(tx *gorm.DB) PlanRepository
	GetPlanByID(ctx context.Context, id uint) (*models.MembershipPlan, error)
	GetPlanByCode(ctx context.Context, code string) (*models.MembershipPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.MembershipPlan, error)
	UpsertPlan(ctx context.Context, plan *models.MembershipPlan) error
	ListCommissionRates(ctx context.Context) ([]*models.CommissionRate, error)
	UpsertCommissionRate(ctx context.Context, rate *models.CommissionRate) error
}
