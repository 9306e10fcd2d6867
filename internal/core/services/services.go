package services

import (
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"

	"gorm.io/gorm"
)

// Services wires every repository and service over one database handle.
// Both the API server and ledgerctl build their dependencies through it.
type Services struct {
	Ledger         *LedgerService
	Commission     *CommissionService
	Membership     *MembershipService
	Tasks          *TaskService
	Withdrawals    *WithdrawalService
	Reconciliation *ReconciliationService
	Dashboard      *DashboardService
	Auth           *AuthService
}

// NewServices builds the service graph. events may be nil, in which case
// ledger mutations are not broadcast.
func NewServices(db *gorm.DB, cfg *config.Config, log *logger.Logger, events *EventDispatcher) *Services {
	accountRepo := repositories.NewAccountRepository(db)
	planRepo := repositories.NewPlanRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	completionRepo := repositories.NewTaskCompletionRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)

	ledger := NewLedgerService(db, accountRepo, txRepo, events, log)
	commission := NewCommissionService(accountRepo, planRepo, ledger, log)
	tasks := NewTaskService(
		db,
		accountRepo,
		planRepo,
		taskRepo,
		completionRepo,
		ledger,
		NewVerificationScorer(cfg.Scoring),
		cfg.Ledger.Location,
		log,
	)

	return &Services{
		Ledger:         ledger,
		Commission:     commission,
		Membership:     NewMembershipService(db, accountRepo, planRepo, ledger, commission, log),
		Tasks:          tasks,
		Withdrawals:    NewWithdrawalService(db, accountRepo, planRepo, withdrawalRepo, ledger, log),
		Reconciliation: NewReconciliationService(accountRepo, txRepo, withdrawalRepo, log),
		Dashboard:      NewDashboardService(accountRepo, planRepo, txRepo, completionRepo, withdrawalRepo, tasks),
		Auth:           NewAuthService(accountRepo, cfg, log),
	}
}
