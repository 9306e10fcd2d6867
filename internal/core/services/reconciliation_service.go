package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const reconcileBatchSize = 200

// AccountReconciliation compares cached account totals with the ledger
type AccountReconciliation struct {
	AccountID     uint            `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	PendingHold   decimal.Decimal `json:"pending_hold_amount"`
	OpenHolds     decimal.Decimal `json:"open_holds"`
	BalanceOK     bool            `json:"balance_ok"`
	HoldOK        bool            `json:"hold_ok"`
}

// Consistent reports whether both checks passed
func (r *AccountReconciliation) Consistent() bool {
	return r.BalanceOK && r.HoldOK
}

// ReconcileReport is the result of a full pass
type ReconcileReport struct {
	Checked    int                      `json:"checked"`
	Mismatches []*AccountReconciliation `json:"mismatches"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// ReconciliationService checks balance == Σcredits − Σdebits per account.
// Mismatches are reported and logged, never corrected.
type ReconciliationService struct {
	accountRepo    repositories.AccountRepository
	txRepo         repositories.TransactionRepository
	withdrawalRepo repositories.WithdrawalRepository
	log            *logger.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	accountRepo repositories.AccountRepository,
	txRepo repositories.TransactionRepository,
	withdrawalRepo repositories.WithdrawalRepository,
	log *logger.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		accountRepo:    accountRepo,
		txRepo:         txRepo,
		withdrawalRepo: withdrawalRepo,
		log:            log,
	}
}

// ReconcileAccount checks one account
func (s *ReconciliationService) ReconcileAccount(ctx context.Context, accountID uint) (*AccountReconciliation, error) {
	account, err := s.accountRepo.GetByIDUnscoped(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	ledgerBalance, err := s.txRepo.SumSigned(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger for account %d: %w", account.ID, err)
	}
	openHolds, err := s.withdrawalRepo.SumOpenByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("sum open withdrawals for account %d: %w", account.ID, err)
	}

	result := &AccountReconciliation{
		AccountID:     account.ID,
		Balance:       account.Balance,
		LedgerBalance: ledgerBalance,
		PendingHold:   account.PendingHoldAmount,
		OpenHolds:     openHolds,
		BalanceOK:     account.Balance.Round(2).Equal(ledgerBalance.Round(2)),
		HoldOK:        account.PendingHoldAmount.Round(2).Equal(openHolds.Round(2)),
	}

	if !result.Consistent() {
		metrics.IntegrityWarnings.WithLabelValues("reconcile").Inc()
		s.log.Integrity(logrus.Fields{
			"account_id":     result.AccountID,
			"balance":        result.Balance.StringFixed(2),
			"ledger_balance": result.LedgerBalance.StringFixed(2),
			"pending_hold":   result.PendingHold.StringFixed(2),
			"open_holds":     result.OpenHolds.StringFixed(2),
		}, "⚠️ Account does not reconcile with ledger")
	}

	return result, nil
}

// ReconcileAll walks every account in id order
func (s *ReconciliationService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{
		Mismatches: []*AccountReconciliation{},
		StartedAt:  time.Now(),
	}

	var afterID uint
	for {
		ids, err := s.accountRepo.ListIDsAfter(ctx, afterID, reconcileBatchSize)
		if err != nil {
			return report, fmt.Errorf("list accounts after %d: %w", afterID, err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			result, err := s.ReconcileAccount(ctx, id)
			if err != nil {
				return report, err
			}
			report.Checked++
			if !result.Consistent() {
				report.Mismatches = append(report.Mismatches, result)
			}
		}
		afterID = ids[len(ids)-1]
	}

	report.FinishedAt = time.Now()
	s.log.WithFields(logrus.Fields{
		"checked":    report.Checked,
		"mismatches": len(report.Mismatches),
		"duration":   report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("🔍 Ledger reconciliation finished")

	return report, nil
}

// ============================================================
// Scheduled reconciliation
// ============================================================

// ReconcileJob runs ReconcileAll on a cron schedule
type ReconcileJob struct {
	service  *ReconciliationService
	cron     *cron.Cron
	schedule string
	log      *logger.Logger
}

// NewReconcileJob creates the job. schedule is a standard 5-field cron expression.
func NewReconcileJob(service *ReconciliationService, schedule string, location *time.Location, log *logger.Logger) (*ReconcileJob, error) {
	if location == nil {
		location = time.UTC
	}

	job := &ReconcileJob{
		service:  service,
		schedule: schedule,
		log:      log,
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}

	if _, err := job.cron.AddFunc(schedule, job.Run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return job, nil
}

// Start launches the scheduler
func (j *ReconcileJob) Start() {
	j.cron.Start()
	j.log.WithField("schedule", j.schedule).Info("🚀 Reconcile job scheduled")
}

// Stop waits for a running pass to finish
func (j *ReconcileJob) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("🛑 Reconcile job stopped")
}

// Run performs one reconciliation pass
func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := j.service.ReconcileAll(ctx); err != nil {
		j.log.WithError(err).Error("❌ Scheduled reconciliation failed")
	}
}
