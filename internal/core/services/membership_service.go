package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MembershipService activates paid plans. Activation is the event that
// triggers voucher credit and the commission fan-out.
type MembershipService struct {
	db          *gorm.DB
	accountRepo repositories.AccountRepository
	planRepo    repositories.PlanRepository
	ledger      *LedgerService
	commission  *CommissionService
	log         *logger.Logger
	now         func() time.Time
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	planRepo repositories.PlanRepository,
	ledger *LedgerService,
	commission *CommissionService,
	log *logger.Logger,
) *MembershipService {
	return &MembershipService{
		db:          db,
		accountRepo: accountRepo,
		planRepo:    planRepo,
		ledger:      ledger,
		commission:  commission,
		log:         log,
		now:         time.Now,
	}
}

// ActivationResult is returned by Activate
type ActivationResult struct {
	BatchID     string                  `json:"batch_id"`
	Account     *models.AccountResponse `json:"account"`
	Voucher     *models.Transaction     `json:"voucher,omitempty"`
	Commissions []*models.Transaction   `json:"commissions"`
}

// ListPlans returns plans available for purchase
func (s *MembershipService) ListPlans(ctx context.Context) ([]*models.MembershipPlan, error) {
	return s.planRepo.ListPlans(ctx, true)
}

// Activate puts accountID on planID, credits the plan voucher and distributes
// commission on the plan's basis. Re-running with the same batchID does not
// credit the voucher or any commission level twice. A distribution failure
// returns the partial result alongside the error.
func (s *MembershipService) Activate(ctx context.Context, accountID, planID uint, batchID string) (*ActivationResult, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}

	plan, err := s.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %d: %w", planID, domain.ErrNotFound)
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan %s is not available", domain.ErrInvalidInput, plan.Code)
	}

	var voucher *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accountRepo.WithTx(tx)

		account, err := accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
			}
			return err
		}
		if !account.IsActive {
			return domain.ErrAccessDenied
		}

		expiry := s.now().AddDate(0, 0, plan.DurationDays)
		if err := accounts.UpdateFields(ctx, account.ID, map[string]interface{}{
			"membership_status":    string(domain.MembershipActive),
			"membership_plan_id":   plan.ID,
			"earnings_expiry_date": expiry,
		}); err != nil {
			return fmt.Errorf("activate membership: %w", err)
		}

		if !plan.VoucherAmount.IsPositive() {
			return nil
		}
		credited, err := s.ledger.ReferenceExistsTx(ctx, tx, domain.KindVoucherCredit, batchID)
		if err != nil || credited {
			return err
		}

		voucher, err = s.ledger.CreditTx(ctx, tx, LedgerEntry{
			AccountID:   account.ID,
			Amount:      plan.VoucherAmount,
			Kind:        domain.KindVoucherCredit,
			Reference:   batchID,
			Description: fmt.Sprintf("%s plan voucher", plan.Name),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Publish(voucher)

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"plan":       plan.Code,
		"batch_id":   batchID,
	}).Info("✅ Membership activated")

	commissions, err := s.commission.Distribute(ctx, accountID, plan.CommissionBasisAmount, batchID)
	if err != nil {
		// Membership is already committed; the batch id lets the caller retry the payout.
		return &ActivationResult{
			BatchID:     batchID,
			Voucher:     voucher,
			Commissions: commissions,
		}, fmt.Errorf("distribute commission for batch %s: %w", batchID, err)
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &ActivationResult{
		BatchID:     batchID,
		Account:     account.ToResponse(),
		Voucher:     voucher,
		Commissions: commissions,
	}, nil
}
