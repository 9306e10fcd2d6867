package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ============================================================
// Withdrawal state machine
//
//	PENDING -> APPROVED -> COMPLETED
//	PENDING -> REJECTED, APPROVED -> REJECTED
//	PENDING -> CANCELLED
//
// Funds leave the balance as a WITHDRAWAL_HOLD when the request is made.
// COMPLETED settles the hold with an amount-0 marker; REJECTED and
// CANCELLED reverse it with a WITHDRAWAL_REFUND.
// ============================================================

// WithdrawalService manages withdrawal requests
type WithdrawalService struct {
	db             *gorm.DB
	accountRepo    repositories.AccountRepository
	planRepo       repositories.PlanRepository
	withdrawalRepo repositories.WithdrawalRepository
	ledger         *LedgerService
	log            *logger.Logger
	now            func() time.Time
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	planRepo repositories.PlanRepository,
	withdrawalRepo repositories.WithdrawalRepository,
	ledger *LedgerService,
	log *logger.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		db:             db,
		accountRepo:    accountRepo,
		planRepo:       planRepo,
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		log:            log,
		now:            time.Now,
	}
}

// Request holds amount from the balance and opens a PENDING request.
// When the hold cannot be taken no request is created.
func (s *WithdrawalService) Request(ctx context.Context, accountID uint, amount decimal.Decimal) (*models.WithdrawalRequest, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var request *models.WithdrawalRequest
	var hold *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accountRepo.WithTx(tx)
		requests := s.withdrawalRepo.WithTx(tx)

		account, err := accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if account.MembershipPlanID != nil {
			plan, err := s.planRepo.WithTx(tx).GetPlanByID(ctx, *account.MembershipPlanID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if plan != nil && amount.LessThan(plan.MinimumWithdrawal) {
				return fmt.Errorf("%w: minimum is %s", domain.ErrBelowMinimumWithdrawal, plan.MinimumWithdrawal.StringFixed(2))
			}
		}
		if account.Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}

		open, err := requests.CountOpenByAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrWithdrawalInProgress
		}

		request = &models.WithdrawalRequest{
			AccountID:   account.ID,
			Amount:      amount,
			Status:      string(domain.WithdrawalPending),
			RequestedAt: s.now(),
		}
		if err := requests.Create(ctx, request); err != nil {
			return fmt.Errorf("create withdrawal request: %w", err)
		}

		hold, err = s.ledger.DebitTx(ctx, tx, LedgerEntry{
			AccountID:   account.ID,
			Amount:      amount,
			Kind:        domain.KindWithdrawalHold,
			Reference:   requestReference(request.ID),
			Description: fmt.Sprintf("Hold for withdrawal #%d", request.ID),
		})
		if err != nil {
			return err
		}

		request.HoldTransactionID = &hold.ID
		if err := requests.Save(ctx, request); err != nil {
			return err
		}

		return accounts.UpdateFields(ctx, account.ID, map[string]interface{}{
			"pending_hold_amount": account.PendingHoldAmount.Add(amount),
		})
	})
	if err != nil {
		return nil, err
	}

	s.ledger.Publish(hold)
	s.transitioned(request, "💸 Withdrawal requested")
	return request, nil
}

// Approve moves a PENDING request to APPROVED. No funds move.
func (s *WithdrawalService) Approve(ctx context.Context, requestID, adminID uint) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, requestID, 0, []domain.WithdrawalStatus{domain.WithdrawalPending},
		func(tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error) {
			request.Status = string(domain.WithdrawalApproved)
			request.ProcessedBy = &adminID
			return nil, nil
		})
}

// Settle marks an APPROVED request COMPLETED and records the payout reference
func (s *WithdrawalService) Settle(ctx context.Context, requestID uint, externalReference string, adminID uint) (*models.WithdrawalRequest, error) {
	externalReference = strings.TrimSpace(externalReference)
	if externalReference == "" {
		return nil, fmt.Errorf("%w: external reference is required", domain.ErrInvalidInput)
	}

	return s.transition(ctx, requestID, 0, []domain.WithdrawalStatus{domain.WithdrawalApproved},
		func(tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error) {
			marker, err := s.ledger.RecordMarkerTx(ctx, tx, LedgerEntry{
				AccountID:   request.AccountID,
				Amount:      decimal.Zero,
				Kind:        domain.KindWithdrawalSettled,
				Reference:   requestReference(request.ID),
				Description: "Payout " + externalReference,
			})
			if err != nil {
				return nil, err
			}
			if err := s.releaseHold(ctx, tx, request); err != nil {
				return nil, err
			}

			now := s.now()
			request.Status = string(domain.WithdrawalCompleted)
			request.ExternalReference = externalReference
			request.ProcessedAt = &now
			request.ProcessedBy = &adminID
			return []*models.Transaction{marker}, nil
		})
}

// Reject refunds the hold of a PENDING or APPROVED request
func (s *WithdrawalService) Reject(ctx context.Context, requestID, adminID uint, reason string) (*models.WithdrawalRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrInvalidInput)
	}

	return s.transition(ctx, requestID, 0, []domain.WithdrawalStatus{domain.WithdrawalPending, domain.WithdrawalApproved},
		func(tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error) {
			refund, err := s.refund(ctx, tx, request)
			if err != nil {
				return nil, err
			}

			now := s.now()
			request.Status = string(domain.WithdrawalRejected)
			request.RejectionReason = reason
			request.ProcessedAt = &now
			request.ProcessedBy = &adminID
			return refund, nil
		})
}

// Cancel refunds the hold of the caller's own PENDING request
func (s *WithdrawalService) Cancel(ctx context.Context, requestID, accountID uint) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, requestID, accountID, []domain.WithdrawalStatus{domain.WithdrawalPending},
		func(tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error) {
			refund, err := s.refund(ctx, tx, request)
			if err != nil {
				return nil, err
			}

			now := s.now()
			request.Status = string(domain.WithdrawalCancelled)
			request.ProcessedAt = &now
			return refund, nil
		})
}

// GetRequest gets one request
func (s *WithdrawalService) GetRequest(ctx context.Context, requestID uint) (*models.WithdrawalRequest, error) {
	request, err := s.withdrawalRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return request, nil
}

// ListByAccount lists an account's requests, newest first
func (s *WithdrawalService) ListByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.ListByAccount(ctx, accountID, offset, limit)
}

// ListByStatus lists requests in a status for the admin queue
func (s *WithdrawalService) ListByStatus(ctx context.Context, status domain.WithdrawalStatus, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.ListByStatus(ctx, string(status), offset, limit)
}

// transition locks the request, guards its status and persists the change
// made by apply together with any ledger entries apply appends.
// A terminal request yields ErrAlreadyProcessed with the request unchanged.
// A non-zero ownerID hides requests of other accounts behind ErrNotFound.
func (s *WithdrawalService) transition(
	ctx context.Context,
	requestID uint,
	ownerID uint,
	from []domain.WithdrawalStatus,
	apply func(tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error),
) (*models.WithdrawalRequest, error) {
	var request *models.WithdrawalRequest
	var txns []*models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.withdrawalRepo.WithTx(tx)

		var err error
		request, err = requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if ownerID != 0 && request.AccountID != ownerID {
			return domain.ErrNotFound
		}
		if err := guardTransition(domain.WithdrawalStatus(request.Status), from); err != nil {
			return err
		}

		txns, err = apply(tx, request)
		if err != nil {
			return err
		}
		return requests.Save(ctx, request)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return request, err
		}
		return nil, err
	}

	s.ledger.Publish(txns...)
	s.transitioned(request, "🔄 Withdrawal "+strings.ToLower(request.Status))
	return request, nil
}

// guardTransition rejects transitions out of terminal states first so a
// retried action never moves funds twice.
func guardTransition(current domain.WithdrawalStatus, from []domain.WithdrawalStatus) error {
	if current.IsTerminal() {
		return domain.ErrAlreadyProcessed
	}
	for _, allowed := range from {
		if current == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: request is %s", domain.ErrInvalidTransition, current)
}

// refund reverses the hold and releases it from the pending total
func (s *WithdrawalService) refund(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest) ([]*models.Transaction, error) {
	holdID, err := s.holdID(ctx, tx, request)
	if err != nil {
		return nil, err
	}

	refund, created, err := s.ledger.ReverseTx(ctx, tx, holdID)
	if err != nil {
		return nil, fmt.Errorf("refund withdrawal #%d: %w", request.ID, err)
	}
	if err := s.releaseHold(ctx, tx, request); err != nil {
		return nil, err
	}

	if !created {
		return nil, nil
	}
	return []*models.Transaction{refund}, nil
}

func (s *WithdrawalService) holdID(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest) (uint, error) {
	if request.HoldTransactionID != nil {
		return *request.HoldTransactionID, nil
	}

	hold, err := s.ledger.txRepo.WithTx(tx).GetByKindAndReference(ctx, string(domain.KindWithdrawalHold), requestReference(request.ID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Integrity(logrus.Fields{"withdrawal_id": request.ID}, "⚠️ Withdrawal has no hold transaction")
			metrics.IntegrityWarnings.WithLabelValues("withdrawal_hold").Inc()
			return 0, fmt.Errorf("%w: withdrawal #%d has no hold", domain.ErrDataIntegrity, request.ID)
		}
		return 0, err
	}
	return hold.ID, nil
}

// releaseHold removes the request amount from the cached pending hold total
func (s *WithdrawalService) releaseHold(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest) error {
	accounts := s.accountRepo.WithTx(tx)

	account, err := accounts.GetByIDForUpdate(ctx, request.AccountID)
	if err != nil {
		return err
	}

	pending := account.PendingHoldAmount.Sub(request.Amount)
	if pending.IsNegative() {
		s.log.Integrity(logrus.Fields{
			"account_id":    account.ID,
			"withdrawal_id": request.ID,
			"pending_hold":  account.PendingHoldAmount.StringFixed(2),
		}, "⚠️ Pending hold total below released amount, clamping to zero")
		metrics.IntegrityWarnings.WithLabelValues("pending_hold").Inc()
		pending = decimal.Zero
	}

	return accounts.UpdateFields(ctx, account.ID, map[string]interface{}{
		"pending_hold_amount": pending,
	})
}

func (s *WithdrawalService) transitioned(request *models.WithdrawalRequest, msg string) {
	metrics.WithdrawalTransitions.WithLabelValues(request.Status).Inc()
	s.log.WithFields(logrus.Fields{
		"withdrawal_id": request.ID,
		"account_id":    request.AccountID,
		"amount":        request.Amount.StringFixed(2),
		"status":        request.Status,
	}).Info(msg)
}

func requestReference(requestID uint) string {
	return strconv.FormatUint(uint64(requestID), 10)
}
