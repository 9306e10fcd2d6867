package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerEntry describes one balance movement requested by a caller
type LedgerEntry struct {
	AccountID   uint
	Amount      decimal.Decimal
	Kind        domain.TransactionKind
	Reference   string
	Description string
}

// LedgerService is the only writer of account balances and the transaction log.
//
// Every mutation locks the account row (SELECT ... FOR UPDATE) inside a
// database transaction, checks the (kind, reference) pair is unused, updates
// the account and appends exactly one COMPLETED transaction. The *Tx variants
// run inside a caller-owned transaction so the caller's own writes commit or
// roll back together with the ledger entry; such callers publish events after
// commit themselves.
type LedgerService struct {
	db          *gorm.DB
	accountRepo repositories.AccountRepository
	txRepo      repositories.TransactionRepository
	events      *EventDispatcher
	log         *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	txRepo repositories.TransactionRepository,
	events *EventDispatcher,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		db:          db,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		events:      events,
		log:         log,
	}
}

// Credit adds entry.Amount to the balance in its own transaction
func (s *LedgerService) Credit(ctx context.Context, entry LedgerEntry) (*models.Transaction, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (*models.Transaction, error) {
		return s.CreditTx(ctx, tx, entry)
	})
}

// Debit removes entry.Amount from the balance in its own transaction.
// Fails with ErrInsufficientBalance and changes nothing when funds are short.
func (s *LedgerService) Debit(ctx context.Context, entry LedgerEntry) (*models.Transaction, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (*models.Transaction, error) {
		return s.DebitTx(ctx, tx, entry)
	})
}

// Reverse appends the compensating entry for transactionID.
// Reversing twice returns the existing compensating entry. Withdrawal holds
// are refused here; they are released by rejecting or cancelling the request.
func (s *LedgerService) Reverse(ctx context.Context, transactionID uint) (*models.Transaction, error) {
	var created bool
	var reversal *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.txRepo.WithTx(tx).GetByID(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("transaction %d: %w", transactionID, domain.ErrNotFound)
			}
			return err
		}
		if original.Kind == string(domain.KindWithdrawalHold) {
			return fmt.Errorf("%w: withdrawal holds are released through their request", domain.ErrInvalidInput)
		}

		reversal, created, err = s.ReverseTx(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.events.PublishTransactions(reversal)
	}
	return reversal, nil
}

// CreditTx is Credit inside the caller's transaction
func (s *LedgerService) CreditTx(ctx context.Context, tx *gorm.DB, entry LedgerEntry) (*models.Transaction, error) {
	return s.post(ctx, tx, entry, domain.DirectionCredit, nil)
}

// DebitTx is Debit inside the caller's transaction
func (s *LedgerService) DebitTx(ctx context.Context, tx *gorm.DB, entry LedgerEntry) (*models.Transaction, error) {
	return s.post(ctx, tx, entry, domain.DirectionDebit, nil)
}

// RecordMarkerTx appends an amount-0 audit entry that leaves the balance untouched
func (s *LedgerService) RecordMarkerTx(ctx context.Context, tx *gorm.DB, entry LedgerEntry) (*models.Transaction, error) {
	return s.post(ctx, tx, entry, domain.DirectionNone, nil)
}

// ReverseTx is Reverse inside the caller's transaction. created is false when
// the transaction had already been reversed and the existing entry is returned.
func (s *LedgerService) ReverseTx(ctx context.Context, tx *gorm.DB, transactionID uint) (*models.Transaction, bool, error) {
	txns := s.txRepo.WithTx(tx)

	original, err := txns.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("transaction %d: %w", transactionID, domain.ErrNotFound)
		}
		return nil, false, err
	}
	if original.ReversesID != nil || original.Direction == string(domain.DirectionNone) {
		return nil, false, fmt.Errorf("%w: transaction %d cannot be reversed", domain.ErrInvalidInput, transactionID)
	}

	// Serialize with every other mutation on the account before the
	// existence check so two concurrent reversals cannot both pass it.
	if _, err := s.accountRepo.WithTx(tx).GetByIDForUpdate(ctx, original.AccountID); err != nil {
		return nil, false, s.accountError(original.AccountID, err)
	}

	existing, err := txns.GetReversalOf(ctx, original.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	kind := domain.KindAdjustment
	reference := "reversal:" + strconv.FormatUint(uint64(original.ID), 10)
	if domain.TransactionKind(original.Kind) == domain.KindWithdrawalHold {
		kind = domain.KindWithdrawalRefund
		reference = original.Reference
	}

	reversal, err := s.post(ctx, tx, LedgerEntry{
		AccountID:   original.AccountID,
		Amount:      original.Amount,
		Kind:        kind,
		Reference:   reference,
		Description: fmt.Sprintf("Reversal of transaction #%d", original.ID),
	}, domain.Direction(original.Direction).Opposite(), &original.ID)
	if err != nil {
		return nil, false, err
	}
	return reversal, true, nil
}

// Publish emits events for transactions committed by a caller-owned transaction
func (s *LedgerService) Publish(txns ...*models.Transaction) {
	s.events.PublishTransactions(txns...)
}

// AdjustInput represents an admin balance adjustment
type AdjustInput struct {
	AccountID uint             `json:"account_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Direction domain.Direction `json:"direction"`
	Reference string           `json:"reference"`
	Note      string           `json:"note"`
}

// Adjust posts an ADJUSTMENT credit or debit. An empty reference gets a generated one.
func (s *LedgerService) Adjust(ctx context.Context, input *AdjustInput) (*models.Transaction, error) {
	reference := input.Reference
	if reference == "" {
		reference = "adj:" + uuid.NewString()
	}

	entry := LedgerEntry{
		AccountID:   input.AccountID,
		Amount:      input.Amount,
		Kind:        domain.KindAdjustment,
		Reference:   reference,
		Description: input.Note,
	}

	switch input.Direction {
	case domain.DirectionCredit:
		return s.Credit(ctx, entry)
	case domain.DirectionDebit:
		return s.Debit(ctx, entry)
	default:
		return nil, fmt.Errorf("%w: direction must be CREDIT or DEBIT", domain.ErrInvalidInput)
	}
}

// GetTransaction gets one ledger entry
func (s *LedgerService) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return txn, nil
}

// ReferenceExists reports whether an entry with kind and reference was appended
func (s *LedgerService) ReferenceExists(ctx context.Context, kind domain.TransactionKind, reference string) (bool, error) {
	return s.txRepo.ExistsByKindAndReference(ctx, string(kind), reference)
}

// ReferenceExistsTx is ReferenceExists inside the caller's transaction
func (s *LedgerService) ReferenceExistsTx(ctx context.Context, tx *gorm.DB, kind domain.TransactionKind, reference string) (bool, error) {
	return s.txRepo.WithTx(tx).ExistsByKindAndReference(ctx, string(kind), reference)
}

func (s *LedgerService) inTx(ctx context.Context, fn func(tx *gorm.DB) (*models.Transaction, error)) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishTransactions(txn)
	return txn, nil
}

// post is the single funnel for balance mutation
func (s *LedgerService) post(ctx context.Context, tx *gorm.DB, entry LedgerEntry, direction domain.Direction, reverses *uint) (*models.Transaction, error) {
	if !entry.Kind.IsValid() || !entry.Kind.Allows(direction) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrInvalidKind, entry.Kind, direction)
	}
	if entry.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", domain.ErrInvalidInput)
	}
	// Amounts are stored to the cent; a sub-cent credit would land as 0.00.
	amount := entry.Amount.Round(2)
	if direction == domain.DirectionNone {
		if !entry.Amount.IsZero() {
			return nil, fmt.Errorf("%w: marker entries carry no amount", domain.ErrInvalidInput)
		}
	} else if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	accounts := s.accountRepo.WithTx(tx)
	txns := s.txRepo.WithTx(tx)

	account, err := accounts.GetByIDForUpdate(ctx, entry.AccountID)
	if err != nil {
		return nil, s.accountError(entry.AccountID, err)
	}

	used, err := txns.ExistsByKindAndReference(ctx, string(entry.Kind), entry.Reference)
	if err != nil {
		return nil, fmt.Errorf("check reference: %w", err)
	}
	if used {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrDuplicateReference, entry.Kind, entry.Reference)
	}

	balance := account.Balance
	fields := map[string]interface{}{}

	switch direction {
	case domain.DirectionCredit:
		balance = balance.Add(amount)
		fields["balance"] = balance
		// A compensating credit restores funds; it earns nothing.
		if entry.Kind.IsEarning() && reverses == nil {
			fields["total_earnings"] = account.TotalEarnings.Add(amount)
		}
		if entry.Kind == domain.KindReferralCommission {
			fields["referral_earnings"] = account.ReferralEarnings.Add(amount)
		}
	case domain.DirectionDebit:
		if balance.LessThan(amount) {
			return nil, domain.ErrInsufficientBalance
		}
		balance = balance.Sub(amount)
		fields["balance"] = balance
	}

	if len(fields) > 0 {
		if err := accounts.UpdateFields(ctx, account.ID, fields); err != nil {
			return nil, fmt.Errorf("update account balance: %w", err)
		}
	}

	txn := &models.Transaction{
		AccountID:    account.ID,
		Kind:         string(entry.Kind),
		Direction:    string(direction),
		Amount:       amount,
		BalanceAfter: balance,
		Status:       string(domain.TxStatusCompleted),
		Reference:    entry.Reference,
		ReversesID:   reverses,
		Description:  entry.Description,
	}
	if err := txns.Create(ctx, txn); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s %s", domain.ErrDuplicateReference, entry.Kind, entry.Reference)
		}
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	metrics.LedgerTransactions.WithLabelValues(txn.Kind, txn.Direction).Inc()
	s.log.WithFields(logrus.Fields{
		"account_id": txn.AccountID,
		"kind":       txn.Kind,
		"direction":  txn.Direction,
		"amount":     txn.Amount.StringFixed(2),
		"reference":  txn.Reference,
	}).Debug("💰 Ledger entry appended")

	return txn, nil
}

func (s *LedgerService) accountError(accountID uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("account %d: %w", accountID, domain.ErrNotFound)
	}
	return fmt.Errorf("lock account %d: %w", accountID, err)
}
