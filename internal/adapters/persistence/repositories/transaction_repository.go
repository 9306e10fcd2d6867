package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new ledger transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) GetByKindAndReference(ctx context.Context, kind, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("kind = ? AND reference = ?", kind, reference).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) ExistsByKindAndReference(ctx context.Context, kind, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("kind = ? AND reference = ?", kind, reference).
		Count(&count).Error
	return count > 0, err
}

// GetReversalOf returns the compensating entry for originalID
func (r *transactionRepository) GetReversalOf(ctx context.Context, originalID uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("reverses_id = ?", originalID).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByAccount lists an account's entries, newest first
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error) {
	var txns []*models.Transaction
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&txns).Error

	return txns, total, err
}

// SumSigned returns Σcredits − Σdebits over COMPLETED entries of an account
func (r *transactionRepository) SumSigned(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount WHEN direction = ? THEN -amount ELSE 0 END), 0)",
			string(domain.DirectionCredit), string(domain.DirectionDebit)).
		Where("account_id = ? AND status = ?", accountID, string(domain.TxStatusCompleted)).
		Row().Scan(&sum)
	return sum, err
}
