package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withdrawalRepository implements WithdrawalRepository interface
type withdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: tx}
}

// Create creates a withdrawal request
func (r *withdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// Save persists all fields of an existing request
func (r *withdrawalRepository) Save(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(request).Error
}

// GetByID gets a request by ID
func (r *withdrawalRepository) GetByID(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate locks the request row
func (r *withdrawalRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByAccount lists an account's requests, newest first
func (r *withdrawalRepository) ListByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	var requests []*models.WithdrawalRequest
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("account_id = ?", accountID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error

	return requests, total, err
}

// ListByStatus lists requests in a status, oldest first
func (r *withdrawalRepository) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*models.WithdrawalRequest, int64, error) {
	var requests []*models.WithdrawalRequest
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("status = ?", status).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("status = ?", status).
		Order("requested_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error

	return requests, total, err
}

// CountOpenByAccount counts PENDING or APPROVED requests of an account
func (r *withdrawalRepository) CountOpenByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("account_id = ? AND status IN ?", accountID, openStatuses()).
		Count(&count).Error
	return count, err
}

// SumOpenByAccount sums the amounts still held by open requests
func (r *withdrawalRepository) SumOpenByAccount(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("account_id = ? AND status IN ?", accountID, openStatuses()).
		Row().Scan(&sum)
	return sum, err
}

// CountAndSumByStatus counts and sums requests across statuses
func (r *withdrawalRepository) CountAndSumByStatus(ctx context.Context, statuses ...string) (int64, decimal.Decimal, error) {
	var count int64
	var sum decimal.Decimal

	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("COUNT(*), COALESCE(SUM(amount), 0)").
		Where("status IN ?", statuses).
		Row().Scan(&count, &sum)
	return count, sum, err
}

func openStatuses() []string {
	return []string{string(domain.WithdrawalPending), string(domain.WithdrawalApproved)}
}
