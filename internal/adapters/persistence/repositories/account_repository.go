package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *accountRepository) WithTx(tx *gorm.DB) AccountRepository {
	return &accountRepository{db: tx}
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID gets an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByIDForUpdate loads the account row under SELECT ... FOR UPDATE.
// Must be called on a repository bound to a transaction.
func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByIDUnscoped gets an account including soft-deactivated ones
func (r *accountRepository) GetByIDUnscoped(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByUsername gets an account by username
func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByReferralCode resolves a referral code, including soft-deleted accounts
// so a sponsor chain can be walked past deactivated members.
func (r *accountRepository) GetByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Unscoped().Where("referral_code = ?", code).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateFields updates selected columns
func (r *accountRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(fields).Error
}

// ExistsByUsername checks if username exists
func (r *accountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Account{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Account{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// ExistsByReferralCode checks if a referral code is taken
func (r *accountRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Account{}).Where("referral_code = ?", code).Count(&count).Error
	return count > 0, err
}

// ListIDsAfter returns up to limit account IDs greater than afterID, in order
func (r *accountRepository) ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Account{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// ListReferrals lists accounts sponsored by code
func (r *accountRepository) ListReferrals(ctx context.Context, code string, offset, limit int) ([]*models.Account, int64, error) {
	var accounts []*models.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Account{}).Where("sponsor_code = ?", code)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("sponsor_code = ?", code).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&accounts).Error

	return accounts, total, err
}

// CountByMembershipStatus counts accounts grouped by membership status
func (r *accountRepository) CountByMembershipStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		MembershipStatus string
		Total            int64
	}
	err := r.db.WithContext(ctx).Model(&models.Account{}).
		Select("membership_status, COUNT(*) AS total").
		Group("membership_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.MembershipStatus] = row.Total
	}
	return result, nil
}

// SumBalances sums spendable balances over all accounts
func (r *accountRepository) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Row().Scan(&total)
	return total, err
}
