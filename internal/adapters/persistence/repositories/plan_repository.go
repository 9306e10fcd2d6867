package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// planRepository implements PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) WithTx(tx *gorm.DB) PlanRepository {
	return &planRepository{db: tx}
}

// GetPlanByID gets a membership plan by ID
func (r *planRepository) GetPlanByID(ctx context.Context, id uint) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlanByCode gets a membership plan by code
func (r *planRepository) GetPlanByCode(ctx context.Context, code string) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans lists membership plans ordered by price
func (r *planRepository) ListPlans(ctx context.Context, activeOnly bool) ([]*models.MembershipPlan, error) {
	var plans []*models.MembershipPlan
	query := r.db.WithContext(ctx).Order("price ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&plans).Error
	return plans, err
}

// UpsertPlan inserts a plan or updates it by code
func (r *planRepository) UpsertPlan(ctx context.Context, plan *models.MembershipPlan) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price", "tasks_per_day", "daily_task_earning", "minimum_withdrawal",
			"commission_basis_amount", "voucher_amount", "duration_days", "is_active", "updated_at",
		}),
	}).Create(plan).Error
}

// ListCommissionRates lists all commission rates ordered by level.
// Read on every distribution so table edits apply without a restart.
func (r *planRepository) ListCommissionRates(ctx context.Context) ([]*models.CommissionRate, error) {
	var rates []*models.CommissionRate
	err := r.db.WithContext(ctx).Order("level ASC").Find(&rates).Error
	return rates, err
}

// UpsertCommissionRate inserts a rate or updates it by level
func (r *planRepository) UpsertCommissionRate(ctx context.Context, rate *models.CommissionRate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "fixed_amount", "is_active", "updated_at"}),
	}).Create(rate).Error
}
