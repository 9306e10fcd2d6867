package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role values
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ============================================================
// Accounts & Plans
// ============================================================

// Account represents accounts table. One per member.
// Balance fields change only through the ledger service.
type Account struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Username           string          `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email              string          `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password           string          `gorm:"size:255;not null" json:"-"`
	Role               string          `gorm:"size:20;default:'USER'" json:"role"`
	ReferralCode       string          `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	SponsorCode        *string         `gorm:"index;size:20" json:"sponsor_code"`
	Balance            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	TotalEarnings      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_earnings"`
	ReferralEarnings   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"referral_earnings"`
	PendingHoldAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"pending_hold_amount"`
	MembershipStatus   string          `gorm:"size:20;default:'INACTIVE';index" json:"membership_status"`
	MembershipPlanID   *uint           `gorm:"index" json:"membership_plan_id"`
	DailyTaskCount     int             `gorm:"default:0" json:"daily_task_count"`
	LastTaskDate       *time.Time      `json:"last_task_date"`
	EarningsExpiryDate *time.Time      `json:"earnings_expiry_date"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`

	MembershipPlan *MembershipPlan `gorm:"foreignKey:MembershipPlanID" json:"membership_plan,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountResponse DTO
type AccountResponse struct {
	ID                 uint            `json:"id"`
	Username           string          `json:"username"`
	Email              string          `json:"email"`
	Role               string          `json:"role"`
	ReferralCode       string          `json:"referral_code"`
	SponsorCode        *string         `json:"sponsor_code,omitempty"`
	Balance            decimal.Decimal `json:"balance"`
	TotalEarnings      decimal.Decimal `json:"total_earnings"`
	ReferralEarnings   decimal.Decimal `json:"referral_earnings"`
	PendingHoldAmount  decimal.Decimal `json:"pending_hold_amount"`
	MembershipStatus   string          `json:"membership_status"`
	MembershipPlanID   *uint           `json:"membership_plan_id,omitempty"`
	EarningsExpiryDate *time.Time      `json:"earnings_expiry_date,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:                 a.ID,
		Username:           a.Username,
		Email:              a.Email,
		Role:               a.Role,
		ReferralCode:       a.ReferralCode,
		SponsorCode:        a.SponsorCode,
		Balance:            a.Balance,
		TotalEarnings:      a.TotalEarnings,
		ReferralEarnings:   a.ReferralEarnings,
		PendingHoldAmount:  a.PendingHoldAmount,
		MembershipStatus:   a.MembershipStatus,
		MembershipPlanID:   a.MembershipPlanID,
		EarningsExpiryDate: a.EarningsExpiryDate,
		IsActive:           a.IsActive,
		CreatedAt:          a.CreatedAt,
	}
}

// MembershipPlan represents membership_plans table (read-only for the ledger)
type MembershipPlan struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Code                  string          `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name                  string          `gorm:"size:100;not null" json:"name"`
	Price                 decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	TasksPerDay           int             `gorm:"not null" json:"tasks_per_day"`
	DailyTaskEarning      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"daily_task_earning"`
	MinimumWithdrawal     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"minimum_withdrawal"`
	CommissionBasisAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"commission_basis_amount"`
	VoucherAmount         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"voucher_amount"`
	DurationDays          int             `gorm:"not null" json:"duration_days"`
	IsActive              bool            `gorm:"default:true" json:"is_active"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MembershipPlan) TableName() string {
	return "membership_plans"
}

// CommissionRate represents commission_rates table, one row per level (1..5).
// Percentage and FixedAmount are mutually exclusive.
type CommissionRate struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Level       int                 `gorm:"uniqueIndex;not null" json:"level"`
	Percentage  decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"percentage"`
	FixedAmount decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"fixed_amount"`
	IsActive    bool                `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommissionRate) TableName() string {
	return "commission_rates"
}

// IsValid reports whether exactly one of Percentage and FixedAmount is set
func (r *CommissionRate) IsValid() bool {
	return r.Percentage.Valid != r.FixedAmount.Valid
}

// AmountFor computes the payout for this level against basis.
// Percentage is expressed in percent (20 means 20%).
func (r *CommissionRate) AmountFor(basis decimal.Decimal) decimal.Decimal {
	if r.FixedAmount.Valid {
		return r.FixedAmount.Decimal.Round(2)
	}
	if r.Percentage.Valid {
		return basis.Mul(r.Percentage.Decimal).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Zero
}

// ============================================================
// Ledger
// ============================================================

// Transaction represents the append-only transactions table.
// Rows are never updated after insert.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AccountID    uint            `gorm:"index;not null" json:"account_id"`
	Kind         string          `gorm:"size:30;not null;uniqueIndex:idx_transactions_kind_reference,priority:1" json:"kind"`
	Direction    string          `gorm:"size:10;not null" json:"direction"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Status       string          `gorm:"size:20;not null;default:'COMPLETED';index" json:"status"`
	Reference    string          `gorm:"size:100;not null;uniqueIndex:idx_transactions_kind_reference,priority:2" json:"reference"`
	ReversesID   *uint           `gorm:"uniqueIndex" json:"reverses_id,omitempty"`
	Description  string          `gorm:"size:255" json:"description"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// ============================================================
// Tasks
// ============================================================

// Task represents tasks table (engagement task catalog)
type Task struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"size:200;not null" json:"title"`
	URL            string          `gorm:"size:500" json:"url"`
	RewardAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"reward_amount"`
	RequiresReview bool            `gorm:"default:false" json:"requires_review"`
	IsActive       bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskCompletion represents task_completions table, unique per (account, task)
type TaskCompletion struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	AccountID         uint            `gorm:"not null;uniqueIndex:idx_task_completions_account_task,priority:1" json:"account_id"`
	TaskID            uint            `gorm:"not null;uniqueIndex:idx_task_completions_account_task,priority:2" json:"task_id"`
	Status            string          `gorm:"size:20;not null;index" json:"status"`
	RewardAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"reward_amount"`
	VerificationScore int             `gorm:"default:0" json:"verification_score"`
	ReviewNotes       string          `gorm:"type:text" json:"review_notes,omitempty"`
	ReviewedBy        *uint           `json:"reviewed_by,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (TaskCompletion) TableName() string {
	return "task_completions"
}

// ============================================================
// Withdrawals
// ============================================================

// WithdrawalRequest represents withdrawal_requests table
type WithdrawalRequest struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	AccountID         uint            `gorm:"index;not null" json:"account_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status            string          `gorm:"size:20;not null;index" json:"status"`
	HoldTransactionID *uint           `json:"hold_transaction_id"`
	ExternalReference string          `gorm:"size:100" json:"external_reference,omitempty"`
	RequestedAt       time.Time       `gorm:"not null" json:"requested_at"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	ProcessedBy       *uint           `json:"processed_by"`
	RejectionReason   string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&MembershipPlan{},
		&CommissionRate{},
		&Account{},
		&Transaction{},
		&Task{},
		&TaskCompletion{},
		&WithdrawalRequest{},
	)
}
