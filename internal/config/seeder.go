package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/password"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedFile is the layout of the TOML seed file. Amounts are strings so
// they parse exactly into decimals.
type SeedFile struct {
	Plans           []PlanSeed `toml:"plans"`
	CommissionRates []RateSeed `toml:"commission_rates"`
	Tasks           []TaskSeed `toml:"tasks"`
}

// PlanSeed describes one membership plan
type PlanSeed struct {
	Code                  string `toml:"code"`
	Name                  string `toml:"name"`
	Price                 string `toml:"price"`
	TasksPerDay           int    `toml:"tasks_per_day"`
	DailyTaskEarning      string `toml:"daily_task_earning"`
	MinimumWithdrawal     string `toml:"minimum_withdrawal"`
	CommissionBasisAmount string `toml:"commission_basis_amount"`
	VoucherAmount         string `toml:"voucher_amount"`
	DurationDays          int    `toml:"duration_days"`
}

// RateSeed describes the commission of one level. Set exactly one of
// Percentage and FixedAmount.
type RateSeed struct {
	Level       int    `toml:"level"`
	Percentage  string `toml:"percentage"`
	FixedAmount string `toml:"fixed_amount"`
	Active      *bool  `toml:"active"`
}

// TaskSeed describes one catalog task
type TaskSeed struct {
	Title          string `toml:"title"`
	URL            string `toml:"url"`
	RewardAmount   string `toml:"reward_amount"`
	RequiresReview bool   `toml:"requires_review"`
}

// DefaultSeed is used when no seed file exists
func DefaultSeed() *SeedFile {
	return &SeedFile{
		Plans: []PlanSeed{
			{Code: "BASIC", Name: "Basic", Price: "3000", TasksPerDay: 5, DailyTaskEarning: "30", MinimumWithdrawal: "500", CommissionBasisAmount: "3000", VoucherAmount: "0", DurationDays: 30},
			{Code: "STANDARD", Name: "Standard", Price: "6000", TasksPerDay: 10, DailyTaskEarning: "40", MinimumWithdrawal: "1000", CommissionBasisAmount: "6000", VoucherAmount: "200", DurationDays: 60},
			{Code: "PREMIUM", Name: "Premium", Price: "12000", TasksPerDay: 15, DailyTaskEarning: "60", MinimumWithdrawal: "1500", CommissionBasisAmount: "12000", VoucherAmount: "500", DurationDays: 90},
		},
		CommissionRates: []RateSeed{
			{Level: 1, Percentage: "20"},
			{Level: 2, Percentage: "10"},
			{Level: 3, Percentage: "5"},
			{Level: 4, Percentage: "3"},
			{Level: 5, Percentage: "2"},
		},
	}
}

// LoadSeedFile reads path. A missing file yields DefaultSeed.
func LoadSeedFile(path string) (*SeedFile, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ Seed file %s not found, using built-in defaults", path)
		return DefaultSeed(), nil
	}

	var seed SeedFile
	meta, err := toml.DecodeFile(path, &seed)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		log.Printf("⚠️ Seed file %s: unknown key %s ignored", path, key.String())
	}
	return &seed, nil
}

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders. Plans and rates are upserted by code and level
// so edits to the seed file are applied on the next start.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	seed, err := LoadSeedFile(s.cfg.Seed.File)
	if err != nil {
		return err
	}

	if err := s.Apply(seed); err != nil {
		return err
	}

	if err := s.seedAdminAccount(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// Apply writes plans, commission rates and tasks from seed
func (s *Seeder) Apply(seed *SeedFile) error {
	for _, p := range seed.Plans {
		plan, err := p.toModel()
		if err != nil {
			return fmt.Errorf("plan %s: %w", p.Code, err)
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "price", "tasks_per_day", "daily_task_earning", "minimum_withdrawal",
				"commission_basis_amount", "voucher_amount", "duration_days", "updated_at",
			}),
		}).Create(plan).Error
		if err != nil {
			return fmt.Errorf("upsert plan %s: %w", p.Code, err)
		}
	}

	for _, r := range seed.CommissionRates {
		rate, err := r.toModel()
		if err != nil {
			return fmt.Errorf("commission level %d: %w", r.Level, err)
		}
		active := rate.IsActive
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level"}},
			DoUpdates: clause.AssignmentColumns([]string{"percentage", "fixed_amount", "is_active", "updated_at"}),
		}).Create(rate).Error
		if err != nil {
			return fmt.Errorf("upsert commission level %d: %w", r.Level, err)
		}
		// is_active has a column default, so gorm drops a false value on insert
		// and may read the default back into rate. Write the seeded flag.
		if err := s.db.Model(&models.CommissionRate{}).Where("level = ?", r.Level).
			Update("is_active", active).Error; err != nil {
			return fmt.Errorf("set commission level %d active=%t: %w", r.Level, active, err)
		}
	}

	for _, t := range seed.Tasks {
		var count int64
		if err := s.db.Model(&models.Task{}).Where("title = ?", t.Title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		reward, err := parseAmount(t.RewardAmount)
		if err != nil {
			return fmt.Errorf("task %q: %w", t.Title, err)
		}
		task := &models.Task{
			Title:          t.Title,
			URL:            t.URL,
			RewardAmount:   reward,
			RequiresReview: t.RequiresReview,
			IsActive:       true,
		}
		if err := s.db.Create(task).Error; err != nil {
			return fmt.Errorf("create task %q: %w", t.Title, err)
		}
	}

	log.Printf("✅ Seeded %d plans, %d commission levels, %d tasks",
		len(seed.Plans), len(seed.CommissionRates), len(seed.Tasks))
	return nil
}

// seedAdminAccount creates the first admin when a password is configured
func (s *Seeder) seedAdminAccount() error {
	var count int64
	s.db.Model(&models.Account{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	if s.cfg.Seed.AdminPassword == "" {
		return errors.New("SEED_ADMIN_PASSWORD is not set")
	}
	if !password.ValidatePassword(s.cfg.Seed.AdminPassword) {
		return errors.New("SEED_ADMIN_PASSWORD is too weak")
	}

	hashedPassword, err := password.Hash(s.cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.Account{
		Username:         s.cfg.Seed.AdminUsername,
		Email:            s.cfg.Seed.AdminEmail,
		Password:         hashedPassword,
		Role:             models.RoleAdmin,
		ReferralCode:     "ADM" + strings.ToUpper(uuid.NewString()[:5]),
		MembershipStatus: "INACTIVE",
		IsActive:         true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin account created: %s", admin.Username)
	return nil
}

func (p PlanSeed) toModel() (*models.MembershipPlan, error) {
	amounts := make([]decimal.Decimal, 5)
	for i, raw := range []string{p.Price, p.DailyTaskEarning, p.MinimumWithdrawal, p.CommissionBasisAmount, p.VoucherAmount} {
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		amounts[i] = amount
	}
	if p.Code == "" || p.TasksPerDay < 1 || p.DurationDays < 1 {
		return nil, errors.New("code, tasks_per_day and duration_days are required")
	}

	return &models.MembershipPlan{
		Code:                  p.Code,
		Name:                  p.Name,
		Price:                 amounts[0],
		TasksPerDay:           p.TasksPerDay,
		DailyTaskEarning:      amounts[1],
		MinimumWithdrawal:     amounts[2],
		CommissionBasisAmount: amounts[3],
		VoucherAmount:         amounts[4],
		DurationDays:          p.DurationDays,
		IsActive:              true,
	}, nil
}

func (r RateSeed) toModel() (*models.CommissionRate, error) {
	if r.Level < 1 || r.Level > 5 {
		return nil, errors.New("level must be between 1 and 5")
	}

	rate := &models.CommissionRate{Level: r.Level, IsActive: r.Active == nil || *r.Active}
	if r.Percentage != "" {
		pct, err := decimal.NewFromString(r.Percentage)
		if err != nil {
			return nil, fmt.Errorf("percentage: %w", err)
		}
		rate.Percentage = decimal.NullDecimal{Decimal: pct, Valid: true}
	}
	if r.FixedAmount != "" {
		fixed, err := decimal.NewFromString(r.FixedAmount)
		if err != nil {
			return nil, fmt.Errorf("fixed_amount: %w", err)
		}
		rate.FixedAmount = decimal.NullDecimal{Decimal: fixed, Valid: true}
	}
	if !rate.IsValid() {
		return nil, errors.New("set exactly one of percentage and fixed_amount")
	}
	return rate, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	return amount.Round(2), nil
}
