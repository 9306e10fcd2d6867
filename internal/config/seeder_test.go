package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedTOML = `
[[plans]]
code = "GOLD"
name = "Gold"
price = "5000"
tasks_per_day = 4
daily_task_earning = "25.5"
minimum_withdrawal = "300"
commission_basis_amount = "5000"
voucher_amount = "100"
duration_days = 45

[[commission_rates]]
level = 1
percentage = "15"

[[commission_rates]]
level = 2
fixed_amount = "40"
active = false

[[tasks]]
title = "Watch the intro"
url = "https://example.com/intro"
reward_amount = "12"
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	seed, err := config.LoadSeedFile(writeSeed(t, seedTOML))
	require.NoError(t, err)
	require.Len(t, seed.Plans, 1)
	assert.Equal(t, "GOLD", seed.Plans[0].Code)
	require.Len(t, seed.CommissionRates, 2)
	require.NotNil(t, seed.CommissionRates[1].Active)
	assert.False(t, *seed.CommissionRates[1].Active)
	assert.Len(t, seed.Tasks, 1)
}

func TestLoadSeedFile_MissingUsesDefaults(t *testing.T) {
	seed, err := config.LoadSeedFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSeed(), seed)
}

func TestLoadSeedFile_Malformed(t *testing.T) {
	_, err := config.LoadSeedFile(writeSeed(t, "[[plans]\ncode = "))
	assert.Error(t, err)
}

func TestSeeder_ApplyIsRepeatable(t *testing.T) {
	db := testutil.NewDB(t)
	seeder := config.NewSeeder(db, testutil.Config())

	seed, err := config.LoadSeedFile(writeSeed(t, seedTOML))
	require.NoError(t, err)

	require.NoError(t, seeder.Apply(seed))
	seed.Plans[0].Name = "Gold Plus"
	require.NoError(t, seeder.Apply(seed))

	var plans []models.MembershipPlan
	require.NoError(t, db.Find(&plans).Error)
	require.Len(t, plans, 1)
	assert.Equal(t, "Gold Plus", plans[0].Name)
	assert.True(t, plans[0].DailyTaskEarning.Equal(testutil.Money("25.50")))
	assert.True(t, plans[0].VoucherAmount.Equal(testutil.Money("100")))

	var rates []models.CommissionRate
	require.NoError(t, db.Order("level").Find(&rates).Error)
	require.Len(t, rates, 2)
	assert.True(t, rates[0].IsActive)
	assert.True(t, rates[0].Percentage.Valid)
	assert.False(t, rates[1].IsActive)
	assert.True(t, rates[1].FixedAmount.Decimal.Equal(testutil.Money("40")))

	var tasks int64
	require.NoError(t, db.Model(&models.Task{}).Count(&tasks).Error)
	assert.EqualValues(t, 1, tasks)

	// The seed file stays the source of truth for the active flag
	seed.CommissionRates[1].Active = nil
	require.NoError(t, seeder.Apply(seed))
	var level2 models.CommissionRate
	require.NoError(t, db.Where("level = ?", 2).First(&level2).Error)
	assert.True(t, level2.IsActive)
}

func TestSeeder_ApplyRejectsInvalidRows(t *testing.T) {
	db := testutil.NewDB(t)
	seeder := config.NewSeeder(db, testutil.Config())

	tests := map[string]*config.SeedFile{
		"negative price": {Plans: []config.PlanSeed{{Code: "X", Price: "-1", TasksPerDay: 1, DurationDays: 1}}},
		"missing code":   {Plans: []config.PlanSeed{{Price: "1", TasksPerDay: 1, DurationDays: 1}}},
		"level six":      {CommissionRates: []config.RateSeed{{Level: 6, Percentage: "1"}}},
		"both amounts":   {CommissionRates: []config.RateSeed{{Level: 1, Percentage: "1", FixedAmount: "2"}}},
		"neither amount": {CommissionRates: []config.RateSeed{{Level: 1}}},
	}
	for name, seed := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, seeder.Apply(seed))
		})
	}
}

func TestSeeder_RunCreatesAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config()
	cfg.Seed = config.SeedConfig{
		File:          writeSeed(t, seedTOML),
		AdminUsername: "root",
		AdminEmail:    "root@test.local",
		AdminPassword: "adminpass1",
	}

	require.NoError(t, config.NewSeeder(db, cfg).Run())
	require.NoError(t, config.NewSeeder(db, cfg).Run())

	var admins []models.Account
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root", admins[0].Username)
	assert.Equal(t, strings.ToUpper(admins[0].ReferralCode), admins[0].ReferralCode)
}
