package main

import (
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/config"

	"github.com/spf13/cobra"
)

var seedFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger schema",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert plans, commission rates and tasks from a TOML seed file",
	Long: `Applies the seed file (SEED_FILE, or --file) to the database. Plans are
matched by code, commission rates by level and tasks by title, so running it
again only updates what changed. The admin account is created when
SEED_ADMIN_PASSWORD is set.

Examples:
  ledgerctl seed
  ledgerctl seed --file config/seed.toml`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedFile, "file", "", "Seed file (default: SEED_FILE)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	if err := models.AutoMigrate(e.db); err != nil {
		return err
	}
	e.log.Info("✅ Database migration completed")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	if seedFile != "" {
		e.cfg.Seed.File = seedFile
	}

	if err := config.NewSeeder(e.db, e.cfg).Run(); err != nil {
		return err
	}
	e.log.WithField("file", e.cfg.Seed.File).Info("✅ Seed applied")
	return nil
}
