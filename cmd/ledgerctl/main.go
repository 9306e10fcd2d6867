package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var verbose bool

// rootCmd is the base command for ledger operations
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tooling for the earnings ledger",
	Long: `ledgerctl runs maintenance against the earnings ledger database:
schema migration, plan and commission-rate seeding, balance reconciliation
and manual commission distribution.

It reads the same environment (.env, APP_MODE, DB_*) as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every subcommand needs after bootstrap
type env struct {
	cfg *config.Config
	db  *gorm.DB
	log *logger.Logger
}

// bootstrap loads configuration and opens the database
func bootstrap() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(cfg.AppMode)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, db: db, log: log}, nil
}

// services builds the service graph without event broadcasting
func (e *env) services() *services.Services {
	return services.NewServices(e.db, e.cfg, e.log, nil)
}

func (e *env) close() {
	if err := config.CloseDatabase(); err != nil {
		e.log.WithError(err).Warn("⚠️ Failed to close database")
	}
}
