package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/handlers"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/middleware"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/routes"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"

	_ "github.com/umardraz9/mlmpk-sub009/docs" // Swagger docs
)

// @title MLM-PK Earnings API
// @version 1.0
// @description Task rewards, referral commissions and withdrawals over a double-entry style ledger.

// @contact.name API Support
// @contact.email support@mlmpk.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg.AppMode)
	handlers.SetLogger(appLog.Logger)

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		appLog.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		appLog.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	appLog.Info("✅ Database migration completed")

	if err := config.NewSeeder(db, cfg).Run(); err != nil {
		appLog.WithError(err).Warn("⚠️ Failed to seed plans and commission rates")
	}

	// Event fan-out: live streams always, Redis when configured
	hub := services.NewEventHub(appLog)
	sinks := []services.EventSink{hub}

	redisClient, err := config.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		appLog.WithError(err).Warn("⚠️ Redis unavailable, ledger events stay in-process")
	} else if redisClient != nil {
		defer redisClient.Close()
		sinks = append(sinks, services.NewRedisEventSink(redisClient, cfg.Redis.EventChannel, appLog))
	}

	dispatcher := services.NewEventDispatcher(cfg.Ledger.EventBuffer, appLog, sinks...)
	dispatcher.Start()
	defer dispatcher.Stop()

	svc := services.NewServices(db, cfg, appLog, dispatcher)

	// Scheduled ledger reconciliation
	reconcileJob, err := services.NewReconcileJob(svc.Reconciliation, cfg.Cron.ReconcileSchedule, cfg.Ledger.Location, appLog)
	if err != nil {
		appLog.Fatalf("❌ Invalid reconcile schedule: %v", err)
	}
	reconcileJob.Start()
	defer reconcileJob.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MLM-PK Earnings API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	middleware.Setup(app, cfg)
	routes.Setup(app, svc, hub, cfg)

	go gracefulShutdown(app, appLog)

	appLog.Infof("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLog.Errorf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, appLog *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		appLog.Errorf("❌ Error during shutdown: %v", err)
	}
	appLog.Info("✅ Server stopped gracefully")
}
