package routes

import (
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/handlers"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/middleware"
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, svc *services.Services, hub *services.EventHub, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(hub)
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)
	eventsHandler := handlers.NewEventsHandler(hub)
	membershipHandler := handlers.NewMembershipHandler(svc.Membership)
	taskHandler := handlers.NewTaskHandler(svc.Tasks)
	withdrawalHandler := handlers.NewWithdrawalHandler(svc.Withdrawals)
	adminHandler := handlers.NewAdminHandler(svc.Ledger, svc.Commission, svc.Reconciliation)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, cfg, authHandler, dashboardHandler, eventsHandler,
		membershipHandler, taskHandler, withdrawalHandler, adminHandler)
}

func setupAPIV1Routes(
	router fiber.Router,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	dashboardHandler *handlers.DashboardHandler,
	eventsHandler *handlers.EventsHandler,
	membershipHandler *handlers.MembershipHandler,
	taskHandler *handlers.TaskHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	adminHandler *handlers.AdminHandler,
) {
	// Auth routes (public)
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)

	// Plan catalog (public)
	router.Get("/plans", middleware.CacheControl(5*time.Minute), membershipHandler.ListPlans)

	// Member routes
	meRoutes := router.Group("/me")
	meRoutes.Use(middleware.AuthMiddleware(cfg))
	meRoutes.Get("/summary", middleware.NoStore(), dashboardHandler.GetSummary)
	meRoutes.Get("/transactions", middleware.NoStore(), dashboardHandler.ListTransactions)
	meRoutes.Get("/referrals", middleware.NoStore(), dashboardHandler.ListReferrals)
	meRoutes.Get("/events", eventsHandler.Stream)

	taskRoutes := router.Group("/tasks")
	taskRoutes.Use(middleware.AuthMiddleware(cfg))
	taskRoutes.Get("/", taskHandler.ListTasks)
	taskRoutes.Post("/:id/start", taskHandler.StartTask)
	taskRoutes.Post("/:id/complete", taskHandler.CompleteTask)

	withdrawalRoutes := router.Group("/withdrawals")
	withdrawalRoutes.Use(middleware.AuthMiddleware(cfg))
	withdrawalRoutes.Get("/", middleware.NoStore(), withdrawalHandler.ListMine)
	withdrawalRoutes.Post("/", middleware.StrictRateLimiter(), withdrawalHandler.Request)
	withdrawalRoutes.Post("/:id/cancel", withdrawalHandler.Cancel)

	// Admin routes
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Use(middleware.NoStore())

	adminRoutes.Get("/summary", dashboardHandler.GetAdminDashboard)

	adminRoutes.Get("/reviews/tasks", taskHandler.ListReviewQueue)
	adminRoutes.Post("/reviews/tasks/:id", taskHandler.ResolveReview)
	adminRoutes.Post("/tasks", taskHandler.CreateTask)

	adminRoutes.Get("/withdrawals", withdrawalHandler.ListByStatus)
	adminRoutes.Post("/withdrawals/:id/approve", withdrawalHandler.Approve)
	adminRoutes.Post("/withdrawals/:id/reject", withdrawalHandler.Reject)
	adminRoutes.Post("/withdrawals/:id/settle", withdrawalHandler.Settle)

	adminRoutes.Post("/accounts/:id/activate", membershipHandler.Activate)
	adminRoutes.Post("/accounts/:id/adjust", adminHandler.Adjust)
	adminRoutes.Post("/transactions/:id/reverse", adminHandler.Reverse)

	adminRoutes.Post("/commissions/distribute", adminHandler.Distribute)
	adminRoutes.Get("/commission-rates", adminHandler.ListCommissionRates)
	adminRoutes.Get("/reconcile", adminHandler.Reconcile)
}
