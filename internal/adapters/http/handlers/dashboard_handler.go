package handlers

import (
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/middleware"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/pagination"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles balance summaries and ledger history
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetSummary returns the member's balance and earnings summary
// @Summary Account summary
// @Description Balance, earnings totals, pending hold, today's task usage and recent transactions
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /me/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.dashboardService.GetAccountSummary(c.Context(), middleware.AccountID(c))
	if err != nil {
		return respondError(c, err, "Failed to get account summary")
	}

	return response.Success(c, "Account summary retrieved successfully", summary)
}

// ListTransactions returns the member's ledger history
// @Summary Transaction history
// @Description Paged ledger entries, newest first
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /me/transactions [get]
func (h *DashboardHandler) ListTransactions(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	txns, total, err := h.dashboardService.ListTransactions(c.Context(), middleware.AccountID(c), params.Offset, params.Limit)
	if err != nil {
		return respondError(c, err, "Failed to list transactions")
	}

	return response.Paginated(c, txns, params, total)
}

// ListReferrals returns accounts the member sponsored directly
// @Summary Direct referrals
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /me/referrals [get]
func (h *DashboardHandler) ListReferrals(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	referrals, total, err := h.dashboardService.ListReferrals(c.Context(), middleware.AccountID(c), params.Offset, params.Limit)
	if err != nil {
		return respondError(c, err, "Failed to list referrals")
	}

	return response.Paginated(c, referrals, params, total)
}

// GetAdminDashboard returns admin dashboard data
// @Summary Admin Dashboard
// @Description Account counts, balance totals, review and withdrawal queues (Admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/summary [get]
func (h *DashboardHandler) GetAdminDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to get admin dashboard")
	}

	return response.Success(c, "Admin dashboard retrieved successfully", data)
}
