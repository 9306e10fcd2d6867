package handlers

import (
	"errors"
	"strings"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/middleware"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/pagination"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WithdrawalHandler handles payout requests and their admin workflow
type WithdrawalHandler struct {
	withdrawalService *services.WithdrawalService
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(withdrawalService *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

// WithdrawalRequestBody represents a payout request
type WithdrawalRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
}

// RejectRequest carries the rejection reason
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SettleRequest carries the payout provider's reference
type SettleRequest struct {
	ExternalReference string `json:"external_reference"`
}

// Request places a hold and opens a withdrawal
// @Summary Request withdrawal
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body WithdrawalRequestBody true "Amount"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /withdrawals [post]
func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	var req WithdrawalRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.withdrawalService.Request(c.Context(), middleware.AccountID(c), req.Amount)
	if err != nil {
		return respondError(c, err, "Failed to request withdrawal")
	}

	return response.Created(c, "Withdrawal requested", request)
}

// ListMine returns the caller's withdrawals
// @Summary My withdrawals
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /withdrawals [get]
func (h *WithdrawalHandler) ListMine(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	items, total, err := h.withdrawalService.ListByAccount(c.Context(), middleware.AccountID(c), params.Offset, params.Limit)
	if err != nil {
		return respondError(c, err, "Failed to list withdrawals")
	}

	return response.Paginated(c, items, params, total)
}

// Cancel withdraws a pending request and refunds its hold
// @Summary Cancel withdrawal
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /withdrawals/{id}/cancel [post]
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid withdrawal ID")
	}

	request, err := h.withdrawalService.Cancel(c.Context(), requestID, middleware.AccountID(c))
	return h.respondTransition(c, request, err, "Withdrawal cancelled")
}

// ListByStatus returns withdrawals for the admin queue
// @Summary Withdrawal queue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" default(PENDING)
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals [get]
func (h *WithdrawalHandler) ListByStatus(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := domain.WithdrawalStatus(strings.ToUpper(c.Query("status", string(domain.WithdrawalPending))))

	items, total, err := h.withdrawalService.ListByStatus(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return respondError(c, err, "Failed to list withdrawals")
	}

	return response.Paginated(c, items, params, total)
}

// Approve moves a pending request to APPROVED
// @Summary Approve withdrawal
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid withdrawal ID")
	}

	request, err := h.withdrawalService.Approve(c.Context(), requestID, middleware.AccountID(c))
	return h.respondTransition(c, request, err, "Withdrawal approved")
}

// Reject refunds the hold of an open request
// @Summary Reject withdrawal
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Param body body RejectRequest true "Reason"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid withdrawal ID")
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.withdrawalService.Reject(c.Context(), requestID, middleware.AccountID(c), req.Reason)
	return h.respondTransition(c, request, err, "Withdrawal rejected")
}

// Settle records the external payout of an approved request
// @Summary Settle withdrawal
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Param body body SettleRequest true "Payout reference"
// @Success 200 {object} response.Response
// @Router /admin/withdrawals/{id}/settle [post]
func (h *WithdrawalHandler) Settle(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid withdrawal ID")
	}

	var req SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.withdrawalService.Settle(c.Context(), requestID, req.ExternalReference, middleware.AccountID(c))
	return h.respondTransition(c, request, err, "Withdrawal settled")
}

// respondTransition renders a state change; replays of a finished request succeed with its current state
func (h *WithdrawalHandler) respondTransition(c *fiber.Ctx, request *models.WithdrawalRequest, err error, message string) error {
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		return response.Success(c, "Withdrawal already processed", request)
	}
	if err != nil {
		return respondError(c, err, "Failed to update withdrawal")
	}

	return response.Success(c, message, request)
}
