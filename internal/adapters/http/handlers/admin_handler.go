package handlers

import (
	"strconv"
	"strings"

	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AdminHandler handles ledger corrections, commission runs and reconciliation
type AdminHandler struct {
	ledgerService         *services.LedgerService
	commissionService     *services.CommissionService
	reconciliationService *services.ReconciliationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	ledgerService *services.LedgerService,
	commissionService *services.CommissionService,
	reconciliationService *services.ReconciliationService,
) *AdminHandler {
	return &AdminHandler{
		ledgerService:         ledgerService,
		commissionService:     commissionService,
		reconciliationService: reconciliationService,
	}
}

// AdjustRequest represents a manual balance correction
type AdjustRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
}

// DistributeRequest triggers a commission run for a purchase
type DistributeRequest struct {
	AccountID uint            `json:"account_id"`
	Basis     decimal.Decimal `json:"basis"`
	BatchID   string          `json:"batch_id"`
}

// Adjust posts an ADJUSTMENT entry
// @Summary Adjust balance
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param body body AdjustRequest true "Adjustment"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/accounts/{id}/adjust [post]
func (h *AdminHandler) Adjust(c *fiber.Ctx) error {
	accountID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid account ID")
	}

	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Note) == "" {
		return response.BadRequest(c, "note is required")
	}

	txn, err := h.ledgerService.Adjust(c.Context(), &services.AdjustInput{
		AccountID: accountID,
		Amount:    req.Amount,
		Direction: domain.Direction(strings.ToUpper(req.Direction)),
		Reference: strings.TrimSpace(req.Reference),
		Note:      req.Note,
	})
	if err != nil {
		return respondError(c, err, "Failed to adjust balance")
	}

	return response.Created(c, "Adjustment posted", txn)
}

// Reverse posts the compensating entry for a transaction
// @Summary Reverse transaction
// @Description Idempotent; repeated calls return the existing compensating entry
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/transactions/{id}/reverse [post]
func (h *AdminHandler) Reverse(c *fiber.Ctx) error {
	txID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	txn, err := h.ledgerService.Reverse(c.Context(), txID)
	if err != nil {
		return respondError(c, err, "Failed to reverse transaction")
	}

	return response.Success(c, "Transaction reversed", txn)
}

// Distribute runs the commission walk for a purchase
// @Summary Distribute commission
// @Description Pays up to five upline levels; re-running a batch credits nothing twice
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DistributeRequest true "Trigger"
// @Success 200 {object} response.Response
// @Router /admin/commissions/distribute [post]
func (h *AdminHandler) Distribute(c *fiber.Ctx) error {
	var req DistributeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.AccountID == 0 {
		return response.BadRequest(c, "account_id is required")
	}

	batchID := strings.TrimSpace(req.BatchID)
	credits, err := h.commissionService.Distribute(c.Context(), req.AccountID, req.Basis, batchID)
	if err != nil {
		return respondError(c, err, "Failed to distribute commission")
	}

	return response.Success(c, "Commission distributed", fiber.Map{
		"batch_id": batchID,
		"credits":  credits,
	})
}

// Reconcile compares stored balances with the ledger
// @Summary Reconcile ledger
// @Description Checks one account when account_id is given, otherwise every account
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param account_id query int false "Account ID"
// @Success 200 {object} response.Response
// @Router /admin/reconcile [get]
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	if raw := c.Query("account_id"); raw != "" {
		accountID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || accountID == 0 {
			return response.BadRequest(c, "Invalid account ID")
		}

		result, err := h.reconciliationService.ReconcileAccount(c.Context(), uint(accountID))
		if err != nil {
			return respondError(c, err, "Failed to reconcile account")
		}
		return response.Success(c, "Account reconciled", result)
	}

	report, err := h.reconciliationService.ReconcileAll(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to reconcile ledger")
	}

	return response.Success(c, "Ledger reconciled", report)
}

// ListCommissionRates returns the configured level rates
// @Summary Commission rates
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/commission-rates [get]
func (h *AdminHandler) ListCommissionRates(c *fiber.Ctx) error {
	rates, err := h.commissionService.ListRates(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list commission rates")
	}

	return response.Success(c, "Commission rates retrieved successfully", rates)
}
