package handlers

import (
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MembershipHandler handles plans and activation
type MembershipHandler struct {
	membershipService *services.MembershipService
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// ActivateRequest selects the plan to activate. BatchID makes retries idempotent.
type ActivateRequest struct {
	PlanID  uint   `json:"plan_id"`
	BatchID string `json:"batch_id"`
}

// ListPlans returns the purchasable plans
// @Summary Membership plans
// @Tags Plans
// @Produce json
// @Success 200 {object} response.Response
// @Router /plans [get]
func (h *MembershipHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.membershipService.ListPlans(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list plans")
	}

	return response.Success(c, "Plans retrieved successfully", plans)
}

// Activate records a paid membership and pays the upline
// @Summary Activate membership
// @Description Activates the plan, credits its voucher and distributes referral commissions
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param body body ActivateRequest true "Plan"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/accounts/{id}/activate [post]
func (h *MembershipHandler) Activate(c *fiber.Ctx) error {
	accountID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid account ID")
	}

	var req ActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PlanID == 0 {
		return response.BadRequest(c, "plan_id is required")
	}

	result, err := h.membershipService.Activate(c.Context(), accountID, req.PlanID, req.BatchID)
	if err != nil {
		// Activation commits before commissions run; a partial payout still reports the batch.
		if result != nil {
			handlerLog.WithError(err).WithField("batch_id", result.BatchID).Error("❌ Commission distribution incomplete")
			return response.ErrorWithDetails(c, fiber.StatusInternalServerError, "Membership activated but commission distribution failed; retry with the same batch_id", result)
		}
		return respondError(c, err, "Failed to activate membership")
	}

	return response.Success(c, "Membership activated", result)
}
