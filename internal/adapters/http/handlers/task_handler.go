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

// TaskHandler handles the task catalog, attempts and admin review
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CompleteTaskRequest carries the engagement signals measured by the client
type CompleteTaskRequest struct {
	Signals domain.EngagementSignals `json:"signals"`
}

// ReviewRequest represents an admin verdict on a held completion
type ReviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// CreateTaskRequest represents a new catalog entry
type CreateTaskRequest struct {
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	RewardAmount   decimal.Decimal `json:"reward_amount"`
	RequiresReview bool            `json:"requires_review"`
}

// ListTasks returns the active catalog
// @Summary List tasks
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.taskService.ListTasks(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list tasks")
	}

	return response.Success(c, "Tasks retrieved successfully", tasks)
}

// StartTask opens an attempt on a task
// @Summary Start task
// @Description Creates the IN_PROGRESS attempt, or returns the existing one
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id}/start [post]
func (h *TaskHandler) StartTask(c *fiber.Ctx) error {
	taskID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid task ID")
	}

	completion, err := h.taskService.Start(c.Context(), middleware.AccountID(c), taskID)
	if err != nil {
		return respondError(c, err, "Failed to start task")
	}

	return response.Success(c, "Task started", completion)
}

// CompleteTask submits engagement signals for scoring
// @Summary Complete task
// @Description Scores the signals and credits the reward, or holds it for review
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param body body CompleteTaskRequest true "Engagement signals"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	taskID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid task ID")
	}

	var req CompleteTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	completion, err := h.taskService.Complete(c.Context(), &services.CompleteInput{
		AccountID: middleware.AccountID(c),
		TaskID:    taskID,
		Signals:   req.Signals,
	})
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		return response.Success(c, "Task already completed", completion)
	}
	if err != nil {
		return respondError(c, err, "Failed to complete task")
	}

	if completion.Status == string(domain.TaskPendingReview) {
		return response.Success(c, "Task submitted for review", completion)
	}
	return response.Success(c, "Task completed", completion)
}

// ListReviewQueue returns completions waiting for a verdict
// @Summary Task review queue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/reviews/tasks [get]
func (h *TaskHandler) ListReviewQueue(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	items, total, err := h.taskService.ListReviewQueue(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return respondError(c, err, "Failed to list review queue")
	}

	return response.Paginated(c, items, params, total)
}

// ResolveReview approves or rejects a held completion
// @Summary Resolve task review
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Completion ID"
// @Param body body ReviewRequest true "Decision"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/reviews/tasks/{id} [post]
func (h *TaskHandler) ResolveReview(c *fiber.Ctx) error {
	completionID, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid completion ID")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	decision := domain.ReviewDecision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	completion, err := h.taskService.ResolveReview(c.Context(), completionID, decision, req.Notes, middleware.AccountID(c))
	if errors.Is(err, domain.ErrAlreadyProcessed) {
		return response.Success(c, "Completion already resolved", completion)
	}
	if err != nil {
		return respondError(c, err, "Failed to resolve review")
	}

	return response.Success(c, "Review resolved", completion)
}

// CreateTask adds a task to the catalog
// @Summary Create task
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateTaskRequest true "Task"
// @Success 201 {object} response.Response
// @Router /admin/tasks [post]
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	task := &models.Task{
		Title:          strings.TrimSpace(req.Title),
		URL:            strings.TrimSpace(req.URL),
		RewardAmount:   req.RewardAmount,
		RequiresReview: req.RequiresReview,
		IsActive:       true,
	}
	if err := h.taskService.CreateTask(c.Context(), task); err != nil {
		return respondError(c, err, "Failed to create task")
	}

	return response.Created(c, "Task created successfully", task)
}
