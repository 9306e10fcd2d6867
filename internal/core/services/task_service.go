package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/repositories"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TaskService tracks task attempts and pays rewards through the ledger
type TaskService struct {
	db             *gorm.DB
	accountRepo    repositories.AccountRepository
	planRepo       repositories.PlanRepository
	taskRepo       repositories.TaskRepository
	completionRepo repositories.TaskCompletionRepository
	ledger         *LedgerService
	scorer         *VerificationScorer
	location       *time.Location
	log            *logger.Logger
	now            func() time.Time
}

// NewTaskService creates a new task service. location defines the
// operational day used for daily quota resets.
func NewTaskService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	planRepo repositories.PlanRepository,
	taskRepo repositories.TaskRepository,
	completionRepo repositories.TaskCompletionRepository,
	ledger *LedgerService,
	scorer *VerificationScorer,
	location *time.Location,
	log *logger.Logger,
) *TaskService {
	if location == nil {
		location = time.UTC
	}
	return &TaskService{
		db:             db,
		accountRepo:    accountRepo,
		planRepo:       planRepo,
		taskRepo:       taskRepo,
		completionRepo: completionRepo,
		ledger:         ledger,
		scorer:         scorer,
		location:       location,
		log:            log,
		now:            time.Now,
	}
}

// CompleteInput represents one task submission.
// A zero RewardAmount means the task's reward, or the plan's daily earning.
type CompleteInput struct {
	AccountID    uint
	TaskID       uint
	Signals      domain.EngagementSignals
	RewardAmount decimal.Decimal
}

// ListTasks returns the active task catalog
func (s *TaskService) ListTasks(ctx context.Context) ([]*models.Task, error) {
	return s.taskRepo.ListActive(ctx)
}

// CreateTask adds a task to the catalog
func (s *TaskService) CreateTask(ctx context.Context, task *models.Task) error {
	if task.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if task.RewardAmount.IsNegative() {
		return domain.ErrInvalidAmount
	}
	return s.taskRepo.Create(ctx, task)
}

// Start records an IN_PROGRESS attempt. Starting again returns the existing record.
func (s *TaskService) Start(ctx context.Context, accountID, taskID uint) (*models.TaskCompletion, error) {
	if _, err := s.activeTask(ctx, taskID); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !membershipActive(account, s.now()) {
		return nil, domain.ErrAccessDenied
	}

	existing, err := s.completionRepo.GetByAccountAndTask(ctx, accountID, taskID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	completion := &models.TaskCompletion{
		AccountID: accountID,
		TaskID:    taskID,
		Status:    string(domain.TaskInProgress),
	}
	if err := s.completionRepo.Create(ctx, completion); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.completionRepo.GetByAccountAndTask(ctx, accountID, taskID)
		}
		return nil, err
	}
	return completion, nil
}

// Complete scores a submission and, when it passes, records the completion
// and credits the reward in one database transaction.
//
// Preconditions are checked in order: membership (ErrAccessDenied), daily
// quota (ErrQuotaExceeded), prior completion (ErrAlreadyCompleted, returned
// together with the existing record) and verification (*VerificationError).
// A failed attempt changes nothing.
func (s *TaskService) Complete(ctx context.Context, input *CompleteInput) (*models.TaskCompletion, error) {
	task, err := s.activeTask(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}
	if input.RewardAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	var completion *models.TaskCompletion
	var reward *models.Transaction

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accountRepo.WithTx(tx)
		completions := s.completionRepo.WithTx(tx)
		now := s.now()

		account, err := accounts.GetByIDForUpdate(ctx, input.AccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// 1. membership
		if !membershipActive(account, now) || account.MembershipPlanID == nil {
			return domain.ErrAccessDenied
		}
		plan, err := s.planRepo.WithTx(tx).GetPlanByID(ctx, *account.MembershipPlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccessDenied
			}
			return err
		}

		// 2. quota
		used := account.DailyTaskCount
		if account.LastTaskDate == nil || !s.sameDay(*account.LastTaskDate, now) {
			used = 0
		}
		if used >= plan.TasksPerDay {
			return domain.ErrQuotaExceeded
		}

		// 3. prior completion
		existing, err := completions.GetByAccountAndTask(ctx, account.ID, task.ID)
		switch {
		case err == nil && existing.Status != string(domain.TaskInProgress):
			completion = existing
			return domain.ErrAlreadyCompleted
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		// 4. verification
		if err := s.scorer.ValidateSignals(input.Signals); err != nil {
			return err
		}
		result := s.scorer.Score(input.Signals)
		if !result.Passed {
			s.logFailedAttempt(input, result)
			return &domain.VerificationError{Result: result}
		}

		amount := input.RewardAmount
		if amount.IsZero() {
			amount = task.RewardAmount
		}
		if !amount.IsPositive() {
			amount = plan.DailyTaskEarning
		}

		if existing == nil {
			existing = &models.TaskCompletion{AccountID: account.ID, TaskID: task.ID}
		}
		existing.RewardAmount = amount.Round(2)
		existing.VerificationScore = result.Score
		if task.RequiresReview {
			existing.Status = string(domain.TaskPendingReview)
		} else {
			existing.Status = string(domain.TaskCompleted)
			existing.CompletedAt = &now
		}

		if existing.ID == 0 {
			err = completions.Create(ctx, existing)
		} else {
			err = completions.Save(ctx, existing)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyCompleted
			}
			return fmt.Errorf("save task completion: %w", err)
		}

		if err := accounts.UpdateFields(ctx, account.ID, map[string]interface{}{
			"daily_task_count": used + 1,
			"last_task_date":   now,
		}); err != nil {
			return fmt.Errorf("update task quota: %w", err)
		}

		completion = existing
		if existing.Status != string(domain.TaskCompleted) {
			return nil
		}

		reward, err = s.ledger.CreditTx(ctx, tx, LedgerEntry{
			AccountID:   account.ID,
			Amount:      existing.RewardAmount,
			Kind:        domain.KindTaskReward,
			Reference:   strconv.FormatUint(uint64(existing.ID), 10),
			Description: task.Title,
		})
		return err
	})

	if err != nil {
		metrics.TaskOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			return completion, err
		}
		return nil, err
	}

	metrics.TaskOutcomes.WithLabelValues(completion.Status).Inc()
	s.ledger.Publish(reward)

	s.log.WithFields(logrus.Fields{
		"account_id":    completion.AccountID,
		"task_id":       completion.TaskID,
		"completion_id": completion.ID,
		"status":        completion.Status,
		"score":         completion.VerificationScore,
	}).Info("✅ Task submission accepted")

	return completion, nil
}

// ResolveReview applies an admin decision to a PENDING_REVIEW completion.
// Approval credits the reward; any other status yields ErrAlreadyProcessed.
func (s *TaskService) ResolveReview(ctx context.Context, completionID uint, decision domain.ReviewDecision, notes string, adminID uint) (*models.TaskCompletion, error) {
	if decision != domain.ReviewApprove && decision != domain.ReviewReject {
		return nil, fmt.Errorf("%w: decision must be APPROVE or REJECT", domain.ErrInvalidInput)
	}

	var completion *models.TaskCompletion
	var reward *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completions := s.completionRepo.WithTx(tx)

		var err error
		completion, err = completions.GetByIDForUpdate(ctx, completionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if completion.Status != string(domain.TaskPendingReview) {
			return domain.ErrAlreadyProcessed
		}

		now := s.now()
		completion.ReviewNotes = notes
		completion.ReviewedBy = &adminID
		if decision == domain.ReviewReject {
			completion.Status = string(domain.TaskRejected)
			return completions.Save(ctx, completion)
		}

		completion.Status = string(domain.TaskCompleted)
		completion.CompletedAt = &now
		if err := completions.Save(ctx, completion); err != nil {
			return err
		}

		reward, err = s.ledger.CreditTx(ctx, tx, LedgerEntry{
			AccountID:   completion.AccountID,
			Amount:      completion.RewardAmount,
			Kind:        domain.KindTaskReward,
			Reference:   strconv.FormatUint(uint64(completion.ID), 10),
			Description: "Approved task review",
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			return completion, err
		}
		return nil, err
	}

	s.ledger.Publish(reward)
	metrics.TaskOutcomes.WithLabelValues("review_" + string(decision)).Inc()
	s.log.WithFields(logrus.Fields{
		"completion_id": completion.ID,
		"decision":      decision,
		"admin_id":      adminID,
	}).Info("📝 Task review resolved")

	return completion, nil
}

// ListReviewQueue lists completions waiting for moderation, oldest first
func (s *TaskService) ListReviewQueue(ctx context.Context, offset, limit int) ([]*models.TaskCompletion, int64, error) {
	return s.completionRepo.ListByStatus(ctx, string(domain.TaskPendingReview), offset, limit)
}

// QuotaUsed returns how many tasks the account has used today
func (s *TaskService) QuotaUsed(account *models.Account) int {
	if account.LastTaskDate == nil || !s.sameDay(*account.LastTaskDate, s.now()) {
		return 0
	}
	return account.DailyTaskCount
}

func (s *TaskService) activeTask(ctx context.Context, taskID uint) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
		}
		return nil, err
	}
	if !task.IsActive {
		return nil, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}
	return task, nil
}

// sameDay compares calendar days in the ledger location
func (s *TaskService) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.location).Date()
	by, bm, bd := b.In(s.location).Date()
	return ay == by && am == bm && ad == bd
}

// logFailedAttempt keeps the raw signals so a disputed attempt can be rescored
func (s *TaskService) logFailedAttempt(input *CompleteInput, result domain.VerificationResult) {
	s.log.WithFields(logrus.Fields{
		"account_id":              input.AccountID,
		"task_id":                 input.TaskID,
		"score":                   result.Score,
		"reasons":                 result.Reasons,
		"time_spent_ms":           *input.Signals.TimeSpentMs,
		"scroll_depth_ratio":      *input.Signals.ScrollDepthRatio,
		"had_pointer_movement":    *input.Signals.HadPointerMovement,
		"content_engagement_flag": *input.Signals.ContentEngagementFlag,
	}).Warn("⚠️ Task verification failed")
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
