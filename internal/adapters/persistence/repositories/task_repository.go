package repositories

import (
	"context"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// taskRepository implements TaskRepository interface
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// GetByID gets a task by ID
func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListActive lists active tasks
func (r *taskRepository) ListActive(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

// Create creates a task
func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// taskCompletionRepository implements TaskCompletionRepository interface
type taskCompletionRepository struct {
	db *gorm.DB
}

// NewTaskCompletionRepository creates a new task completion repository
func NewTaskCompletionRepository(db *gorm.DB) TaskCompletionRepository {
	return &taskCompletionRepository{db: db}
}

func (r *taskCompletionRepository) WithTx(tx *gorm.DB) TaskCompletionRepository {
	return &taskCompletionRepository{db: tx}
}

// Create creates a completion record
func (r *taskCompletionRepository) Create(ctx context.Context, completion *models.TaskCompletion) error {
	return r.db.WithContext(ctx).Create(completion).Error
}

// Save persists all fields of an existing record
func (r *taskCompletionRepository) Save(ctx context.Context, completion *models.TaskCompletion) error {
	return r.db.WithContext(ctx).Save(completion).Error
}

// GetByID gets a completion by ID with its task
func (r *taskCompletionRepository) GetByID(ctx context.Context, id uint) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	err := r.db.WithContext(ctx).Preload("Task").Where("id = ?", id).First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// GetByIDForUpdate locks the completion row
func (r *taskCompletionRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// GetByAccountAndTask gets the completion record for a pair
func (r *taskCompletionRepository) GetByAccountAndTask(ctx context.Context, accountID, taskID uint) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND task_id = ?", accountID, taskID).
		First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// ListByStatus lists completions in a status, oldest first (review queue order)
func (r *taskCompletionRepository) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*models.TaskCompletion, int64, error) {
	var completions []*models.TaskCompletion
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.TaskCompletion{}).
		Where("status = ?", status).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Task").
		Where("status = ?", status).
		Order("updated_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&completions).Error

	return completions, total, err
}

// CountByStatus counts completions in a status
func (r *taskCompletionRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskCompletion{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
