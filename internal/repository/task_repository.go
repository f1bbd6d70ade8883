package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// TaskRepository owns task rows and their status. Every operation that must be
// atomic (Toggle, ResetRecurring) is a single SQL statement, so callers never
// need read-then-write sequences.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a pending, recurring-by-default task and returns its ID.
// Task text is not unique; duplicates are allowed.
func (r *TaskRepository) Create(ctx context.Context, creatorID, ownerID int64, text string) (uint, error) {
	task := model.Task{
		OwnerID:   ownerID,
		CreatorID: creatorID,
		Text:      text,
		Recurring: true,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return task.ID, nil
}

// Toggle atomically flips the task's status in one UPDATE, setting the
// completion timestamp on flip-to-done and clearing it on flip-to-pending.
// The owner filter is part of the statement, so a rapid double tap or a
// foreign task ID can never produce a half-applied state.
//
// A zero-row update means either the task does not exist or the caller does
// not own it; both surface as gorm.ErrRecordNotFound. The two cases are
// deliberately collapsed: distinguishing them would need a second read outside
// the atomic statement.
func (r *TaskRepository) Toggle(ctx context.Context, taskID uint, ownerID int64) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE tasks
		SET done = NOT done,
		    completed_at = CASE WHEN done THEN NULL ELSE ? END
		WHERE id = ? AND owner_id = ?`,
		time.Now().UTC(), taskID, ownerID)
	if res.Error != nil {
		return fmt.Errorf("toggle task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the row unconditionally. The creator-authorization check
// belongs to the caller.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, taskID).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Find(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByOwner returns the owner's tasks, newest first. Callers cap how many
// they render.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// PendingSummary aggregates a user's open work for one reminder message.
type PendingSummary struct {
	OwnerID      int64
	PendingCount int
	SampleTexts  []string
}

// AggregatePendingByOwner groups all pending tasks by owner in a single pass,
// keeping at most sampleCap texts per user in first-created order.
func (r *TaskRepository) AggregatePendingByOwner(ctx context.Context, sampleCap int) ([]PendingSummary, error) {
	var rows []struct {
		OwnerID int64
		Text    string
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("owner_id, text").
		Where("done = ?", false).
		Order("owner_id ASC, created_at ASC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate pending tasks: %w", err)
	}

	var out []PendingSummary
	for _, row := range rows {
		if len(out) == 0 || out[len(out)-1].OwnerID != row.OwnerID {
			out = append(out, PendingSummary{OwnerID: row.OwnerID})
		}
		cur := &out[len(out)-1]
		cur.PendingCount++
		if len(cur.SampleTexts) < sampleCap {
			cur.SampleTexts = append(cur.SampleTexts, row.Text)
		}
	}
	return out, nil
}

// CompletionRow is one user's share of the daily rollover report.
type CompletionRow struct {
	OwnerID        int64 `gorm:"column:owner_id"`
	RecurringCount int   `gorm:"column:recurring_count"`
	CompletedCount int   `gorm:"column:completed_count"`
}

// DailyCompletionReport returns, per owner, the number of current recurring
// tasks (any status) and the number of tasks completed inside the half-open
// UTC window [start, end).
func (r *TaskRepository) DailyCompletionReport(ctx context.Context, start, end time.Time) ([]CompletionRow, error) {
	var rows []CompletionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT owner_id,
		       SUM(CASE WHEN recurring THEN 1 ELSE 0 END) AS recurring_count,
		       SUM(CASE WHEN completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ? THEN 1 ELSE 0 END) AS completed_count
		FROM tasks
		GROUP BY owner_id
		ORDER BY owner_id ASC`, start.UTC(), end.UTC()).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily completion report: %w", err)
	}
	return rows, nil
}

// ResetRecurring returns every recurring task to pending and clears its
// completion timestamp, for all users in one bulk statement. Returns the
// number of rows touched.
func (r *TaskRepository) ResetRecurring(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE tasks
		SET done = ?, completed_at = NULL
		WHERE recurring = ?`, false, true)
	if res.Error != nil {
		return 0, fmt.Errorf("reset recurring tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Totals returns the global task and done counts for the admin stats view.
func (r *TaskRepository) Totals(ctx context.Context) (tasks, done int64, err error) {
	if err = r.db.WithContext(ctx).Model(&model.Task{}).Count(&tasks).Error; err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	if err = r.db.WithContext(ctx).Model(&model.Task{}).Where("done = ?", true).Count(&done).Error; err != nil {
		return 0, 0, fmt.Errorf("count done tasks: %w", err)
	}
	return tasks, done, nil
}
