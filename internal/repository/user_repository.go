package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user on first contact and refreshes profile fields on
// every later contact.
func (r *UserRepository) Upsert(ctx context.Context, id int64, firstName, lastName, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("id = ?", id).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			ID:        id,
			FirstName: firstName,
			LastName:  lastName,
			Username:  username,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// EnsureExists creates a stub row for a user that has never contacted the bot,
// so that an admin can assign tasks before first contact. Explicit part of the
// store contract, not a hidden side effect.
func (r *UserRepository) EnsureExists(ctx context.Context, id int64) error {
	user := model.User{ID: id}
	if err := r.db.WithContext(ctx).Where("id = ?", id).FirstOrCreate(&user).Error; err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (r *UserRepository) Find(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UserTaskCounts is one row of the admin user listing.
type UserTaskCounts struct {
	UserID    int64  `gorm:"column:id"`
	FirstName string `gorm:"column:first_name"`
	Username  string `gorm:"column:username"`
	TaskCount int    `gorm:"column:task_count"`
	DoneCount int    `gorm:"column:done_count"`
}

// ListWithTaskCounts returns users with their task/done totals, busiest first.
func (r *UserRepository) ListWithTaskCounts(ctx context.Context, offset, limit int) ([]UserTaskCounts, error) {
	var rows []UserTaskCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id, u.first_name, u.username,
		       COUNT(t.id) AS task_count,
		       COALESCE(SUM(CASE WHEN t.done THEN 1 ELSE 0 END), 0) AS done_count
		FROM users u
		LEFT JOIN tasks t ON t.owner_id = u.id
		GROUP BY u.id, u.first_name, u.username
		ORDER BY task_count DESC, u.id ASC
		LIMIT ? OFFSET ?`, limit, offset).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list users with counts: %w", err)
	}
	return rows, nil
}
