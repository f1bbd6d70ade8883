package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// AdminRepository persists the dynamic (runtime-granted) authority set.
// Bootstrap admins live in static configuration and never touch this table.
type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Grant inserts a grant row if absent; granting twice is a no-op.
func (r *AdminRepository) Grant(ctx context.Context, targetID, grantedBy int64) error {
	grant := model.AdminGrant{UserID: targetID}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", targetID).
		Attrs(model.AdminGrant{UserID: targetID, GrantedBy: grantedBy, GrantedAt: time.Now().UTC()}).
		FirstOrCreate(&grant).Error
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	return nil
}

// Revoke removes a grant row. Returns gorm.ErrRecordNotFound if there was none.
func (r *AdminRepository) Revoke(ctx context.Context, targetID int64) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", targetID).Delete(&model.AdminGrant{})
	if res.Error != nil {
		return fmt.Errorf("revoke admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AdminRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.AdminGrant{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check admin grant: %w", err)
	}
	return n > 0, nil
}

func (r *AdminRepository) ListAll(ctx context.Context) ([]model.AdminGrant, error) {
	var grants []model.AdminGrant
	if err := r.db.WithContext(ctx).Order("granted_at ASC").Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("list admin grants: %w", err)
	}
	return grants, nil
}
