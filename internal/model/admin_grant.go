package model

import "time"

// AdminGrant is a runtime-granted authority row. Bootstrap admins from static
// configuration never appear here and cannot be revoked.
type AdminGrant struct {
	UserID    int64 `gorm:"primaryKey"`
	GrantedBy int64
	GrantedAt time.Time
}
