package model

import "time"

// Task represents a single item on a user's list.
//
// CompletedAt is non-nil exactly when Done is true. Recurring tasks are
// returned to pending by the nightly rollover; non-recurring tasks keep their
// Done state until deleted. CreatorID may differ from OwnerID when an admin
// assigns the task to another user.
type Task struct {
	ID          uint  `gorm:"primaryKey"`
	OwnerID     int64 `gorm:"index"`
	CreatorID   int64
	Text        string
	Done        bool `gorm:"default:false"`
	Recurring   bool `gorm:"default:true"`
	CreatedAt   time.Time
	CompletedAt *time.Time
}
