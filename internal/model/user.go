package model

import "time"

// User stores Telegram user metadata. The Telegram user ID is the primary key;
// every other entity references it. Rows are created on first contact, profile
// fields are refreshed on every contact, and nothing here ever deletes them.
type User struct {
	ID        int64 `gorm:"primaryKey"`
	FirstName string
	LastName  string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the best human-readable label for the user.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return ""
}
