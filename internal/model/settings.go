package model

import "time"

// Notification defaults: reminders between 09:00 and 21:00 local time.
const (
	DefaultStartHour = 9
	DefaultEndHour   = 21
)

// Settings keeps per-user notification preferences. The active window is the
// half-open hour range [StartHour, EndHour): (0, 24) means always active,
// StartHour == EndHour means never active, StartHour > EndHour wraps overnight.
// Rows are created lazily with defaults on first read or write.
type Settings struct {
	UserID    int64 `gorm:"primaryKey"`
	Muted     bool  `gorm:"default:false"`
	StartHour int   `gorm:"default:9"`
	EndHour   int   `gorm:"default:21"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Settings) TableName() string { return "settings" }

// DefaultSettings returns the in-memory default row used when a user has never
// touched their preferences.
func DefaultSettings(userID int64) Settings {
	return Settings{UserID: userID, StartHour: DefaultStartHour, EndHour: DefaultEndHour}
}
