package service

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskbot/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Task{}, &model.Settings{}, &model.AdminGrant{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// fakeSender records outbound messages and fails on demand per chat.
type fakeSender struct {
	mu   sync.Mutex
	sent map[int64][]string
	fail map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent: make(map[int64][]string),
		fail: make(map[int64]error),
	}
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[chatID]; ok {
		return err
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func (f *fakeSender) SendWithMarkup(ctx context.Context, chatID int64, text string, _ interface{}) error {
	return f.Send(ctx, chatID, text)
}

func (f *fakeSender) Edit(ctx context.Context, chatID int64, _ int, text string, _ *tgbotapi.InlineKeyboardMarkup) error {
	return f.Send(ctx, chatID, text)
}

func (f *fakeSender) messages(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[chatID]
}

func (f *fakeSender) totalSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}
