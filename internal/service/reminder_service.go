package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskbot/internal/dispatch"
	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// ReminderService runs the periodic notification sweep: one aggregated message
// per user with pending tasks, gated by the user's mute flag and active-hours
// window. Failures are isolated per user; a bad recipient never aborts the
// rest of the batch, and nothing is retried inside a batch because the next
// scheduled wake re-attempts naturally.
type ReminderService struct {
	tasks     *repository.TaskRepository
	settings  *repository.SettingsRepository
	sender    dispatch.Sender
	loc       *time.Location
	sampleCap int
	log       zerolog.Logger
}

func NewReminderService(tasks *repository.TaskRepository, settings *repository.SettingsRepository, sender dispatch.Sender, loc *time.Location, sampleCap int, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		tasks:     tasks,
		settings:  settings,
		sender:    sender,
		loc:       loc,
		sampleCap: sampleCap,
		log:       log.With().Str("component", "reminder").Logger(),
	}
}

// RunBatch executes one sweep. Two bulk reads (pending aggregation plus the
// full settings table), then one send per eligible user.
func (s *ReminderService) RunBatch(ctx context.Context, now time.Time) error {
	summaries, err := s.tasks.AggregatePendingByOwner(ctx, s.sampleCap)
	if err != nil {
		return fmt.Errorf("read pending aggregation: %w", err)
	}

	stored, err := s.settings.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	byUser := make(map[int64]model.Settings, len(stored))
	for _, row := range stored {
		byUser[row.UserID] = row
	}

	hour := now.In(s.loc).Hour()
	var sent, skipped, failed int

	for _, summary := range summaries {
		prefs, ok := byUser[summary.OwnerID]
		if !ok {
			prefs = model.DefaultSettings(summary.OwnerID)
		}

		if prefs.Muted {
			skipped++
			continue
		}
		if !WindowContains(prefs.StartHour, prefs.EndHour, hour) {
			skipped++
			continue
		}

		if err := s.sender.Send(ctx, summary.OwnerID, formatReminder(summary)); err != nil {
			failed++
			if dispatch.IsPermanent(err) {
				s.log.Warn().Err(err).Int64("user", summary.OwnerID).Msg("skipping unreachable user")
			} else {
				s.log.Error().Err(err).Int64("user", summary.OwnerID).Msg("reminder send failed")
			}
			continue
		}
		sent++
	}

	s.log.Info().
		Int("users_with_pending", len(summaries)).
		Int("sent", sent).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("hour", hour).
		Msg("reminder batch done")
	return nil
}

func formatReminder(summary repository.PendingSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏰ <b>You have %d pending task(s)</b>\n\n", summary.PendingCount))
	for _, text := range summary.SampleTexts {
		b.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(text)))
	}
	if summary.PendingCount > len(summary.SampleTexts) {
		b.WriteString(fmt.Sprintf("… and %d more\n", summary.PendingCount-len(summary.SampleTexts)))
	}
	b.WriteString("\nUse /mytasks to review them.")
	return b.String()
}
