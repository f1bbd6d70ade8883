package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskbot/internal/dispatch"
	"taskbot/internal/repository"
)

// RolloverService runs the once-daily cycle: report yesterday's completions
// per user, then return every recurring task to pending. The report is always
// computed before the reset, because the reset destroys the completion state
// the report counts.
type RolloverService struct {
	tasks    *repository.TaskRepository
	sender   dispatch.Sender
	registry *AdminRegistry
	loc      *time.Location
	log      zerolog.Logger
}

func NewRolloverService(tasks *repository.TaskRepository, sender dispatch.Sender, registry *AdminRegistry, loc *time.Location, log zerolog.Logger) *RolloverService {
	return &RolloverService{
		tasks:    tasks,
		sender:   sender,
		registry: registry,
		loc:      loc,
		log:      log.With().Str("component", "rollover").Logger(),
	}
}

// Run executes one rollover cycle for the local calendar day preceding now.
func (s *RolloverService) Run(ctx context.Context, now time.Time) error {
	start, end := yesterdayWindow(now, s.loc)

	rows, err := s.tasks.DailyCompletionReport(ctx, start, end)
	if err != nil {
		// Report delivery and reset are independent concerns: a failed report
		// read is logged, the reset still runs so today starts clean.
		s.log.Error().Err(err).Msg("completion report failed, proceeding to reset")
		rows = nil
	}

	var delivered, failed int
	for _, row := range rows {
		if row.RecurringCount == 0 && row.CompletedCount == 0 {
			continue
		}
		if err := s.sender.Send(ctx, row.OwnerID, formatCompletionReport(row, start)); err != nil {
			failed++
			if dispatch.IsPermanent(err) {
				s.log.Warn().Err(err).Int64("user", row.OwnerID).Msg("skipping unreachable user")
			} else {
				s.log.Error().Err(err).Int64("user", row.OwnerID).Msg("report send failed")
			}
			continue
		}
		delivered++
	}

	reset, err := s.tasks.ResetRecurring(ctx)
	if err != nil {
		return fmt.Errorf("reset recurring tasks: %w", err)
	}

	s.log.Info().
		Int("reports_delivered", delivered).
		Int("reports_failed", failed).
		Int64("tasks_reset", reset).
		Time("window_start", start).
		Msg("rollover done")

	s.notifyAdmins(ctx, rows, reset, start)
	return nil
}

// notifyAdmins sends one aggregate summary to every bootstrap admin, with
// per-recipient failure isolation.
func (s *RolloverService) notifyAdmins(ctx context.Context, rows []repository.CompletionRow, reset int64, day time.Time) {
	admins := s.registry.BootstrapIDs()
	if len(admins) == 0 {
		return
	}

	var users, recurring, completed int
	for _, row := range rows {
		if row.RecurringCount == 0 && row.CompletedCount == 0 {
			continue
		}
		users++
		recurring += row.RecurringCount
		completed += row.CompletedCount
	}

	text := fmt.Sprintf(
		"🌙 <b>Rollover summary — %s</b>\n\n👥 Users reported: <b>%d</b>\n♻️ Recurring tasks: <b>%d</b>\n✅ Completed yesterday: <b>%d</b>\n🔄 Tasks reset: <b>%d</b>",
		day.In(s.loc).Format("2006-01-02"), users, recurring, completed, reset,
	)

	for _, adminID := range admins {
		if err := s.sender.Send(ctx, adminID, text); err != nil {
			s.log.Warn().Err(err).Int64("admin", adminID).Msg("admin summary send failed")
		}
	}
}

// yesterdayWindow converts the local calendar day before now into a half-open
// UTC timestamp window.
func yesterdayWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, -1).UTC(), midnight.UTC()
}

func formatCompletionReport(row repository.CompletionRow, day time.Time) string {
	var b strings.Builder
	b.WriteString("🌙 <b>Daily report</b>\n\n")
	b.WriteString(fmt.Sprintf("♻️ Recurring tasks: <b>%d</b>\n", row.RecurringCount))
	b.WriteString(fmt.Sprintf("✅ Completed yesterday: <b>%d</b>\n", row.CompletedCount))
	if row.RecurringCount > 0 {
		pct := float64(row.CompletedCount) * 100 / float64(row.RecurringCount)
		b.WriteString(fmt.Sprintf("📈 Completion: <b>%.0f%%</b>\n", pct))
	}
	b.WriteString("\nRecurring tasks are pending again. Have a good day!")
	return b.String()
}
