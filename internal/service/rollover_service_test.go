package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskbot/internal/dispatch"
	"taskbot/internal/repository"
)

// rolloverNow returns a reference time one day ahead, so completions recorded
// during the test land inside the "yesterday" reporting window.
func rolloverNow() time.Time {
	return time.Now().UTC().Add(24 * time.Hour)
}

func TestRolloverReportsThenResets(t *testing.T) {
	db := newTestDB(t)
	tasks := repository.NewTaskRepository(db)
	sender := newFakeSender()
	reg := newTestRegistry(t, []string{"999"}, nil)
	svc := NewRolloverService(tasks, sender, reg, time.UTC, testLogger())
	ctx := context.Background()

	// User 100: three recurring habits, one completed today.
	var ids []uint
	for i := 0; i < 3; i++ {
		id, err := tasks.Create(ctx, 9, 100, "habit")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, id)
	}
	if err := tasks.Toggle(ctx, ids[0], 100); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// User 200: pending only.
	if _, err := tasks.Create(ctx, 9, 200, "chore"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Run(ctx, rolloverNow()); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := sender.messages(100)
	if len(msgs) != 1 {
		t.Fatalf("user 100 got %d reports, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "Recurring tasks: <b>3</b>") ||
		!strings.Contains(msgs[0], "Completed yesterday: <b>1</b>") {
		t.Errorf("report totals wrong: %q", msgs[0])
	}
	if len(sender.messages(200)) != 1 {
		t.Error("user 200 got no report")
	}

	admin := sender.messages(999)
	if len(admin) != 1 {
		t.Fatalf("admin got %d summaries, want 1", len(admin))
	}
	if !strings.Contains(admin[0], "Tasks reset: <b>4</b>") {
		t.Errorf("admin summary wrong: %q", admin[0])
	}

	// Reset must run after the report: everything recurring is pending again.
	_, done, err := tasks.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if done != 0 {
		t.Errorf("%d tasks still done after rollover", done)
	}
}

func TestRolloverIsolatesReportFailures(t *testing.T) {
	db := newTestDB(t)
	tasks := repository.NewTaskRepository(db)
	sender := newFakeSender()
	reg := newTestRegistry(t, nil, nil)
	svc := NewRolloverService(tasks, sender, reg, time.UTC, testLogger())
	ctx := context.Background()

	for _, owner := range []int64{100, 200} {
		if _, err := tasks.Create(ctx, 9, owner, "habit"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	id, err := tasks.Create(ctx, 9, 100, "done habit")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tasks.Toggle(ctx, id, 100); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sender.fail[100] = &dispatch.DeliveryError{Permanent: true, Err: errors.New("blocked by user")}

	if err := svc.Run(ctx, rolloverNow()); err != nil {
		t.Fatalf("run should not surface per-user failures: %v", err)
	}
	if len(sender.messages(200)) != 1 {
		t.Error("failure for user 100 blocked the report to user 200")
	}

	// The reset still ran despite the failed delivery.
	_, done, err := tasks.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if done != 0 {
		t.Errorf("%d tasks still done after rollover", done)
	}
}

func TestYesterdayWindow(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 28, 23, 30, 0, 0, loc)

	start, end := yesterdayWindow(now, loc)
	wantStart := time.Date(2026, 8, 27, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("got [%v, %v), want [%v, %v)", start, end, wantStart, wantEnd)
	}
}

func TestScheduleEveryHoursRejectsBadStep(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	for _, step := range []int{0, -1, 13} {
		if _, err := s.ScheduleEveryHours(step, func() {}); !errors.Is(err, ErrValidation) {
			t.Errorf("step %d: expected ErrValidation, got %v", step, err)
		}
	}
	if _, err := s.ScheduleEveryHours(2, func() {}); err != nil {
		t.Errorf("step 2: %v", err)
	}
}

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "23:30", want: "0 30 23 * * *"},
		{in: "00:00", want: "0 0 0 * * *"},
		{in: "9:05", want: "0 5 9 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := buildDailySpec(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation for %q, got %v", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDailySpec(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("buildDailySpec(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
