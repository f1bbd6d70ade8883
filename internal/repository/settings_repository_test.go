package repository

import (
	"context"
	"testing"

	"taskbot/internal/model"
)

func TestSettingsGetOrDefault(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	settings, err := repo.GetOrDefault(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.Muted {
		t.Error("new settings should not be muted")
	}
	if settings.StartHour != model.DefaultStartHour || settings.EndHour != model.DefaultEndHour {
		t.Errorf("got window %d..%d, want defaults %d..%d",
			settings.StartHour, settings.EndHour, model.DefaultStartHour, model.DefaultEndHour)
	}

	rows, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the read to create one row, got %d", len(rows))
	}
}

func TestSettingsUpdatePartial(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	muted := true
	settings, err := repo.Update(ctx, 2, SettingsPatch{Muted: &muted})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !settings.Muted {
		t.Error("mute patch not applied")
	}
	if settings.StartHour != model.DefaultStartHour || settings.EndHour != model.DefaultEndHour {
		t.Error("window changed by a mute-only patch")
	}

	start, end := 22, 6
	settings, err = repo.Update(ctx, 2, SettingsPatch{StartHour: &start, EndHour: &end})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if settings.StartHour != 22 || settings.EndHour != 6 {
		t.Errorf("got window %d..%d, want 22..6", settings.StartHour, settings.EndHour)
	}
	if !settings.Muted {
		t.Error("mute flag lost by an hours-only patch")
	}

	stored, err := repo.GetOrDefault(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.StartHour != 22 || stored.EndHour != 6 || !stored.Muted {
		t.Errorf("persisted state diverged: %+v", stored)
	}
}

func TestSettingsUpdateClampsHours(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	start, end := -5, 30
	settings, err := repo.Update(ctx, 3, SettingsPatch{StartHour: &start, EndHour: &end})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if settings.StartHour != 0 || settings.EndHour != 24 {
		t.Errorf("got window %d..%d, want clamped 0..24", settings.StartHour, settings.EndHour)
	}
}

func TestSettingsUpdateEmptyPatch(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	settings, err := repo.Update(ctx, 4, SettingsPatch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if settings.StartHour != model.DefaultStartHour || settings.EndHour != model.DefaultEndHour || settings.Muted {
		t.Errorf("empty patch changed state: %+v", settings)
	}
}
