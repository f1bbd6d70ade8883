package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/bot"
	"taskbot/internal/config"
	"taskbot/internal/dispatch"
	"taskbot/internal/logging"
	"taskbot/internal/repository"
	"taskbot/internal/service"
)

const jobTimeout = 2 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "console")
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("resolve timezone")
	}

	db, err := repository.NewDB(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	settings := repository.NewSettingsRepository(db)
	admins := repository.NewAdminRepository(db)

	registry := service.NewAdminRegistry(cfg.BootstrapAdminIDs, cfg.BootstrapAdminHandles, admins, log)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to telegram")
	}
	log.Info().Str("account", api.Self.UserName).Msg("authorized")

	sender := dispatch.New(api, log)

	reminders := service.NewReminderService(tasks, settings, sender, loc, cfg.ReminderSampleCap, log)
	rollover := service.NewRolloverService(tasks, sender, registry, loc, log)

	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleEveryHours(cfg.ReminderStepHours, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := reminders.RunBatch(jobCtx, time.Now()); err != nil {
			log.Error().Err(err).Msg("reminder batch failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule reminders")
	}
	if _, err := scheduler.ScheduleDaily(cfg.RolloverTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := rollover.Run(jobCtx, time.Now()); err != nil {
			log.Error().Err(err).Msg("rollover failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule rollover")
	}
	scheduler.Start()
	defer scheduler.Stop()

	b := bot.New(api, sender, users, tasks, settings, registry, cfg.MaxHandlers, log)
	if err := b.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}

	log.Info().Msg("shutdown complete")
}
