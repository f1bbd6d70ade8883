// Package bot is the Telegram presentation layer: command parsing, menus and
// callback routing. All business rules live in the repositories and services;
// all outbound messages go through the dispatcher.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"taskbot/internal/dispatch"
	"taskbot/internal/model"
	"taskbot/internal/repository"
	"taskbot/internal/service"
)

const (
	listRenderCap = 25
	usersPageSize = 20
)

// Bot aggregates the Telegram API with stores and services.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   dispatch.Sender
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	settings *repository.SettingsRepository
	registry *service.AdminRegistry
	sem      *semaphore.Weighted
	log      zerolog.Logger

	// awaiting maps an admin to the user their next free-text message creates
	// a task for. Single writer per admin; one mutex covers the map itself.
	mu       sync.Mutex
	awaiting map[int64]int64
}

func New(api *tgbotapi.BotAPI, sender dispatch.Sender, users *repository.UserRepository, tasks *repository.TaskRepository, settings *repository.SettingsRepository, registry *service.AdminRegistry, maxHandlers int64, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		sender:   sender,
		users:    users,
		tasks:    tasks,
		settings: settings,
		registry: registry,
		sem:      semaphore.NewWeighted(maxHandlers),
		log:      log.With().Str("component", "bot").Logger(),
		awaiting: make(map[int64]int64),
	}
}

// Start begins polling updates until ctx is cancelled. Each update is handled
// on its own goroutine, bounded by the semaphore, so a slow store call never
// blocks the polling loop.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Str("account", b.api.Self.UserName).Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(update tgbotapi.Update) {
			defer b.sem.Release(1)
			b.handleUpdate(ctx, update)
		}(update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error().Err(err).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	// Refresh the user's profile on every contact.
	if _, err := b.users.Upsert(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName); err != nil {
		return err
	}

	if msg.IsCommand() {
		b.log.Debug().Int64("user", msg.From.ID).Str("command", msg.Command()).Msg("command received")
		err := b.handleCommand(ctx, msg)
		if errors.Is(err, service.ErrForbidden) {
			return b.sender.Send(ctx, msg.Chat.ID, "❌ Access denied.")
		}
		return err
	}

	if target, ok := b.takeAwaiting(msg.From.ID); ok {
		return b.finishAssign(ctx, msg, target)
	}

	return b.sender.Send(ctx, msg.Chat.ID, "I didn't catch that. Try /mytasks or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(ctx, msg)
	case "mytasks":
		return b.sendTaskList(ctx, msg.Chat.ID, msg.From.ID, msg.From.ID)
	case "addtask":
		return b.handleAddTask(ctx, msg)
	case "users":
		return b.handleUsers(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "mute":
		return b.handleMute(ctx, msg, true)
	case "unmute":
		return b.handleMute(ctx, msg, false)
	case "hours":
		return b.handleHours(ctx, msg)
	case "settings":
		return b.handleSettings(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "grant":
		return b.handleGrant(ctx, msg)
	case "revoke":
		return b.handleRevoke(ctx, msg)
	case "admins":
		return b.handleAdmins(ctx, msg)
	case "cancel":
		b.clearAwaiting(msg.From.ID)
		return b.sender.Send(ctx, msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sender.Send(ctx, msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	admin, err := b.isAuthority(ctx, msg.From)
	if err != nil {
		return err
	}
	if admin {
		text := fmt.Sprintf(
			"👑 <b>Hello %s!</b>\n\nAdmin commands:\n"+
				"• /users — browse users and assign tasks\n"+
				"• /addtask &lt;id&gt; &lt;text&gt; — assign a task directly\n"+
				"• /stats — global stats\n"+
				"• /grant, /revoke, /admins — manage admins\n\n"+
				"Everything under /help works for you too.",
			esc(name),
		)
		return b.sender.Send(ctx, msg.Chat.ID, text)
	}

	tasks, err := b.tasks.ListByOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	pending := 0
	for _, t := range tasks {
		if !t.Done {
			pending++
		}
	}
	text := fmt.Sprintf(
		"👋 <b>Hello %s!</b>\n\nYou have <b>%d</b> pending task(s).\nUse /mytasks to see them and /help for all commands.",
		esc(name), pending,
	)
	return b.sender.Send(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /mytasks — your tasks, tap to toggle\n" +
		"• /mute, /unmute — pause or resume reminders\n" +
		"• /hours &lt;start&gt; &lt;end&gt; — reminder hours, e.g. /hours 9 21\n" +
		"• /report — your current progress\n" +
		"• /settings — show your notification settings\n" +
		"• /cancel — cancel pending input\n\n" +
		"Reminders arrive every other hour inside your active window.\n" +
		"Recurring tasks reset to pending every night after the daily report."
	return b.sender.Send(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleAddTask(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		return b.sender.Send(ctx, msg.Chat.ID, "Usage: /addtask &lt;user id&gt; &lt;task text&gt;")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sender.Send(ctx, msg.Chat.ID, "❗ User ID must be a number.")
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return b.sender.Send(ctx, msg.Chat.ID, "❗ Task text is empty.")
	}

	if err := b.users.EnsureExists(ctx, targetID); err != nil {
		return err
	}
	taskID, err := b.tasks.Create(ctx, msg.From.ID, targetID, text)
	if err != nil {
		return err
	}

	b.log.Info().Uint("task", taskID).Int64("owner", targetID).Int64("creator", msg.From.ID).Msg("task created")
	return b.sender.Send(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Task #%d added for user <code>%d</code>:\n📝 %s", taskID, targetID, esc(text)))
}

func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}

	text, markup, err := b.usersView(ctx, 0)
	if err != nil {
		return err
	}
	if markup == nil {
		return b.sender.Send(ctx, msg.Chat.ID, text)
	}
	return b.sender.SendWithMarkup(ctx, msg.Chat.ID, text, *markup)
}

// usersView renders one page of the admin user listing with navigation
// buttons when more pages exist.
func (b *Bot) usersView(ctx context.Context, offset int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	total, err := b.users.Count(ctx)
	if err != nil {
		return "", nil, err
	}
	rows, err := b.users.ListWithTaskCounts(ctx, offset, usersPageSize)
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return "📭 No users registered yet.", nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 <b>Users %d–%d</b> (%d total)\n\n",
		offset+1, offset+len(rows), total))
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		name := displayName(row)
		handle := "no-username"
		if row.Username != "" {
			handle = "@" + row.Username
		}
		sb.WriteString(fmt.Sprintf("👤 <b>%s</b> (%s)\n   📊 %d/%d done | 🆔 <code>%d</code>\n",
			esc(name), esc(handle), row.DoneCount, row.TaskCount, row.UserID))
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("👀 "+clip(name, 12), encodeView(row.UserID)),
			tgbotapi.NewInlineKeyboardButtonData("➕ Task", encodeAssign(row.UserID)),
		})
	}

	var nav []tgbotapi.InlineKeyboardButton
	if offset > 0 {
		prev := offset - usersPageSize
		if prev < 0 {
			prev = 0
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", encodeUsersPage(prev)))
	}
	if int64(offset+len(rows)) < total {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", encodeUsersPage(offset+usersPageSize)))
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(buttons...)
	return strings.TrimSpace(sb.String()), &markup, nil
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}

	userCount, err := b.users.Count(ctx)
	if err != nil {
		return err
	}
	taskCount, doneCount, err := b.tasks.Totals(ctx)
	if err != nil {
		return err
	}

	progress := 0.0
	if taskCount > 0 {
		progress = float64(doneCount) * 100 / float64(taskCount)
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Global stats</b>\n\n")
	sb.WriteString(fmt.Sprintf("👥 Users: <b>%d</b>\n", userCount))
	sb.WriteString(fmt.Sprintf("📝 Tasks: <b>%d</b>\n", taskCount))
	sb.WriteString(fmt.Sprintf("✅ Done: <b>%d</b>\n", doneCount))
	sb.WriteString(fmt.Sprintf("⏳ Pending: <b>%d</b>\n", taskCount-doneCount))
	sb.WriteString(fmt.Sprintf("📈 Progress: <b>%.1f%%</b>\n", progress))

	rows, err := b.users.ListWithTaskCounts(ctx, 0, 50)
	if err != nil {
		return err
	}
	type scored struct {
		name string
		pct  float64
	}
	var top []scored
	for _, row := range rows {
		if row.TaskCount == 0 {
			continue
		}
		top = append(top, scored{name: displayName(row), pct: float64(row.DoneCount) * 100 / float64(row.TaskCount)})
	}
	if len(top) > 0 {
		sb.WriteString("\n🏆 <b>Top users:</b>\n")
		for i := 0; i < len(top) && i < 5; i++ {
			best := i
			for j := i + 1; j < len(top); j++ {
				if top[j].pct > top[best].pct {
					best = j
				}
			}
			top[i], top[best] = top[best], top[i]
			sb.WriteString(fmt.Sprintf("%d. %s — %.1f%%\n", i+1, esc(top[i].name), top[i].pct))
		}
	}

	return b.sender.Send(ctx, msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleMute(ctx context.Context, msg *tgbotapi.Message, mute bool) error {
	if _, err := b.settings.Update(ctx, msg.From.ID, repository.SettingsPatch{Muted: &mute}); err != nil {
		return err
	}
	if mute {
		return b.sender.Send(ctx, msg.Chat.ID, "🔕 Reminders muted. /unmute to resume.")
	}
	return b.sender.Send(ctx, msg.Chat.ID, "🔔 Reminders resumed.")
}

func (b *Bot) handleHours(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sender.Send(ctx, msg.Chat.ID, "Usage: /hours &lt;start&gt; &lt;end&gt;, e.g. /hours 9 21. Use 0 24 for always, 22 6 for overnight.")
	}

	start, err1 := strconv.Atoi(args[0])
	end, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return b.sender.Send(ctx, msg.Chat.ID, "❗ Hours must be numbers between 0 and 24.")
	}

	settings, err := b.settings.Update(ctx, msg.From.ID, repository.SettingsPatch{StartHour: &start, EndHour: &end})
	if err != nil {
		return err
	}
	return b.sender.Send(ctx, msg.Chat.ID,
		fmt.Sprintf("⏰ Reminder window set: %s", describeWindow(settings.StartHour, settings.EndHour)))
}

func (b *Bot) handleSettings(ctx context.Context, msg *tgbotapi.Message) error {
	settings, err := b.settings.GetOrDefault(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	state := "🔔 on"
	if settings.Muted {
		state = "🔕 muted"
	}
	return b.sender.Send(ctx, msg.Chat.ID, fmt.Sprintf(
		"⚙️ <b>Your settings</b>\n\nReminders: %s\nActive window: %s",
		state, describeWindow(settings.StartHour, settings.EndHour)))
}

// handleReport sends the caller's own progress summary on demand, without
// waiting for the nightly report.
func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.tasks.ListByOwner(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.sender.Send(ctx, msg.Chat.ID, "📭 Nothing to report, your list is empty.")
	}

	var done, recurring int
	for _, t := range tasks {
		if t.Done {
			done++
		}
		if t.Recurring {
			recurring++
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Your progress</b>\n\n")
	sb.WriteString(fmt.Sprintf("✅ Done: <b>%d</b>\n", done))
	sb.WriteString(fmt.Sprintf("⏳ Pending: <b>%d</b>\n", len(tasks)-done))
	sb.WriteString(fmt.Sprintf("♻️ Recurring: <b>%d</b>\n", recurring))
	sb.WriteString(fmt.Sprintf("📈 Completion: <b>%.0f%%</b>", float64(done)*100/float64(len(tasks))))
	return b.sender.Send(ctx, msg.Chat.ID, sb.String())
}

func (b *Bot) handleGrant(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}
	targetID, ok := parseIDArgument(msg.CommandArguments())
	if !ok {
		return b.sender.Send(ctx, msg.Chat.ID, "Usage: /grant &lt;user id&gt;")
	}
	if err := b.registry.Grant(ctx, targetID, msg.From.ID); err != nil {
		return err
	}
	if err := b.users.EnsureExists(ctx, targetID); err != nil {
		return err
	}
	return b.sender.Send(ctx, msg.Chat.ID, fmt.Sprintf("👑 User <code>%d</code> is now an admin.", targetID))
}

func (b *Bot) handleRevoke(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}
	targetID, ok := parseIDArgument(msg.CommandArguments())
	if !ok {
		return b.sender.Send(ctx, msg.Chat.ID, "Usage: /revoke &lt;user id&gt;")
	}
	switch err := b.registry.Revoke(ctx, targetID); {
	case errors.Is(err, service.ErrProtected):
		return b.sender.Send(ctx, msg.Chat.ID, "🛡 That admin is configured at startup and cannot be revoked.")
	case errors.Is(err, service.ErrNotFound):
		return b.sender.Send(ctx, msg.Chat.ID, "That user holds no revocable grant.")
	case err != nil:
		return err
	}
	return b.sender.Send(ctx, msg.Chat.ID, fmt.Sprintf("👑 Admin rights revoked from <code>%d</code>.", targetID))
}

func (b *Bot) handleAdmins(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.requireAuthority(ctx, msg); err != nil {
		return err
	}

	grants, err := b.registry.ListDynamic(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("👑 <b>Admins</b>\n\n<b>Bootstrap (immutable):</b>\n")
	for _, id := range b.registry.BootstrapIDs() {
		sb.WriteString(fmt.Sprintf("• <code>%d</code>\n", id))
	}
	for _, h := range b.registry.BootstrapHandles() {
		sb.WriteString(fmt.Sprintf("• @%s\n", esc(h)))
	}
	sb.WriteString("\n<b>Granted at runtime:</b>\n")
	if len(grants) == 0 {
		sb.WriteString("— none\n")
	}
	for _, g := range grants {
		sb.WriteString(fmt.Sprintf("• <code>%d</code> (by <code>%d</code>, %s)\n",
			g.UserID, g.GrantedBy, g.GrantedAt.Format("2006-01-02")))
	}
	return b.sender.Send(ctx, msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	cmd, err := parseCallback(cb.Data)
	if err != nil {
		b.log.Warn().Err(err).Msg("dropping callback")
		return nil
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	switch cmd.kind {
	case cbToggle:
		return b.toggleAndRefresh(ctx, chatID, messageID, cb.From.ID, cmd.taskID)
	case cbDelete:
		return b.deleteAndRefresh(ctx, chatID, messageID, cb.From, cmd.taskID)
	case cbAssign:
		return b.startAssign(ctx, chatID, cb.From, cmd.userID)
	case cbView:
		if ok, err := b.isAuthority(ctx, cb.From); err != nil || !ok {
			return err
		}
		return b.editTaskList(ctx, chatID, messageID, cmd.userID, cb.From.ID)
	case cbUsersPage:
		if ok, err := b.isAuthority(ctx, cb.From); err != nil || !ok {
			return err
		}
		text, markup, err := b.usersView(ctx, cmd.offset)
		if err != nil {
			return err
		}
		return b.sender.Edit(ctx, chatID, messageID, text, markup)
	default:
		return nil
	}
}

func (b *Bot) toggleAndRefresh(ctx context.Context, chatID int64, messageID int, userID int64, taskID uint) error {
	err := b.tasks.Toggle(ctx, taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Missing row and foreign owner are indistinguishable here; the store
		// collapses both into not-found and we surface that instead of a
		// silent no-op.
		return b.sender.Send(ctx, chatID, "Task not found — it may have been deleted, or it isn't yours.")
	}
	if err != nil {
		return err
	}
	return b.editTaskList(ctx, chatID, messageID, userID, userID)
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID int64, messageID int, from *tgbotapi.User, taskID uint) error {
	task, err := b.tasks.Find(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return b.sender.Send(ctx, chatID, "Task not found — it may already be deleted.")
	}
	if err != nil {
		return err
	}

	// Only the creator may delete; the store delete itself is unconditional.
	if task.CreatorID != from.ID {
		return b.sender.Send(ctx, chatID, "🛡 Only the creator of a task can delete it.")
	}

	if err := b.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	b.log.Info().Uint("task", taskID).Int64("by", from.ID).Msg("task deleted")
	return b.editTaskList(ctx, chatID, messageID, task.OwnerID, from.ID)
}

func (b *Bot) startAssign(ctx context.Context, chatID int64, from *tgbotapi.User, targetID int64) error {
	if ok, err := b.isAuthority(ctx, from); err != nil || !ok {
		return err
	}
	b.setAwaiting(from.ID, targetID)
	return b.sender.Send(ctx, chatID,
		fmt.Sprintf("✏️ Send the task text for user <code>%d</code> (or /cancel).", targetID))
}

func (b *Bot) finishAssign(ctx context.Context, msg *tgbotapi.Message, targetID int64) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.setAwaiting(msg.From.ID, targetID)
		return b.sender.Send(ctx, msg.Chat.ID, "❗ Task text is empty, try again or /cancel.")
	}

	if err := b.users.EnsureExists(ctx, targetID); err != nil {
		return err
	}
	taskID, err := b.tasks.Create(ctx, msg.From.ID, targetID, text)
	if err != nil {
		return err
	}

	b.log.Info().Uint("task", taskID).Int64("owner", targetID).Int64("creator", msg.From.ID).Msg("task created")
	return b.sender.Send(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Task #%d added for user <code>%d</code>:\n📝 %s", taskID, targetID, esc(text)))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID, ownerID, viewerID int64) error {
	text, markup, err := b.taskListView(ctx, ownerID, viewerID)
	if err != nil {
		return err
	}
	if markup == nil {
		return b.sender.Send(ctx, chatID, text)
	}
	return b.sender.SendWithMarkup(ctx, chatID, text, *markup)
}

// editTaskList re-renders the list into the message the tapped button belongs
// to, so button-driven refreshes do not pile up new copies in the chat.
func (b *Bot) editTaskList(ctx context.Context, chatID int64, messageID int, ownerID, viewerID int64) error {
	text, markup, err := b.taskListView(ctx, ownerID, viewerID)
	if err != nil {
		return err
	}
	return b.sender.Edit(ctx, chatID, messageID, text, markup)
}

// taskListView renders ownerID's tasks for viewerID. Toggle buttons appear
// only on the owner's own list; delete buttons only on tasks the viewer
// created.
func (b *Bot) taskListView(ctx context.Context, ownerID, viewerID int64) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	tasks, err := b.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	if len(tasks) == 0 {
		if ownerID == viewerID {
			return "🎉 <b>No tasks!</b> You're all caught up.", nil, nil
		}
		return fmt.Sprintf("📭 User <code>%d</code> has no tasks.", ownerID), nil, nil
	}

	pending, done := 0, 0
	for _, t := range tasks {
		if t.Done {
			done++
		} else {
			pending++
		}
	}

	var sb strings.Builder
	if ownerID == viewerID {
		sb.WriteString("📋 <b>Your tasks</b>\n")
	} else {
		sb.WriteString(fmt.Sprintf("📋 <b>Tasks of user <code>%d</code></b>\n", ownerID))
	}
	sb.WriteString(fmt.Sprintf("📊 ✅ %d done | ⏳ %d pending\n\n", done, pending))

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == listRenderCap {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(tasks)-listRenderCap))
			break
		}
		icon := "⏳"
		if task.Done {
			icon = "✅"
		}
		marker := ""
		if task.Recurring {
			marker = " ♻️"
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s%s <i>(%s)</i>\n",
			icon, task.ID, esc(task.Text), marker, task.CreatedAt.Format("2006-01-02 15:04")))

		var row []tgbotapi.InlineKeyboardButton
		if ownerID == viewerID {
			label := "✅ Done"
			if task.Done {
				label = "↩️ Undo"
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s: %s", label, clip(task.Text, 15)), encodeToggle(task.ID)))
		}
		if task.CreatorID == viewerID {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", encodeDelete(task.ID)))
		}
		if len(row) > 0 {
			buttons = append(buttons, row)
		}
	}

	if len(buttons) == 0 {
		return strings.TrimSpace(sb.String()), nil, nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(buttons...)
	return strings.TrimSpace(sb.String()), &markup, nil
}

func (b *Bot) isAuthority(ctx context.Context, from *tgbotapi.User) (bool, error) {
	return b.registry.IsAuthority(ctx, from.ID, from.UserName)
}

// requireAuthority returns ErrForbidden when the caller lacks admin authority;
// handleMessage turns that into the access-denied reply.
func (b *Bot) requireAuthority(ctx context.Context, msg *tgbotapi.Message) error {
	ok, err := b.isAuthority(ctx, msg.From)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrForbidden
	}
	return nil
}

func (b *Bot) setAwaiting(adminID, targetID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaiting[adminID] = targetID
}

func (b *Bot) takeAwaiting(adminID int64) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target, ok := b.awaiting[adminID]
	if ok {
		delete(b.awaiting, adminID)
	}
	return target, ok
}

func (b *Bot) clearAwaiting(adminID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.awaiting, adminID)
}

func parseIDArgument(args string) (int64, bool) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// displayName labels a user listing row, falling back to the numeric ID for
// stub rows with an empty profile.
func displayName(row repository.UserTaskCounts) string {
	name := model.User{FirstName: row.FirstName, Username: row.Username}.DisplayName()
	if name == "" {
		return strconv.FormatInt(row.UserID, 10)
	}
	return name
}

func describeWindow(start, end int) string {
	switch {
	case start == 0 && end == 24:
		return "always active"
	case start == end:
		return "never active (zero-length window)"
	case start > end:
		return fmt.Sprintf("%02d:00–%02d:00 (overnight)", start, end)
	default:
		return fmt.Sprintf("%02d:00–%02d:00", start, end)
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

func clip(s string, n int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= n {
		return clean
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
