// Package dispatch wraps the outbound Telegram send primitive. Every message
// the system emits funnels through here, so delivery failures get classified
// in exactly one place.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DeliveryError wraps a failed send. Permanent means the recipient is
// unreachable (blocked the bot, deactivated account, unknown chat) and the
// caller should skip them; transient failures may succeed on a later attempt.
// This package never retries.
type DeliveryError struct {
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s delivery failure: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

// Sender is the outbound surface consumed by the scheduling services and the
// bot front end. Edit rewrites an existing message in place, used for
// button-driven list refreshes so a tap does not append a new copy of the list.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Dispatcher is the production Sender. Sends are paced with a token bucket to
// stay under Telegram's broadcast limit.
type Dispatcher struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(api *tgbotapi.BotAPI, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log.With().Str("component", "dispatch").Logger(),
	}
}

func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string) error {
	return d.SendWithMarkup(ctx, chatID, text, nil)
}

func (d *Dispatcher) SendWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Err: err}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := d.api.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

// Edit replaces the text and keyboard of an already-sent message. Editing a
// message into identical content is reported by Telegram as a 400 error but is
// not a failure here.
func (d *Dispatcher) Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Err: err}
	}

	var msg tgbotapi.Chattable
	if markup != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		msg = edit
	} else {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		msg = edit
	}

	if _, err := d.api.Send(msg); err != nil {
		if isNotModified(err) {
			return nil
		}
		return classify(err)
	}
	return nil
}

func isNotModified(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == 400 &&
		strings.Contains(strings.ToLower(tgErr.Message), "message is not modified")
}

// classify maps Telegram API errors onto the permanent/transient split.
// 403 covers blocked bots and deactivated accounts; a 400 "chat not found"
// means the recipient never existed from Telegram's point of view. Everything
// else (429, 5xx, network) is worth re-attempting on the next scheduled wake.
func classify(err error) *DeliveryError {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		switch {
		case tgErr.Code == 403:
			return &DeliveryError{Permanent: true, Err: err}
		case tgErr.Code == 400 && strings.Contains(strings.ToLower(tgErr.Message), "chat not found"):
			return &DeliveryError{Permanent: true, Err: err}
		}
	}
	return &DeliveryError{Err: err}
}
