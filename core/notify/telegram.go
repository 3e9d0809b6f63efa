package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/apptbot/core/appointment"
	"github.com/m3rciful/apptbot/core/config"
	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/netutil"
)

// Sender is the part of *tele.Bot the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram posts a short summary of every booking to one admin chat.
type Telegram struct {
	sender     Sender
	chat       tele.Recipient
	dispatcher *Dispatcher
}

// NewTelegramBot builds an offline bot used only for sending; no updates are polled.
func NewTelegramBot(cfg config.TelegramConfig) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  netutil.NewHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot initialization failed: %w", err)
	}
	return bot, nil
}

// NewTelegram returns a notifier sending to adminID through d. A nil dispatcher sends
// synchronously.
func NewTelegram(sender Sender, adminID int64, d *Dispatcher) *Telegram {
	return &Telegram{sender: sender, chat: tele.ChatID(adminID), dispatcher: d}
}

// Record implements appointment.Recorder. With a dispatcher the message is queued and
// Record only fails when the queue rejects it.
func (t *Telegram) Record(ctx context.Context, a appointment.Appointment) error {
	text := FormatAppointment(a)
	send := func(context.Context) error {
		_, err := t.sender.Send(t.chat, text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
		return err
	}
	if t.dispatcher == nil {
		return send(ctx)
	}
	if err := t.dispatcher.Enqueue(ctx, "send.appointment", send); err != nil {
		logger.Warn(ctx, logger.CompNotify, "queue.reject",
			slog.String("status", "fail"),
			slog.String("appointment_id", a.ID.String()),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// FormatAppointment renders the admin notification in Telegram MarkdownV2.
func FormatAppointment(a appointment.Appointment) string {
	var b strings.Builder
	b.WriteString("*New appointment*\n")
	fmt.Fprintf(&b, "When: `%s`\n", EscapeMarkdownV2(a.Date))
	fmt.Fprintf(&b, "User: %s\n", EscapeMarkdownV2(a.UserID))
	if a.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", EscapeMarkdownV2(a.Phone))
	}
	fmt.Fprintf(&b, "ID: `%s`", a.ID.String())
	return b.String()
}

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdownV2 escapes every character Telegram reserves in MarkdownV2.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(mdV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
