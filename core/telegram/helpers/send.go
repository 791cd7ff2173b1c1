package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// With no dispatcher the helpers call the Bot API inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, logger.CompTG, "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// Deleter is the part of the bot API needed to remove messages.
type Deleter interface {
	Delete(msg tele.Editable) error
}

// DeleteMessage removes a message, in the background when a dispatcher is set.
// Failures are only logged since the message may already be gone.
func DeleteMessage(c tele.Context, api Deleter, msg tele.Editable) {
	if api == nil || msg == nil {
		return
	}
	err := sendAsync(c, "delete", "deleteMessage", func() error {
		return api.Delete(msg)
	})
	if err != nil {
		logger.Debug(BuildContext(c), logger.CompTG, "delete.fail",
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
		)
	}
}
