package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/callbacks"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware sets the rid and logs a single receipt line per update.
// Receipts are deduplicated by update_id since the middleware runs on several branches.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Message != nil:
				attrs = append(attrs,
					slog.String("kind", messageKind(upd.Message)),
					slog.String("payload", logger.SanitizeLimit(c.Text(), 256)),
				)
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

func messageKind(m *tele.Message) string {
	switch {
	case m.Photo != nil:
		return "photo"
	case m.Document != nil:
		return "document"
	case m.Video != nil:
		return "video"
	case m.Contact != nil:
		return "contact"
	case m.Text != "":
		return "text"
	default:
		return "other"
	}
}
