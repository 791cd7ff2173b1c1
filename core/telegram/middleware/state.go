package middleware

import (
	"log/slog"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// SessionChecker reports whether a user is in the middle of a dialogue.
type SessionChecker interface {
	InProgress(userID int64) bool
}

// ActiveSession drops updates from users without an active dialogue, such as
// presses on navigation buttons left over from a finished flow. onIdle may be nil.
func ActiveSession(mgr SessionChecker, onIdle tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && mgr.InProgress(user.ID) {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelDebug, "session.idle",
				slog.String("status", "skip"),
			)
			if onIdle != nil {
				return onIdle(c)
			}
			return nil
		}
	}
}
