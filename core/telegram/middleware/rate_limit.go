package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Verdict is the result of a Limiter check.
type Verdict int

const (
	// Admit lets the update through.
	Admit Verdict = iota
	// Drop suppresses the update silently.
	Drop
	// DropAndWarn suppresses the update and asks the caller to send one warning.
	DropAndWarn
)

// Limiter enforces a minimum gap between handled updates of the same user and
// emits at most one warning per warn interval. Suppressed updates do not move
// the window, so a user keeps being admitted once per interval however fast
// they type.
type Limiter struct {
	interval time.Duration
	warn     time.Duration
	exempt   map[int64]struct{}

	mu    sync.Mutex
	users map[int64]*userLimit
}

type userLimit struct {
	action *rate.Limiter
	warn   *rate.Limiter
}

// NewLimiter builds a limiter; exempt ids are always admitted.
func NewLimiter(interval, warn time.Duration, exempt ...int64) *Limiter {
	l := &Limiter{
		interval: interval,
		warn:     warn,
		exempt:   make(map[int64]struct{}, len(exempt)),
		users:    make(map[int64]*userLimit),
	}
	for _, id := range exempt {
		if id != 0 {
			l.exempt[id] = struct{}{}
		}
	}
	return l
}

// Check records an update from userID at now.
func (l *Limiter) Check(userID int64, now time.Time) Verdict {
	if l == nil || l.interval <= 0 {
		return Admit
	}
	if _, ok := l.exempt[userID]; ok {
		return Admit
	}

	l.mu.Lock()
	u, ok := l.users[userID]
	if !ok {
		u = &userLimit{
			action: rate.NewLimiter(rate.Every(l.interval), 1),
			warn:   rate.NewLimiter(rate.Every(l.warn), 1),
		}
		l.users[userID] = u
	}
	l.mu.Unlock()

	if u.action.AllowN(now, 1) {
		return Admit
	}
	if l.warn > 0 && u.warn.AllowN(now, 1) {
		return DropAndWarn
	}
	return Drop
}

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Limiter *Limiter
	Exclude map[string]struct{}
	// OnLimited runs only when a warning is due, never for silent drops. It must
	// answer callback queries itself; silently dropped callbacks get an empty answer.
	OnLimited tele.HandlerFunc
	Now       func() time.Time
}

// RateLimitMiddleware drops updates that arrive faster than the limiter allows.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Limiter == nil {
				return next(c)
			}

			upd := c.Update()
			kind := "other"
			switch {
			case upd.Callback != nil:
				kind = "callback"
			case upd.Message != nil:
				kind = "message"
			}
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			verdict := opts.Limiter.Check(user.ID, now())
			if verdict == Admit {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Bool("warned", verdict == DropAndWarn),
			)
			if verdict == DropAndWarn && opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			if upd.Callback != nil {
				// Stops the button spinner.
				return c.Respond()
			}
			return nil
		}
	}
}
