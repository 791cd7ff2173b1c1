package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/xojiakbarxolboyev/telegrambot/core/config"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Middleware names used by DefaultMiddlewares.
const (
	MiddlewareRecover   = "recover"
	MiddlewareRateLimit = "rate_limit"
	MiddlewareLogger    = "logger"
	MiddlewareMetrics   = "metrics"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// The operator and rate_limit.exempt_ids bypass throttling; onLimited is
// called once per warn window for everyone else.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: MiddlewareRecover, Use: middleware.RecoverMiddleware},
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		exempt := append([]int64{cfg.Telegram.AdminID}, cfg.RateLimit.ExemptIDs...)
		limiter := middleware.NewLimiter(
			time.Duration(cfg.RateLimit.IntervalMS)*time.Millisecond,
			time.Duration(cfg.RateLimit.WarnIntervalMS)*time.Millisecond,
			exempt...,
		)
		mws = append(mws, Middleware{
			Name: MiddlewareRateLimit,
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Limiter:   limiter,
				Exclude:   ex,
				OnLimited: onLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: MiddlewareLogger, Use: middleware.LoggerMiddleware},
		Middleware{Name: MiddlewareMetrics, Use: middleware.MessageMetricsMiddleware},
	)
}

// WithoutMiddleware returns mws minus the entries with the given names.
func WithoutMiddleware(mws []Middleware, names ...string) []Middleware {
	out := make([]Middleware, 0, len(mws))
next:
	for _, mw := range mws {
		for _, n := range names {
			if mw.Name == n {
				continue next
			}
		}
		out = append(out, mw)
	}
	return out
}
