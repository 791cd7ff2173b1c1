package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	tg "github.com/xojiakbarxolboyev/telegrambot/core/telegram"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Admin-only commands are also guarded when reached through a text alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), "", func() error { return inner(c) })
		}
		if def.AdminOnly {
			h = adminOnly(h)
		}
		h = middleware.LoggerMiddleware(h)
		h = middleware.RecoverMiddleware(h)
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
	}

	logger.Info(context.Background(), logger.CompTWire, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
