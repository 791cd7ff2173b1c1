package router

import (
	"time"

	tg "github.com/xojiakbarxolboyev/telegrambot/core/telegram"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the dialogue manager that receives input while a user is inside a flow.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for messages outside any flow.
type TextOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc

	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes routes text, photo, document, video and contact messages.
// Menu labels are matched against command aliases before the active flow
// sees the text, so the menu always works as an exit from a dialogue.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	inFlow := func(c tele.Context) bool {
		return fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID)
	}

	textHandler := func(c tele.Context) error {
		start := time.Now()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				h := cmd.Handler
				if cmd.AdminOnly {
					h = adminOnly(h)
				}
				return handleWithSummary(c, normalizeHandlerName(key), start, "", func() error {
					return h(c)
				})
			}
		}

		if inFlow(c) {
			return handleWithSummary(c, "fsm", start, "", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	mediaHandler := func(kind string) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			if inFlow(c) {
				return handleWithSummary(c, "fsm_"+kind, start, "", func() error {
					return fsmMgr.ManagerHandler(c)
				})
			}
			if opts.UnknownMedia != nil {
				return handleWithSummary(c, "unexpected_"+kind, start, "", func() error {
					return opts.UnknownMedia(c)
				})
			}
			logHandlerSummary(c, "unexpected_"+kind, start, "skip", nil)
			return nil
		}
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(mediaHandler("photo"))},
		{Endpoint: tele.OnDocument, Handler: wrap(mediaHandler("document"))},
		{Endpoint: tele.OnVideo, Handler: wrap(mediaHandler("video"))},
		{Endpoint: tele.OnContact, Handler: wrap(mediaHandler("contact"))},
	}
}
