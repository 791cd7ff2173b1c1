// Package bot wires the order bot's dialogue, store and approval relay to Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xojiakbarxolboyev/telegrambot/core/bootstrap"
	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	coretelegram "github.com/xojiakbarxolboyev/telegrambot/core/telegram"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/router"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/state"
	"github.com/xojiakbarxolboyev/telegrambot/internal/approval"
	"github.com/xojiakbarxolboyev/telegrambot/internal/config"
	"github.com/xojiakbarxolboyev/telegrambot/internal/dialogue"
	"github.com/xojiakbarxolboyev/telegrambot/internal/health"
	"github.com/xojiakbarxolboyev/telegrambot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// App is the order bot.
type App struct {
	cfg      *config.Config
	store    store.Store
	sessions state.Manager
	engine   *dialogue.Engine
	texts    Texts
	registry *coretelegram.Registry
	infra    *bootstrap.Result
	regErr   error

	// Set by Attach before the bot starts polling.
	bot   *tele.Bot
	relay *approval.Relay

	healthDone chan struct{}
}

// Bootstrap initialises logging, the selected store backend and the seed data.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.Storage.Driver == config.DriverPostgres {
		opts.Database = &cfg.Database
		opts.Migrations = store.Migrations
		opts.MigrationsDir = store.MigrationsDir
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if infra.DB != nil {
		st = store.NewPostgresStore(infra.DB)
	} else {
		st = store.NewFileStore(cfg.Storage.Path)
	}
	if err := bootstrap.RunSeeders(ctx, st, store.TopicSeeder(cfg.SeedTopics)); err != nil {
		_ = infra.Close()
		return nil, err
	}
	logger.Info(ctx, logger.CompApp, "app.bootstrap",
		slog.String("status", "ok"),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("gate", cfg.Bot.Channel != ""),
	)
	return New(cfg, st, infra), nil
}

// New assembles the app around an opened store. infra may be nil.
func New(cfg *config.Config, st store.Store, infra *bootstrap.Result, opts ...dialogue.Option) *App {
	prices := dialogue.Prices{
		Slide:      dialogue.PriceRange(cfg.Prices.Slide),
		ImageVideo: dialogue.PriceRange(cfg.Prices.ImageVideo),
		TextImage:  dialogue.PriceRange(cfg.Prices.TextImage),
		Video:      dialogue.PriceRange(cfg.Prices.Video),
	}
	a := &App{
		cfg:      cfg,
		store:    st,
		sessions: state.NewMemoryManager(),
		engine:   dialogue.New(dialogue.Flows(prices), storeResolver{st}, opts...),
		texts:    NewTexts(cfg.Texts),
		registry: coretelegram.NewRegistry(),
		infra:    infra,
	}
	a.regErr = a.register()
	return a
}

// Attach binds the app to a built bot. It must run before updates are processed.
func (a *App) Attach(b *tele.Bot) {
	a.bot = b
	a.relay = approval.NewRelay(b, approval.Config{
		OperatorID: a.cfg.Telegram.AdminID,
		NotifyID:   a.cfg.Bot.NotifyID,
		ContactURL: a.cfg.ContactURL(),
		Texts: approval.Texts{
			ApprovedSlide: a.texts.Get("approved_slide"),
			ApprovedMedia: a.texts.Get("approved_media"),
			Declined:      a.texts.Get("declined"),
			ContactLabel:  a.texts.Get("btn_contact_operator"),
			ApproveLabel:  a.texts.Get("btn_approve"),
			DeclineLabel:  a.texts.Get("btn_decline"),
			NoProof:       a.texts.Get("no_proof"),
		},
	})
}

// TelegramRunOptions describes routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a.regErr != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("bot: register handlers: %w", a.regErr)
	}
	core := a.cfg.CoreConfig()
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.TextRoutes(a, a.registry, router.TextOptions{
		AdminID:      core.Telegram.AdminID,
		UnknownText:  a.onUnknown,
		UnknownMedia: a.onUnknown,
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound:      func(c tele.Context) error { return c.Respond() },
		NoAutoRespond: true,
	}))
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(core, a.onLimited),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.Attach(rt.Bot)
	if addr := a.cfg.HTTP.Listen; addr != "" {
		a.healthDone = make(chan struct{})
		go func() {
			defer close(a.healthDone)
			if err := health.Serve(ctx, addr, a.store); err != nil {
				logger.Error(ctx, logger.CompHTTP, "http.serve",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
		}()
	}
	return nil
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	if a.healthDone == nil {
		return nil
	}
	select {
	case <-a.healthDone:
	case <-time.After(10 * time.Second):
		return errors.New("bot: health server did not stop")
	}
	return nil
}

// Close releases the store and the database connection.
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.infra.Close())
}

// InProgress reports whether the user is inside a flow.
func (a *App) InProgress(userID int64) bool {
	return a.sessions.InProgress(userID)
}

type storeResolver struct {
	st store.Store
}

func (r storeResolver) TopicExists(ctx context.Context, number int64) (bool, error) {
	_, ok, err := r.st.Topic(ctx, number)
	return ok, err
}

func (r storeResolver) StatusExists(ctx context.Context, status int64) (bool, error) {
	_, ok, err := r.st.FindIDByStatus(ctx, status)
	return ok, err
}

// chatRecipient addresses a chat by "@username" or numeric id.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

func (a *App) channel() tele.Recipient {
	ch := a.cfg.Bot.Channel
	if ch == "" {
		return nil
	}
	if id, err := strconv.ParseInt(ch, 10, 64); err == nil {
		return tele.ChatID(id)
	}
	if !strings.HasPrefix(ch, "@") {
		ch = "@" + ch
	}
	return chatRecipient(ch)
}

// subscribed asks Telegram whether user is a member of the gate channel.
func (a *App) subscribed(user *tele.User) (bool, error) {
	ch := a.channel()
	if ch == nil {
		return true, nil
	}
	m, err := a.bot.ChatMemberOf(ch, user)
	if err != nil {
		return false, fmt.Errorf("bot: chat member: %w", err)
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	}
	return false, nil
}
