package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	coreconfig "github.com/xojiakbarxolboyev/telegrambot/core/config"
	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"
	tgsender "github.com/xojiakbarxolboyev/telegrambot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of Build and RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// Settings may adjust the telebot settings before the bot is created.
	Settings func(*tele.Settings)

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// Close stops the dispatcher and detaches it from the send helpers.
func (rt Runtime) Close() {
	if rt.Dispatcher != nil {
		rt.Dispatcher.Close()
	}
	tghelpers.SetDispatcher(nil)
}

// Build creates the bot and applies middlewares and routes without contacting Telegram.
func Build(ctx context.Context, opts RunOptions) (*tele.Bot, Runtime, error) {
	if opts.Config == nil {
		return nil, Runtime{}, errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(pollTimeout(cfg)),
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{slog.String("err", tgsender.RedactToken(err.Error()))}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelError, "tg.handler_error", attrs...)
		},
	}
	if opts.Settings != nil {
		opts.Settings(&settings)
	}

	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, Runtime{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	var dispatcher *tgsender.Dispatcher
	if !opts.DisableHelperDispatcher {
		dispatcher = opts.Dispatcher
		if dispatcher == nil {
			dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
		}
		tghelpers.SetDispatcher(dispatcher)
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	routes := 0
	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
		routes++
	}

	logger.Info(ctx, logger.CompTWire, "tg.build",
		slog.String("status", "ok"),
		slog.Int("middlewares", len(opts.Middlewares)),
		slog.Int("routes", routes),
		slog.Duration("duration", logger.Took(start)),
	)
	return bot, Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}, nil
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return 0
	}
	return longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)
}

// RunTelegram builds the bot and runs it until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bot, rt, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := opts.Config

	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, logger.CompTG, "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	default:
		logger.Info(ctx, logger.CompTG, "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)),
		)
		if !opts.DisableWebhookCleanup {
			if err := deleteWebhook(ctx, bot.URL, cfg.Telegram.Token); err != nil {
				logger.Warn(ctx, logger.CompTG, "delete_webhook",
					slog.String("status", "fail"),
					slog.String("err", tgsender.RedactToken(err.Error())),
				)
			}
		}
	}

	InitBotCommands(bot, rt.Registry)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func deleteWebhook(ctx context.Context, apiURL, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	if apiURL == "" {
		apiURL = tele.DefaultApiURL
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	url := fmt.Sprintf("%s/bot%s/deleteWebhook", strings.TrimRight(apiURL, "/"), token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
