package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands, their keyboard aliases and callback handlers.
// Commands are registered before the bot starts; callbacks may be added later.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string

	callbacksMu sync.RWMutex
	callbacks   map[string]tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds a command. Names start with '/'; an alias may point
// at one command only.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	reject := func(reason string) error {
		logger.Warn(context.Background(), logger.CompTWire, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return fmt.Errorf("command %q: %s", name, reason)
	}
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		return reject("invalid")
	case !strings.HasPrefix(name, "/"):
		return reject("no_slash_prefix")
	}
	if _, exists := r.commands[name]; exists {
		return reject("duplicate")
	}
	aliases := lo.Compact(lo.Map(cmd.Aliases, func(a string, _ int) string { return strings.TrimSpace(a) }))
	for _, alias := range aliases {
		if owner, taken := r.aliases[alias]; taken {
			return reject("alias_taken_by_" + owner)
		}
	}
	r.commands[name] = cmd
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
	return nil
}

// ListCommands returns the commands sorted by name, optionally only the public ones.
func (r *Registry) ListCommands(publicOnly bool) []tele.Command {
	var list []tele.Command
	for name, cmd := range r.commands {
		if publicOnly && !cmd.Public() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand finds the command a message runs: either "/name" (with an
// optional @bot suffix and arguments) or a registered alias matching the
// whole text. Plain words are never taken as commands, so free text answers
// inside a dialogue reach the dialogue.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", commands.Command{}, false
	}
	name := commands.Name(text)
	if name == "" {
		name = r.aliases[text]
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback adds a callback handler mapped to its unique key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		logger.Warn(context.Background(), logger.CompTWire, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.Warn(context.Background(), logger.CompTWire, "register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	keys := lo.Keys(r.callbacks)
	slices.Sort(keys)
	return keys
}

// InitBotCommands publishes the public commands to the Telegram command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), logger.CompTWire, "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
