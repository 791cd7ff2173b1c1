// Package commands describes slash commands and the keyboard labels bound to them.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command. Aliases are whole message texts, usually reply
// keyboard labels, that run the same handler.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run for the operator only and stay out of the public menu.
	AdminOnly bool
	Aliases   []string
}

// Public reports whether the command is listed in the Telegram command menu.
func (c Command) Public() bool {
	return !c.AdminOnly && c.Description != ""
}

// Name strips a "@botname" suffix and arguments from a command message,
// so "/start@order_bot ref" becomes "/start". Text without a leading slash
// yields "".
func Name(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}
