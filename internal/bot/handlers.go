package bot

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/callbacks"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/commands"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/middleware"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/state"
	"github.com/xojiakbarxolboyev/telegrambot/internal/approval"
	"github.com/xojiakbarxolboyev/telegrambot/internal/dialogue"
	"github.com/xojiakbarxolboyev/telegrambot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// register fills the registry. Menu labels are command aliases so the reply
// keyboard and the slash commands share handlers. Overridden texts can make
// two labels collide, which is reported rather than silently shadowed.
func (a *App) register() error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: a.handleStart, Description: "Botni ishga tushirish"}},
		{"/menu", commands.Command{Handler: a.handleMenu, Description: "Asosiy menyu"}},
		{"/slide", commands.Command{Handler: a.handleSlide, Description: "Slayd buyurtma", Aliases: []string{a.texts.Get("btn_slide")}}},
		{"/ai", commands.Command{Handler: a.handleAI, Description: "AI xizmatlar", Aliases: []string{a.texts.Get("btn_ai")}}},
		{"/topic", commands.Command{Handler: a.handleTopic, Description: "Mavzu qidirish", Aliases: []string{a.texts.Get("btn_topic")}}},
		{"/profile", commands.Command{Handler: a.handleProfile, Description: "Profil", Aliases: []string{a.texts.Get("btn_profile")}}},
		{"/contact", commands.Command{Handler: a.handleContact, Description: "Admin bilan aloqa", Aliases: []string{a.texts.Get("btn_contact")}}},
		{"/cancel", commands.Command{Handler: a.handleCancel, Description: "Bekor qilish"}},
		{"/admin", commands.Command{Handler: a.handleAdmin, Description: "Admin panel", AdminOnly: true, Aliases: []string{a.texts.Get("btn_admin")}}},
	}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, a.registry.RegisterCommand(c.name, c.cmd))
	}

	respond := func(c tele.Context) error { return c.Respond() }
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  a.cfg.Telegram.AdminID,
		OnReject: respond,
	})
	for key, h := range map[string]tele.HandlerFunc{
		cbCheckSub:              a.handleCheckSub,
		cbAI:                    a.handleAIChoice,
		cbBack:                  middleware.ActiveSession(a.sessions, respond)(a.handleBack),
		cbCancel:                a.handleCancel,
		approval.CallbackUnique: adminOnly(a.handleApproval),
		cbAdmin:                 adminOnly(a.handleAdminAction),
	} {
		errs = append(errs, a.registry.RegisterCallback(key, h))
	}
	return errors.Join(errs...)
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a.resetSession(c)
	status, ok, err := a.store.Status(ctx, c.Sender().ID)
	if err != nil {
		return a.fail(c, err)
	}
	if ok {
		return a.showMenu(c, a.texts.Format("welcome_back", "status", strconv.FormatInt(status, 10)))
	}
	if err := c.Send(a.texts.Get("banner"), &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true}}); err != nil {
		return err
	}
	if a.channel() != nil {
		return a.startFlow(c, dialogue.FlowGate)
	}
	return a.startFlow(c, dialogue.FlowRegistration)
}

func (a *App) handleCheckSub(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	if _, ok, err := a.store.Status(ctx, user.ID); err == nil && ok {
		_ = c.Respond()
		a.resetSession(c)
		return a.showMenu(c, a.texts.Get("main_menu"))
	}
	// A stale gate button must not restart a registration already under way.
	if s := a.sessions.Get(user.ID); s.Active() && s.Flow != dialogue.FlowGate {
		_ = c.Respond()
		if f, st, ok := a.engine.Current(&s); ok {
			return a.prompt(c, f, st, "")
		}
		return nil
	}
	ok, err := a.subscribed(user)
	if err != nil {
		logger.Warn(ctx, logger.CompFlow, "gate.check",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("error"), ShowAlert: true})
	}
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("not_subscribed"), ShowAlert: true})
	}
	_ = c.Respond()
	return a.startFlow(c, dialogue.FlowRegistration)
}

func (a *App) handleMenu(c tele.Context) error {
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	a.resetSession(c)
	return a.showMenu(c, a.texts.Get("main_menu"))
}

func (a *App) handleSlide(c tele.Context) error {
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	return a.startFlow(c, dialogue.FlowSlide)
}

func (a *App) handleAI(c tele.Context) error {
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	a.leaveFlow(c)
	return c.Send(a.texts.Get("ai_menu"), a.aiMenu())
}

func (a *App) handleAIChoice(c tele.Context) error {
	_ = c.Respond()
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	_, flow := callbacks.ParseCallbackData(c.Callback())
	switch flow {
	case dialogue.FlowImageVideo, dialogue.FlowTextImage, dialogue.FlowVideo:
		return a.startFlow(c, flow)
	}
	return nil
}

func (a *App) handleTopic(c tele.Context) error {
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	return a.startFlow(c, dialogue.FlowTopicLookup)
}

func (a *App) handleProfile(c tele.Context) error {
	u, ok, err := a.requireUser(c)
	if !ok {
		return err
	}
	a.leaveFlow(c)
	return c.Send(a.texts.Format("profile",
		"name", u.Name,
		"status", strconv.FormatInt(u.Status, 10),
		"region", u.Region,
		"phone", u.Phone,
	))
}

func (a *App) handleContact(c tele.Context) error {
	a.leaveFlow(c)
	if m := a.contactMarkup(); m != nil {
		return c.Send(a.texts.Format("contact", "url", a.cfg.ContactURL()), m)
	}
	return c.Send(a.texts.Get("contact_missing"))
}

// handleCancel leaves any cancellable flow. The gate and the registration
// cannot be left, so their prompt is shown again.
func (a *App) handleCancel(c tele.Context) error {
	if c.Callback() != nil {
		_ = c.Respond()
	}
	s := a.sessions.Get(c.Sender().ID)
	if f, _, ok := a.engine.Current(&s); ok && !f.Cancellable {
		return a.promptCurrent(c, "")
	}
	a.resetSession(c)
	if _, ok, err := a.requireUser(c); !ok {
		return err
	}
	return a.showMenu(c, a.texts.Get("cancelled"))
}

func (a *App) handleBack(c tele.Context) error {
	_ = c.Respond()
	_, stepID := callbacks.ParseCallbackData(c.Callback())
	var out dialogue.Outcome
	a.sessions.Update(c.Sender().ID, func(s *state.Session) {
		out = a.engine.Back(s, stepID)
	})
	return a.render(c, out)
}

func (a *App) handleAdmin(c tele.Context) error {
	a.leaveFlow(c)
	return c.Send(a.texts.Get("admin_panel"), a.adminPanel())
}

func (a *App) handleApproval(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, payload := callbacks.ParseCallbackData(c.Callback())
	tok, err := approval.ParseToken(payload)
	if err != nil {
		logger.Warn(ctx, logger.CompApproval, "approval.parse",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("error"), ShowAlert: true})
	}
	_, err = a.relay.Resolve(ctx, tok)
	switch {
	case errors.Is(err, approval.ErrAlreadyResolved):
		return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("decision_conflict"), ShowAlert: true})
	case err != nil:
		return c.Respond(&tele.CallbackResponse{
			Text:      a.texts.Format("decision_failed", "err", err.Error()),
			ShowAlert: true,
		})
	}
	return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("decision_" + string(tok.Action))})
}

func (a *App) handleAdminAction(c tele.Context) error {
	_ = c.Respond()
	_, action := callbacks.ParseCallbackData(c.Callback())
	switch action {
	case admTopicAdd:
		return a.startFlow(c, dialogue.FlowTopicAdd)
	case admTopicDel:
		return a.startFlow(c, dialogue.FlowTopicDelete)
	case admDeliver:
		return a.startFlow(c, dialogue.FlowFulfillment)
	case admTopicList:
		return a.listTopics(c)
	case admExport:
		return a.exportUsers(c)
	case admStats:
		return a.stats(c)
	}
	return nil
}

// onUnknown answers messages outside any flow that match no command.
func (a *App) onUnknown(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, ok, err := a.store.Status(ctx, c.Sender().ID)
	if err != nil {
		return a.fail(c, err)
	}
	if !ok {
		return a.handleStart(c)
	}
	return c.Send(a.texts.Get("unknown"), a.mainMenu(c.Sender().ID))
}

func (a *App) onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: a.texts.Get("slow_down")})
	}
	return tghelpers.SendText(c, a.texts.Get("slow_down"))
}

// requireUser loads the sender's record. For unregistered users it either
// shows the pending registration step again or starts over, and reports false.
func (a *App) requireUser(c tele.Context) (store.User, bool, error) {
	ctx := tghelpers.BuildContext(c)
	u, err := a.store.User(ctx, c.Sender().ID)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, a.fail(c, err)
	}
	if a.InProgress(c.Sender().ID) {
		s := a.sessions.Get(c.Sender().ID)
		if s.Flow == dialogue.FlowGate || s.Flow == dialogue.FlowRegistration {
			return store.User{}, false, a.promptCurrent(c, a.texts.Get("finish_registration"))
		}
	}
	return store.User{}, false, a.handleStart(c)
}

// leaveFlow abandons the sender's flow when it may be left. The gate and the
// registration survive menu presses.
func (a *App) leaveFlow(c tele.Context) {
	s := a.sessions.Get(c.Sender().ID)
	if f, _, ok := a.engine.Current(&s); ok && f.Cancellable {
		a.resetSession(c)
	}
}

func (a *App) showMenu(c tele.Context, text string) error {
	return c.Send(text, a.mainMenu(c.Sender().ID))
}

// fail tells the user something went wrong and returns err for the handler log.
func (a *App) fail(c tele.Context, err error) error {
	_ = tghelpers.SendText(c, a.texts.Get("error"))
	return err
}
