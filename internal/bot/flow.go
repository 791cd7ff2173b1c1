package bot

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	tghelpers "github.com/xojiakbarxolboyev/telegrambot/core/telegram/helpers"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/middleware"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/sender"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/state"
	"github.com/xojiakbarxolboyev/telegrambot/internal/approval"
	"github.com/xojiakbarxolboyev/telegrambot/internal/dialogue"
	"github.com/xojiakbarxolboyev/telegrambot/internal/export"
	"github.com/xojiakbarxolboyev/telegrambot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// ManagerHandler feeds a message to the sender's active flow.
func (a *App) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inputOf(c.Message())
	var (
		out dialogue.Outcome
		err error
	)
	back := in.Kind == dialogue.InputText && strings.TrimSpace(in.Text) == a.texts.Get("btn_back")
	a.sessions.Update(c.Sender().ID, func(s *state.Session) {
		if _, st, ok := a.engine.Current(s); ok && back && st.Accept == dialogue.AcceptPhone {
			out = a.engine.Back(s, st.ID)
			return
		}
		out, err = a.engine.Advance(ctx, s, in)
	})
	if err != nil {
		return a.fail(c, err)
	}
	return a.render(c, out)
}

func inputOf(m *tele.Message) dialogue.Input {
	switch {
	case m == nil:
		return dialogue.Input{}
	case m.Photo != nil:
		return dialogue.Input{Kind: dialogue.InputPhoto, FileID: m.Photo.FileID}
	case m.Document != nil:
		return dialogue.Input{Kind: dialogue.InputDocument, FileID: m.Document.FileID, FileName: m.Document.FileName}
	case m.Video != nil:
		return dialogue.Input{Kind: dialogue.InputVideo, FileID: m.Video.FileID, FileName: m.Video.FileName}
	case m.Contact != nil:
		return dialogue.Input{Kind: dialogue.InputContact, Text: m.Contact.PhoneNumber}
	}
	return dialogue.Input{Kind: dialogue.InputText, Text: m.Text}
}

func (a *App) startFlow(c tele.Context, flow string) error {
	var (
		out dialogue.Outcome
		err error
	)
	a.sessions.Update(c.Sender().ID, func(s *state.Session) {
		out, err = a.engine.Start(s, flow)
	})
	if err != nil {
		return err
	}
	logger.Debug(tghelpers.BuildContext(c), logger.CompFlow, "flow.start", slog.String("flow", flow))
	return a.render(c, out)
}

func (a *App) render(c tele.Context, out dialogue.Outcome) error {
	switch out.Result {
	case dialogue.Advanced:
		return a.prompt(c, out.Flow, out.Step, "")
	case dialogue.Reprompt:
		return a.prompt(c, out.Flow, out.Step, a.reasonText(out))
	case dialogue.Completed:
		a.dropPrompt(c)
		return a.complete(c, out)
	case dialogue.Exited:
		a.dropPrompt(c)
		return a.showMenu(c, a.texts.Get("cancelled"))
	}
	return nil
}

func (a *App) reasonText(out dialogue.Outcome) string {
	switch out.Reason {
	case dialogue.ReasonNumber:
		return a.texts.Get("invalid_number")
	case dialogue.ReasonPhone:
		return a.texts.Get("invalid_phone")
	case dialogue.ReasonWaiting:
		return a.texts.Get("invalid_waiting")
	case dialogue.ReasonNotFound:
		if out.Step.Lookup == dialogue.LookupStatus {
			return a.texts.Get("not_found_status")
		}
		return a.texts.Get("not_found_topic")
	}
	return a.texts.Get("invalid_kind")
}

// prompt replaces the user's previous prompt with the one for st.
func (a *App) prompt(c tele.Context, f *dialogue.Flow, st dialogue.Step, prefix string) error {
	userID := c.Sender().ID
	fields := a.sessions.Get(userID).Fields
	text := a.texts.Format(st.Prompt,
		"price", fields[dialogue.FieldPrice],
		"card", a.cfg.Card.Number,
		"holder", a.cfg.Card.Holder,
	)
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	a.dropPrompt(c)

	var opts []interface{}
	if m := a.stepMarkup(f, st); m != nil {
		opts = append(opts, m)
	}
	msg, err := a.bot.Send(c.Chat(), text, opts...)
	if err != nil {
		return fmt.Errorf("bot: send prompt %s/%s: %w", f.Name, st.ID, err)
	}
	middleware.CountSent(c, len(opts) > 0)
	a.sessions.Update(userID, func(s *state.Session) {
		s.LastPromptID = msg.ID
	})
	return nil
}

// promptCurrent shows the current step of the sender's flow again.
func (a *App) promptCurrent(c tele.Context, prefix string) error {
	s := a.sessions.Get(c.Sender().ID)
	f, st, ok := a.engine.Current(&s)
	if !ok {
		return nil
	}
	return a.prompt(c, f, st, prefix)
}

// dropPrompt deletes the last prompt, if any. Failures are ignored.
func (a *App) dropPrompt(c tele.Context) {
	var id int
	a.sessions.Update(c.Sender().ID, func(s *state.Session) {
		id = s.LastPromptID
		s.LastPromptID = 0
	})
	if id != 0 {
		tghelpers.DeleteMessage(c, a.bot, &tele.Message{ID: id, Chat: c.Chat()})
	}
}

// resetSession leaves any flow and removes its prompt.
func (a *App) resetSession(c tele.Context) {
	prev := a.sessions.Clear(c.Sender().ID)
	if prev.LastPromptID != 0 {
		tghelpers.DeleteMessage(c, a.bot, &tele.Message{ID: prev.LastPromptID, Chat: c.Chat()})
	}
}

func (a *App) complete(c tele.Context, out dialogue.Outcome) error {
	switch out.Flow.Name {
	case dialogue.FlowRegistration:
		return a.completeRegistration(c, out.Fields)
	case dialogue.FlowTopicLookup:
		return a.showTopic(c, out.Fields)
	case dialogue.FlowTopicAdd:
		return a.addTopic(c, out.Fields)
	case dialogue.FlowTopicDelete:
		return a.deleteTopic(c, out.Fields)
	case dialogue.FlowFulfillment:
		return a.deliver(c, out.Fields)
	}
	if out.Flow.Kind != "" {
		return a.submitOrder(c, out)
	}
	return nil
}

func (a *App) completeRegistration(c tele.Context, f map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	status, err := a.store.Register(ctx, c.Sender().ID, store.Registration{
		Name:   f[dialogue.FieldName],
		Age:    f[dialogue.FieldAge],
		Region: f[dialogue.FieldRegion],
		Phone:  f[dialogue.FieldPhone],
	})
	if err != nil {
		return a.fail(c, err)
	}
	logger.Info(ctx, logger.CompFlow, "registration.done",
		slog.String("status", "ok"),
		slog.Int64("user_status", status),
	)
	return a.showMenu(c, a.texts.Format("registered", "status", strconv.FormatInt(status, 10)))
}

// submitOrder posts the user's pending message and hands the order to the relay,
// which later edits that message with the operator's decision.
func (a *App) submitOrder(c tele.Context, out dialogue.Outcome) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	u, err := a.store.User(ctx, user.ID)
	if err != nil {
		return a.fail(c, err)
	}
	pending, err := a.bot.Send(c.Chat(), a.texts.Get("pending"))
	if err != nil {
		return fmt.Errorf("bot: send pending message: %w", err)
	}
	middleware.CountSent(c, false)

	sub := approval.Submission{
		Identity:         user.ID,
		Status:           u.Status,
		Name:             u.Name,
		Phone:            u.Phone,
		Username:         user.Username,
		Kind:             out.Flow.Kind,
		Title:            a.texts.Get("title_" + out.Flow.Kind),
		PendingMessageID: pending.ID,
	}
	for _, st := range out.Flow.Steps {
		switch {
		case st.Payment:
		case st.Accept == dialogue.AcceptPhoto || st.Accept == dialogue.AcceptMedia:
			sub.Media = append(sub.Media, approval.Attachment{
				Kind:   out.Fields[st.Field+dialogue.KindSuffix],
				FileID: out.Fields[st.Field],
			})
		default:
			sub.Fields = append(sub.Fields, approval.Field{
				Label: a.texts.Get("field_" + st.Field),
				Value: out.Fields[st.Field],
			})
		}
	}
	sub.Fields = append(sub.Fields, approval.Field{
		Label: a.texts.Get("field_price"),
		Value: out.Fields[dialogue.FieldPrice] + " so'm",
	})
	if att := out.Attachment; att != nil {
		sub.Proof = &approval.Attachment{Kind: string(att.Kind), FileID: att.FileID, FileName: att.FileName}
	}

	if _, err := a.relay.Submit(ctx, sub); err != nil {
		_ = c.Send(a.texts.Get("submit_failed"))
		logger.Error(ctx, logger.CompApproval, "order.submit",
			slog.String("status", "fail"),
			slog.String("err", sender.RedactToken(err.Error())),
		)
	}
	return a.showMenu(c, a.texts.Get("main_menu"))
}

func (a *App) showTopic(c tele.Context, f map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	n, _ := strconv.ParseInt(f[dialogue.FieldNumber], 10, 64)
	msg, ok, err := a.store.Topic(ctx, n)
	if err != nil {
		return a.fail(c, err)
	}
	if !ok {
		return a.showMenu(c, a.texts.Get("not_found_topic"))
	}
	return a.showMenu(c, a.texts.Format("topic_found", "number", f[dialogue.FieldNumber], "message", msg))
}

func (a *App) addTopic(c tele.Context, f map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	n, _ := strconv.ParseInt(f[dialogue.FieldNumber], 10, 64)
	if err := a.store.AddTopic(ctx, n, f[dialogue.FieldMessage]); err != nil {
		return a.fail(c, err)
	}
	return c.Send(a.texts.Format("topic_saved", "number", f[dialogue.FieldNumber]), a.adminPanel())
}

func (a *App) deleteTopic(c tele.Context, f map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	n, _ := strconv.ParseInt(f[dialogue.FieldNumber], 10, 64)
	deleted, err := a.store.DeleteTopic(ctx, n)
	if err != nil {
		return a.fail(c, err)
	}
	key := "topic_deleted"
	if !deleted {
		key = "topic_missing"
	}
	return c.Send(a.texts.Format(key, "number", f[dialogue.FieldNumber]), a.adminPanel())
}

// deliver sends the finished work to the user addressed by status.
// Failures are reported to the operator rather than swallowed.
func (a *App) deliver(c tele.Context, f map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	status, _ := strconv.ParseInt(f[dialogue.FieldStatus], 10, 64)
	report := func(err error) error {
		logger.Error(ctx, logger.CompFlow, "fulfillment.deliver",
			slog.String("status", "fail"),
			slog.Int64("user_status", status),
			slog.String("err", err.Error()),
		)
		return c.Send(a.texts.Format("delivery_failed", "err", sender.RedactToken(err.Error())), a.adminPanel())
	}

	id, ok, err := a.store.FindIDByStatus(ctx, status)
	if err != nil {
		return report(err)
	}
	if !ok {
		return report(fmt.Errorf("status %d not found", status))
	}
	what := media(f[dialogue.FieldFile+dialogue.KindSuffix], f[dialogue.FieldFile], f[dialogue.FieldComment])
	if _, err := a.bot.Send(&tele.User{ID: id}, what); err != nil {
		return report(err)
	}
	middleware.CountSent(c, false)
	logger.Info(ctx, logger.CompFlow, "fulfillment.deliver",
		slog.String("status", "ok"),
		slog.Int64("user_status", status),
	)
	return c.Send(a.texts.Format("delivered", "status", f[dialogue.FieldStatus]), a.adminPanel())
}

func media(kind, fileID, caption string) interface{} {
	file := tele.File{FileID: fileID}
	switch dialogue.InputKind(kind) {
	case dialogue.InputDocument:
		return &tele.Document{File: file, Caption: caption}
	case dialogue.InputVideo:
		return &tele.Video{File: file, Caption: caption}
	}
	return &tele.Photo{File: file, Caption: caption}
}

func (a *App) listTopics(c tele.Context) error {
	topics, err := a.store.ListTopics(tghelpers.BuildContext(c))
	if err != nil {
		return a.fail(c, err)
	}
	if len(topics) == 0 {
		return c.Send(a.texts.Get("topics_empty"))
	}
	var b strings.Builder
	b.WriteString(a.texts.Get("topics_header"))
	for _, t := range topics {
		fmt.Fprintf(&b, "\n%d: %s", t.Number, logger.SanitizeLimit(firstLine(t.Message), 60))
	}
	return c.Send(b.String())
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (a *App) exportUsers(c tele.Context) error {
	users, err := a.store.Users(tghelpers.BuildContext(c))
	if err != nil {
		return a.fail(c, err)
	}
	data, err := export.UsersWorkbook(users)
	if err != nil {
		return a.fail(c, err)
	}
	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "users.xlsx",
		Caption:  a.texts.Get("export_caption"),
	})
}

func (a *App) stats(c tele.Context) error {
	doc, err := a.store.Load(tghelpers.BuildContext(c))
	if err != nil {
		return a.fail(c, err)
	}
	st := store.Summarize(doc)
	return c.Send(a.texts.Format("stats",
		"users", strconv.Itoa(st.Users),
		"topics", strconv.Itoa(st.Topics),
		"next", strconv.FormatInt(st.NextStatus, 10),
	))
}
