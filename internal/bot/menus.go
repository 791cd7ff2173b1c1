package bot

import (
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/keyboard"
	"github.com/xojiakbarxolboyev/telegrambot/internal/dialogue"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques.
const (
	cbCheckSub = "check_sub"
	cbAI       = "ai"
	cbBack     = "back"
	cbCancel   = "cancel"
	cbAdmin    = "adm"
)

// Admin panel actions carried in the cbAdmin payload.
const (
	admTopicAdd  = "topic_add"
	admTopicDel  = "topic_del"
	admTopicList = "topic_list"
	admDeliver   = "deliver"
	admExport    = "export"
	admStats     = "stats"
)

func (a *App) mainMenu(userID int64) *tele.ReplyMarkup {
	rows := [][]string{
		{a.texts.Get("btn_slide"), a.texts.Get("btn_ai")},
		{a.texts.Get("btn_topic"), a.texts.Get("btn_profile")},
		{a.texts.Get("btn_contact")},
	}
	if userID == a.cfg.Telegram.AdminID {
		rows = append(rows, []string{a.texts.Get("btn_admin")})
	}
	return keyboard.ReplyButtons(rows...)
}

func (a *App) aiMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.InlineBtn{Text: a.texts.Get("btn_i2v"), Unique: cbAI, Data: dialogue.FlowImageVideo},
		keyboard.InlineBtn{Text: a.texts.Get("btn_t2i"), Unique: cbAI, Data: dialogue.FlowTextImage},
		keyboard.InlineBtn{Text: a.texts.Get("btn_video"), Unique: cbAI, Data: dialogue.FlowVideo},
	)
}

func (a *App) adminPanel() *tele.ReplyMarkup {
	btn := func(key, action string) keyboard.InlineBtn {
		return keyboard.InlineBtn{Text: a.texts.Get(key), Unique: cbAdmin, Data: action}
	}
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		btn("adm_topic_add", admTopicAdd),
		btn("adm_topic_del", admTopicDel),
		btn("adm_topic_list", admTopicList),
		btn("adm_deliver", admDeliver),
		btn("adm_export", admExport),
		btn("adm_stats", admStats),
	}, 2)
}

func (a *App) contactMarkup() *tele.ReplyMarkup {
	url := a.cfg.ContactURL()
	if url == "" {
		return nil
	}
	return keyboard.InlineButtons(keyboard.InlineBtn{Text: a.texts.Get("btn_contact_operator"), URL: url})
}

// stepMarkup returns the keyboard shown under a prompt, nil for none.
func (a *App) stepMarkup(f *dialogue.Flow, st dialogue.Step) *tele.ReplyMarkup {
	if f.Name == dialogue.FlowGate {
		return keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: a.texts.Get("btn_join"), URL: a.cfg.Bot.ChannelURL}},
			[]keyboard.InlineBtn{{Text: a.texts.Get("btn_check"), Unique: cbCheckSub}},
		)
	}
	if st.Accept == dialogue.AcceptPhone {
		// A reply keyboard cannot carry inline buttons, so back is a text button here.
		if st.Prev != "" {
			return keyboard.ContactRequest(a.texts.Get("btn_share_phone"), a.texts.Get("btn_back"))
		}
		return keyboard.ContactRequest(a.texts.Get("btn_share_phone"))
	}
	var row []keyboard.InlineBtn
	if st.Prev != "" {
		row = append(row, keyboard.InlineBtn{Text: a.texts.Get("btn_back"), Unique: cbBack, Data: st.ID})
	}
	if f.Cancellable {
		row = append(row, keyboard.InlineBtn{Text: a.texts.Get("btn_cancel"), Unique: cbCancel})
	}
	if len(row) == 0 {
		return nil
	}
	return keyboard.InlineButtonsRows(row)
}
