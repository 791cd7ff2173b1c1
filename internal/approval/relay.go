package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/format"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// CallbackUnique is the telebot unique of the approve and decline buttons.
const CallbackUnique = "approval"

// Telegram caps media captions at 1024 characters.
const captionLimit = 1024

// Messenger is the part of the bot API the relay needs.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Field is one labelled line of an order.
type Field struct {
	Label string
	Value string
}

// Attachment kinds.
const (
	AttachPhoto    = "photo"
	AttachDocument = "document"
	AttachVideo    = "video"
)

// Attachment is a file the user already uploaded to Telegram.
type Attachment struct {
	Kind     string
	FileID   string
	FileName string
}

// Submission is a completed order waiting for the operator.
type Submission struct {
	Identity int64
	Status   int64
	Name     string
	Phone    string
	Username string
	Kind     string
	Title    string
	Fields   []Field
	// Media are order materials forwarded ahead of the notification.
	Media []Attachment
	// Proof is the payment screenshot or receipt; nil when none was attached.
	Proof *Attachment
	// PendingMessageID is the user's "waiting for confirmation" message that the decision edits.
	PendingMessageID int
}

// Pending is a submitted order and the decision taken on it, if any.
type Pending struct {
	ID         uuid.UUID
	Submission Submission
	Decision   Decision
	CreatedAt  time.Time
}

// Texts are the user-visible strings of the relay.
type Texts struct {
	ApprovedSlide string
	ApprovedMedia string
	Declined      string
	ContactLabel  string
	ApproveLabel  string
	DeclineLabel  string
	NoProof       string
}

// Config configures a Relay.
type Config struct {
	OperatorID int64
	// NotifyID receives a plain text copy of every order; 0 disables it.
	NotifyID   int64
	ContactURL string
	Texts      Texts
}

// Relay sends orders to the operator and applies decisions to the user's pending message.
type Relay struct {
	api Messenger
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	pending map[string]*Pending
}

// NewRelay returns a relay that talks through api.
func NewRelay(api Messenger, cfg Config) *Relay {
	return &Relay{
		api:     api,
		cfg:     cfg,
		now:     time.Now,
		pending: make(map[string]*Pending),
	}
}

// Buttons returns a fresh approve/decline keyboard for an order.
func (r *Relay) Buttons(kind string, identity int64, messageID int) *tele.ReplyMarkup {
	tok := Token{Kind: kind, Identity: identity, MessageID: messageID}
	approve, decline := tok, tok
	approve.Action = Approve
	decline.Action = Decline
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: r.cfg.Texts.ApproveLabel, Unique: CallbackUnique, Data: approve.String()},
		{Text: r.cfg.Texts.DeclineLabel, Unique: CallbackUnique, Data: decline.String()},
	})
}

// Submit records the order and notifies the operator. It fails only when the
// operator notification cannot be sent; the secondary copy is best effort.
func (r *Relay) Submit(ctx context.Context, sub Submission) (Pending, error) {
	if strings.Contains(sub.Kind, "_") || sub.Kind == "" {
		return Pending{}, fmt.Errorf("approval: invalid kind %q", sub.Kind)
	}
	p := &Pending{ID: uuid.New(), Submission: sub, CreatedAt: r.now()}

	text := r.render(sub)
	operator := &tele.User{ID: r.cfg.OperatorID}
	for i := range sub.Media {
		caption := fmt.Sprintf("%s #%d", sub.Title, sub.Status)
		if _, err := r.api.Send(operator, r.payload(caption, &sub.Media[i])); err != nil {
			logger.Warn(ctx, logger.CompApproval, "approval.media",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
	markup := r.Buttons(sub.Kind, sub.Identity, sub.PendingMessageID)
	if _, err := r.api.Send(operator, r.payload(text, sub.Proof), markup, tele.ModeMarkdown); err != nil {
		logger.Error(ctx, logger.CompApproval, "approval.submit",
			slog.String("status", "fail"),
			slog.String("kind", sub.Kind),
			slog.String("err", err.Error()),
		)
		return Pending{}, fmt.Errorf("approval: notify operator: %w", err)
	}

	if r.cfg.NotifyID != 0 && r.cfg.NotifyID != r.cfg.OperatorID {
		if _, err := r.api.Send(&tele.User{ID: r.cfg.NotifyID}, text, tele.ModeMarkdown); err != nil {
			logger.Warn(ctx, logger.CompApproval, "approval.notify_copy",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	r.mu.Lock()
	r.pending[orderKey(sub.Kind, sub.Identity, sub.PendingMessageID)] = p
	r.mu.Unlock()

	logger.Info(ctx, logger.CompApproval, "approval.submit",
		slog.String("status", "ok"),
		slog.String("approval_id", p.ID.String()),
		slog.String("kind", sub.Kind),
		slog.Int64("identity", sub.Identity),
		slog.Bool("proof", sub.Proof != nil),
	)
	return *p, nil
}

// Resolve applies the decision carried by tok. Repeating a decision edits the
// message again; contradicting a recorded one fails with ErrAlreadyResolved.
// Tokens the relay has no record of are applied as they are.
func (r *Relay) Resolve(ctx context.Context, tok Token) (Pending, error) {
	r.mu.Lock()
	p, known := r.pending[tok.Key()]
	var prev Decision
	if known {
		prev = p.Decision
		if prev != "" && prev != tok.Action {
			r.mu.Unlock()
			return *p, ErrAlreadyResolved
		}
		p.Decision = tok.Action
	}
	r.mu.Unlock()

	if err := r.edit(tok); err != nil {
		if known && prev == "" {
			r.mu.Lock()
			p.Decision = ""
			r.mu.Unlock()
		}
		logger.Error(ctx, logger.CompApproval, "approval.resolve",
			slog.String("status", "fail"),
			slog.String("decision", string(tok.Action)),
			slog.String("err", err.Error()),
		)
		return Pending{}, fmt.Errorf("approval: edit pending message: %w", err)
	}

	logger.Info(ctx, logger.CompApproval, "approval.resolve",
		slog.String("status", "ok"),
		slog.String("decision", string(tok.Action)),
		slog.String("kind", tok.Kind),
		slog.Int64("identity", tok.Identity),
		slog.Bool("known", known),
		slog.Bool("repeat", prev == tok.Action),
	)
	if !known {
		return Pending{Decision: tok.Action, Submission: Submission{
			Identity: tok.Identity, Kind: tok.Kind, PendingMessageID: tok.MessageID,
		}}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return *p, nil
}

// Lookup returns the record of an order.
func (r *Relay) Lookup(kind string, identity int64, messageID int) (Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[orderKey(kind, identity, messageID)]
	if !ok {
		return Pending{}, false
	}
	return *p, true
}

func (r *Relay) edit(tok Token) error {
	msg := tele.StoredMessage{MessageID: strconv.Itoa(tok.MessageID), ChatID: tok.Identity}
	var err error
	switch tok.Action {
	case Approve:
		text := r.cfg.Texts.ApprovedMedia
		if IsSlide(tok.Kind) {
			text = r.cfg.Texts.ApprovedSlide
		}
		_, err = r.api.Edit(msg, text)
	case Decline:
		opts := []interface{}{}
		if r.cfg.ContactURL != "" {
			opts = append(opts, keyboard.InlineButtons(keyboard.InlineBtn{Text: r.cfg.Texts.ContactLabel, URL: r.cfg.ContactURL}))
		}
		_, err = r.api.Edit(msg, r.cfg.Texts.Declined, opts...)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrBadToken, tok.Action)
	}
	if isNotModified(err) {
		return nil
	}
	return err
}

// isNotModified matches the error Telegram returns when an edit changes nothing.
func isNotModified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, tele.ErrSameMessageContent) || strings.Contains(err.Error(), "message is not modified")
}

// render builds the operator notification in legacy Markdown. Everything the
// user typed is escaped; only the title is formatted.
func (r *Relay) render(sub Submission) string {
	var b strings.Builder
	if sub.Title != "" {
		fmt.Fprintf(&b, "*%s*\n\n", format.MD(sub.Title))
	}
	fmt.Fprintf(&b, "👤 %s", format.MD(sub.Name))
	if sub.Username != "" {
		fmt.Fprintf(&b, " (@%s)", format.MD(sub.Username))
	}
	fmt.Fprintf(&b, "\n🆔 %d\n#️⃣ %d\n", sub.Identity, sub.Status)
	if sub.Phone != "" {
		fmt.Fprintf(&b, "📞 %s\n", format.MD(sub.Phone))
	}
	b.WriteString("\n")
	for _, f := range sub.Fields {
		fmt.Fprintf(&b, "%s: %s\n", format.MD(f.Label), format.MD(f.Value))
	}
	if sub.Proof == nil {
		b.WriteString("\n")
		b.WriteString(format.MD(r.cfg.Texts.NoProof))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Relay) payload(text string, proof *Attachment) interface{} {
	if proof == nil {
		return text
	}
	caption := truncate(text, captionLimit)
	file := tele.File{FileID: proof.FileID}
	switch proof.Kind {
	case AttachDocument:
		return &tele.Document{File: file, FileName: proof.FileName, Caption: caption}
	case AttachVideo:
		return &tele.Video{File: file, Caption: caption}
	default:
		return &tele.Photo{File: file, Caption: caption}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	// A cut escape would leave a dangling backslash in front of the ellipsis.
	return strings.TrimRight(string(runes[:n-1]), "\\") + "…"
}
