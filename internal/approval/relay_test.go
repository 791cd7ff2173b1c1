package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	to     tele.Recipient
	what   interface{}
	markup *tele.ReplyMarkup
	mode   tele.ParseMode
}

type edited struct {
	msg    tele.Editable
	text   interface{}
	markup *tele.ReplyMarkup
}

// fakeMessenger records calls and answers edits like Telegram: an edit that
// changes nothing fails with "message is not modified".
type fakeMessenger struct {
	mu      sync.Mutex
	sends   []sent
	edits   []edited
	current map[string]interface{}
	sendErr error
	editErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{current: map[string]interface{}{}}
}

func markupOf(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

func modeOf(opts []interface{}) tele.ParseMode {
	for _, o := range opts {
		if m, ok := o.(tele.ParseMode); ok {
			return m
		}
	}
	return tele.ModeDefault
}

func (f *fakeMessenger) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sends = append(f.sends, sent{to: to, what: what, markup: markupOf(opts), mode: modeOf(opts)})
	return &tele.Message{ID: len(f.sends)}, nil
}

func (f *fakeMessenger) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	id, chat := msg.MessageSig()
	key := fmt.Sprintf("%s@%d", id, chat)
	if prev, ok := f.current[key]; ok && prev == what {
		return nil, errors.New("telegram: Bad Request: message is not modified: specified new message content and reply markup are exactly the same (400)")
	}
	f.current[key] = what
	f.edits = append(f.edits, edited{msg: msg, text: what, markup: markupOf(opts)})
	return &tele.Message{}, nil
}

func testConfig() Config {
	return Config{
		OperatorID: 1000,
		ContactURL: "https://t.me/operator",
		Texts: Texts{
			ApprovedSlide: "slide approved",
			ApprovedMedia: "media approved",
			Declined:      "declined",
			ContactLabel:  "contact",
			ApproveLabel:  "ok",
			DeclineLabel:  "no",
			NoProof:       "no proof attached",
		},
	}
}

func slideSubmission(proof *Attachment) Submission {
	return Submission{
		Identity: 42,
		Status:   7,
		Name:     "Ali",
		Phone:    "+998901234567",
		Kind:     KindSlide,
		Title:    "Slide order",
		Fields: []Field{
			{"Topic", "Physics"}, {"Pages", "12"}, {"Colors", "blue"},
			{"Text", "medium"}, {"Deadline", "friday"}, {"Format", "pptx"}, {"Price", "25000"},
		},
		Proof:            proof,
		PendingMessageID: 555,
	}
}

func callbackData(t *testing.T, m *tele.ReplyMarkup) []string {
	t.Helper()
	require.NotNil(t, m)
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func TestSubmitWithPhotoProof(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	p, err := r.Submit(context.Background(), slideSubmission(&Attachment{Kind: AttachPhoto, FileID: "photo-1"}))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)

	require.Len(t, api.sends, 1)
	s := api.sends[0]
	assert.Equal(t, "1000", s.to.Recipient())
	photo, ok := s.what.(*tele.Photo)
	require.True(t, ok, "want photo, got %T", s.what)
	assert.Equal(t, "photo-1", photo.FileID)
	for _, v := range []string{"Physics", "12", "blue", "medium", "friday", "pptx", "25000", "Ali", "+998901234567"} {
		assert.Contains(t, photo.Caption, v)
	}
	assert.NotContains(t, photo.Caption, "no proof attached")
	assert.Equal(t, []string{"approve_slide_42_555", "decline_slide_42_555"}, callbackData(t, s.markup))

	got, ok := r.Lookup(KindSlide, 42, 555)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
}

func TestSubmitWithoutProofSaysSo(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	_, err := r.Submit(context.Background(), slideSubmission(nil))
	require.NoError(t, err)
	require.Len(t, api.sends, 1)
	text, ok := api.sends[0].what.(string)
	require.True(t, ok)
	assert.Contains(t, text, "no proof attached")
	assert.NotNil(t, api.sends[0].markup)
}

func TestSubmitEscapesMarkdown(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	sub := slideSubmission(nil)
	sub.Username = "ali_dev"
	sub.Fields = []Field{{"Topic", "*bold* [link] `code`"}}
	_, err := r.Submit(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, api.sends, 1)
	assert.Equal(t, tele.ModeMarkdown, api.sends[0].mode)
	text := api.sends[0].what.(string)
	assert.True(t, strings.HasPrefix(text, "*Slide order*\n"), text)
	assert.Contains(t, text, `(@ali\_dev)`)
	assert.Contains(t, text, "Topic: \\*bold\\* \\[link] \\`code\\`")
}

func TestTruncateDropsCutEscape(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate(`ab\_cd`, 4))
}

func TestSubmitDocumentAndVideoProof(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	sub := slideSubmission(&Attachment{Kind: AttachDocument, FileID: "doc-1", FileName: "check.pdf"})
	_, err := r.Submit(context.Background(), sub)
	require.NoError(t, err)
	doc, ok := api.sends[0].what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "check.pdf", doc.FileName)

	sub = slideSubmission(&Attachment{Kind: AttachVideo, FileID: "vid-1"})
	sub.PendingMessageID = 556
	_, err = r.Submit(context.Background(), sub)
	require.NoError(t, err)
	_, ok = api.sends[1].what.(*tele.Video)
	assert.True(t, ok)
}

func TestSubmitSendsNotifyCopy(t *testing.T) {
	api := newFakeMessenger()
	cfg := testConfig()
	cfg.NotifyID = 2000
	r := NewRelay(api, cfg)

	_, err := r.Submit(context.Background(), slideSubmission(&Attachment{Kind: AttachPhoto, FileID: "p"}))
	require.NoError(t, err)
	require.Len(t, api.sends, 2)
	assert.Equal(t, "2000", api.sends[1].to.Recipient())
	text, ok := api.sends[1].what.(string)
	require.True(t, ok)
	assert.Contains(t, text, "Physics")
	assert.Nil(t, api.sends[1].markup)
}

func TestSubmitFailsWhenOperatorUnreachable(t *testing.T) {
	api := newFakeMessenger()
	api.sendErr = errors.New("network down")
	r := NewRelay(api, testConfig())

	_, err := r.Submit(context.Background(), slideSubmission(nil))
	require.Error(t, err)
	_, ok := r.Lookup(KindSlide, 42, 555)
	assert.False(t, ok)
}

func TestDeclineTwiceReEditsWithoutError(t *testing.T) {
	ctx := context.Background()
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())
	_, err := r.Submit(ctx, slideSubmission(nil))
	require.NoError(t, err)

	tok, err := ParseToken("decline_slide_42_555")
	require.NoError(t, err)

	p, err := r.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, Decline, p.Decision)
	require.Len(t, api.edits, 1)
	e := api.edits[0]
	assert.Equal(t, "declined", e.text)
	id, chat := e.msg.MessageSig()
	assert.Equal(t, "555", id)
	assert.Equal(t, int64(42), chat)
	require.NotNil(t, e.markup)
	assert.Equal(t, "https://t.me/operator", e.markup.InlineKeyboard[0][0].URL)

	p, err = r.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, Decline, p.Decision)
}

func TestConflictingDecisionIsRefused(t *testing.T) {
	ctx := context.Background()
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())
	_, err := r.Submit(ctx, slideSubmission(nil))
	require.NoError(t, err)

	_, err = r.Resolve(ctx, Token{Action: Approve, Kind: KindSlide, Identity: 42, MessageID: 555})
	require.NoError(t, err)
	require.Len(t, api.edits, 1)
	assert.Equal(t, "slide approved", api.edits[0].text)

	_, err = r.Resolve(ctx, Token{Action: Decline, Kind: KindSlide, Identity: 42, MessageID: 555})
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Len(t, api.edits, 1)
}

func TestUnknownTokenResolvesStatelessly(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	p, err := r.Resolve(context.Background(), Token{Action: Approve, Kind: KindVideo, Identity: 9, MessageID: 10})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, p.ID)
	require.Len(t, api.edits, 1)
	assert.Equal(t, "media approved", api.edits[0].text)
}

func TestFailedEditLeavesOrderOpen(t *testing.T) {
	ctx := context.Background()
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())
	_, err := r.Submit(ctx, slideSubmission(nil))
	require.NoError(t, err)

	api.editErr = errors.New("telegram: Bad Request: message to edit not found (400)")
	_, err = r.Resolve(ctx, Token{Action: Approve, Kind: KindSlide, Identity: 42, MessageID: 555})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyResolved)

	api.editErr = nil
	_, err = r.Resolve(ctx, Token{Action: Decline, Kind: KindSlide, Identity: 42, MessageID: 555})
	assert.NoError(t, err)
}

func TestSubmitForwardsMediaFirst(t *testing.T) {
	api := newFakeMessenger()
	r := NewRelay(api, testConfig())

	sub := slideSubmission(&Attachment{Kind: AttachPhoto, FileID: "receipt"})
	sub.Kind = KindImageVideo
	sub.Media = []Attachment{{Kind: AttachPhoto, FileID: "source-image"}}
	_, err := r.Submit(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, api.sends, 2)
	first, ok := api.sends[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "source-image", first.FileID)
	assert.Nil(t, api.sends[0].markup)
	second, ok := api.sends[1].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "receipt", second.FileID)
	assert.Equal(t, []string{"approve_i2v_42_555", "decline_i2v_42_555"}, callbackData(t, api.sends[1].markup))
}
