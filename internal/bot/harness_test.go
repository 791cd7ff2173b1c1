package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	coretelegram "github.com/xojiakbarxolboyev/telegrambot/core/telegram"
	"github.com/xojiakbarxolboyev/telegrambot/internal/config"
	"github.com/xojiakbarxolboyev/telegrambot/internal/store"

	tele "gopkg.in/telebot.v4"
)

const (
	operatorID = int64(1000)
	userID     = int64(42)
)

type apiCall struct {
	Method string
	Params map[string]string
	// MessageID is the id the fake assigned to a sent message.
	MessageID int
}

// fakeAPI is a minimal Bot API server. Sends get increasing message ids,
// repeated identical edits fail like Telegram does, and sends to failChat
// are refused.
type fakeAPI struct {
	srv *httptest.Server

	mu           sync.Mutex
	calls        []apiCall
	nextID       int
	edits        map[string]string
	memberStatus string
	failChat     string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{nextID: 100, edits: map[string]string{}, memberStatus: "member"}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	params := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				params[k] = v[0]
			}
			for k := range r.MultipartForm.File {
				params[k] = "<upload>"
			}
		}
	} else {
		var raw map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		for k, v := range raw {
			if s, ok := v.(string); ok {
				params[k] = s
				continue
			}
			b, _ := json.Marshal(v)
			params[k] = string(b)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	call := apiCall{Method: method, Params: params}
	chat := params["chat_id"]

	switch {
	case method == "getChatMember":
		f.calls = append(f.calls, call)
		writeOK(w, map[string]interface{}{"status": f.memberStatus, "user": map[string]interface{}{"id": userID}})
	case strings.HasPrefix(method, "send"):
		if chat != "" && chat == f.failChat {
			f.calls = append(f.calls, call)
			writeErr(w, 403, "Forbidden: bot was blocked by the user")
			return
		}
		f.nextID++
		call.MessageID = f.nextID
		f.calls = append(f.calls, call)
		msg := message(f.nextID, chat, params["text"])
		// telebot copies the sent media back from the reply.
		switch method {
		case "sendPhoto":
			msg["photo"] = []interface{}{map[string]interface{}{"file_id": params["photo"], "width": 1, "height": 1}}
		case "sendDocument":
			msg["document"] = map[string]interface{}{"file_id": params["document"]}
		case "sendVideo":
			msg["video"] = map[string]interface{}{"file_id": params["video"]}
		}
		if c := params["caption"]; c != "" {
			msg["caption"] = c
		}
		writeOK(w, msg)
	case strings.HasPrefix(method, "edit"):
		key := chat + ":" + params["message_id"]
		f.calls = append(f.calls, call)
		if prev, ok := f.edits[key]; ok && prev == params["text"] {
			writeErr(w, 400, "Bad Request: message is not modified: specified new message content and reply markup are exactly the same as a current content and reply markup of the message")
			return
		}
		f.edits[key] = params["text"]
		id, _ := strconv.Atoi(params["message_id"])
		writeOK(w, message(id, chat, params["text"]))
	default:
		f.calls = append(f.calls, call)
		writeOK(w, true)
	}
}

func message(id int, chat, text string) map[string]interface{} {
	chatID, _ := strconv.ParseInt(chat, 10, 64)
	return map[string]interface{}{
		"message_id": id,
		"date":       1,
		"chat":       map[string]interface{}{"id": chatID, "type": "private"},
		"text":       text,
	}
}

func writeOK(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func writeErr(w http.ResponseWriter, code int, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error_code": code, "description": desc})
}

// since returns the calls recorded after the first n.
func (f *fakeAPI) since(n int) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls[n:]...)
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func filter(calls []apiCall, method, chat string) []apiCall {
	var out []apiCall
	for _, c := range calls {
		if c.Method == method && (chat == "" || c.Params["chat_id"] == chat) {
			out = append(out, c)
		}
	}
	return out
}

type harness struct {
	t     *testing.T
	api   *fakeAPI
	app   *App
	bot   *tele.Bot
	store *store.FileStore
	seq   int
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	api := newFakeAPI(t)

	cfg := &config.Config{}
	cfg.Telegram.Token = "123:test"
	cfg.Telegram.AdminID = operatorID
	cfg.Bot.Channel = "@orders"
	cfg.Bot.AdminUsername = "operator"
	cfg.Card.Number = "8600 0000 0000 0000"
	cfg.Card.Holder = "A. Karimov"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data.json")
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, cfg.Normalize())

	st := store.NewFileStore(cfg.Storage.Path)
	app := New(cfg, st, nil)
	opts, err := app.TelegramRunOptions()
	require.NoError(t, err)
	opts.Middlewares = coretelegram.WithoutMiddleware(opts.Middlewares, coretelegram.MiddlewareRateLimit)
	opts.DisableHelperDispatcher = true
	opts.Settings = func(s *tele.Settings) {
		s.URL = api.srv.URL
		s.Offline = true
		s.Synchronous = true
		s.Client = api.srv.Client()
	}
	b, rt, err := coretelegram.Build(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	app.Attach(b)

	return &harness{t: t, api: api, app: app, bot: b, store: st}
}

func (h *harness) next() int {
	h.seq++
	return h.seq
}

func (h *harness) message(from int64, m *tele.Message) {
	id := h.next()
	m.ID = id
	m.Sender = &tele.User{ID: from, Username: fmt.Sprintf("user%d", from)}
	m.Chat = &tele.Chat{ID: from, Type: tele.ChatPrivate}
	h.bot.ProcessUpdate(tele.Update{ID: id, Message: m})
}

func (h *harness) text(from int64, text string) {
	h.message(from, &tele.Message{Text: text})
}

func (h *harness) photo(from int64, fileID string) {
	h.message(from, &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: fileID}}})
}

func (h *harness) press(from int64, unique, data string) {
	id := h.next()
	raw := "\f" + unique
	if data != "" {
		raw += "|" + data
	}
	h.bot.ProcessUpdate(tele.Update{ID: id, Callback: &tele.Callback{
		ID:      strconv.Itoa(id),
		Sender:  &tele.User{ID: from},
		Message: &tele.Message{ID: 1, Chat: &tele.Chat{ID: from, Type: tele.ChatPrivate}},
		Data:    raw,
	}})
}

func (h *harness) register(id int64, name string) int64 {
	h.t.Helper()
	status, err := h.store.Register(context.Background(), id, store.Registration{
		Name: name, Age: "20", Region: "Tashkent", Phone: "+998901234567",
	})
	require.NoError(h.t, err)
	return status
}

func (h *harness) txt(key string) string {
	return h.app.texts.Get(key)
}
