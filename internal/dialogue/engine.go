package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/xojiakbarxolboyev/telegrambot/core/logger"
	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/state"
)

// ErrUnknownFlow is returned when a session or a caller names a flow the engine does not have.
var ErrUnknownFlow = errors.New("dialogue: unknown flow")

// InputKind is the shape of an incoming message.
type InputKind string

const (
	InputText     InputKind = "text"
	InputPhoto    InputKind = "photo"
	InputDocument InputKind = "document"
	InputVideo    InputKind = "video"
	InputContact  InputKind = "contact"
)

// Input is one user message reduced to what the engine needs.
// Contacts carry the phone number in Text; media carry FileID.
type Input struct {
	Kind     InputKind
	Text     string
	FileID   string
	FileName string
}

// Result tells the caller what to render after a transition.
type Result int

const (
	// Ignored means the session did not change and nothing should be sent.
	Ignored Result = iota
	// Advanced means Outcome.Step is the new current step and must be prompted.
	Advanced
	// Reprompt means the input was rejected and Outcome.Step is prompted again.
	Reprompt
	// Completed means the last step was answered and the session was reset.
	Completed
	// Exited means the user backed out of the flow and the session was reset.
	Exited
)

func (r Result) String() string {
	switch r {
	case Advanced:
		return "advanced"
	case Reprompt:
		return "reprompt"
	case Completed:
		return "completed"
	case Exited:
		return "exited"
	default:
		return "ignored"
	}
}

// Reprompt reasons.
const (
	ReasonKind     = "kind"
	ReasonNumber   = "number"
	ReasonPhone    = "phone"
	ReasonNotFound = "not_found"
	ReasonWaiting  = "waiting"
)

// Outcome describes a transition.
type Outcome struct {
	Result Result
	Flow   *Flow
	Step   Step
	Reason string
	// Fields holds the answers of a Completed flow.
	Fields map[string]string
	// Attachment is the media of the final input of a Completed flow.
	Attachment *Input
}

// Resolver answers the lookups of numeric steps.
type Resolver interface {
	TopicExists(ctx context.Context, number int64) (bool, error)
	StatusExists(ctx context.Context, status int64) (bool, error)
}

// Engine interprets flows against sessions. It holds no per-user state, so one
// Engine serves every user; callers serialize access to a single Session.
type Engine struct {
	flows    map[string]*Flow
	resolver Resolver
	intN     func(n int) int
}

// Option customises an Engine.
type Option func(*Engine)

// WithIntN replaces the random source used to draw prices. fn must return a value in [0, n).
func WithIntN(fn func(n int) int) Option {
	return func(e *Engine) { e.intN = fn }
}

// New builds an engine over flows.
func New(flows []Flow, r Resolver, opts ...Option) *Engine {
	e := &Engine{
		flows:    make(map[string]*Flow, len(flows)),
		resolver: r,
		intN:     rand.IntN,
	}
	for i := range flows {
		f := flows[i]
		e.flows[f.Name] = &f
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flow returns a flow by name.
func (e *Engine) Flow(name string) (*Flow, bool) {
	f, ok := e.flows[name]
	return f, ok
}

// Current returns the flow and step the session is at.
func (e *Engine) Current(s *state.Session) (*Flow, Step, bool) {
	f, ok := e.flows[s.Flow]
	if !ok {
		return nil, Step{}, false
	}
	st, ok := f.Step(s.Step)
	return f, st, ok
}

// Start puts the session at the first step of flow, dropping whatever it held.
func (e *Engine) Start(s *state.Session, flow string) (Outcome, error) {
	f, ok := e.flows[flow]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}
	first := f.First()
	s.Flow = f.Name
	s.Step = first.ID
	s.Fields = map[string]string{}
	e.enter(s, f, first)
	return Outcome{Result: Advanced, Flow: f, Step: first}, nil
}

// Advance applies one user input. Rejected input leaves the session untouched.
// A non-nil error comes only from the Resolver and also leaves the session untouched.
func (e *Engine) Advance(ctx context.Context, s *state.Session, in Input) (Outcome, error) {
	f, st, ok := e.Current(s)
	if !ok {
		return Outcome{Result: Ignored}, nil
	}
	reject := func(reason string) (Outcome, error) {
		logger.Debug(ctx, logger.CompFlow, "flow.reprompt",
			slog.String("flow", f.Name),
			slog.String("step", st.ID),
			slog.String("reason", reason),
			slog.String("input", string(in.Kind)),
		)
		return Outcome{Result: Reprompt, Flow: f, Step: st, Reason: reason}, nil
	}

	value, reason := accept(st.Accept, in)
	if reason != "" {
		return reject(reason)
	}
	if st.Lookup != LookupNone {
		found, err := e.lookup(ctx, st.Lookup, value)
		if err != nil {
			return Outcome{}, fmt.Errorf("dialogue: %s/%s lookup: %w", f.Name, st.ID, err)
		}
		if !found {
			return reject(ReasonNotFound)
		}
	}

	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	s.Fields[st.Field] = value
	if isMedia(st.Accept) {
		s.Fields[st.Field+KindSuffix] = string(in.Kind)
	}

	if st.Next == "" {
		out := Outcome{Result: Completed, Flow: f, Step: st, Fields: s.Fields}
		if isMedia(st.Accept) {
			att := in
			out.Attachment = &att
		}
		s.Reset()
		logger.Info(ctx, logger.CompFlow, "flow.completed",
			slog.String("status", "ok"),
			slog.String("flow", f.Name),
		)
		return out, nil
	}

	next, ok := f.Step(st.Next)
	if !ok {
		return Outcome{}, fmt.Errorf("dialogue: %s: step %q links to unknown %q", f.Name, st.ID, st.Next)
	}
	s.Step = next.ID
	e.enter(s, f, next)
	return Outcome{Result: Advanced, Flow: f, Step: next}, nil
}

// Back handles the back button pressed on stepID. The field of the current
// step is cleared and the previous step becomes current. A token for a step
// other than the current one is stale and ignored.
func (e *Engine) Back(s *state.Session, stepID string) Outcome {
	f, st, ok := e.Current(s)
	if !ok || st.ID != stepID {
		return Outcome{Result: Ignored}
	}
	delete(s.Fields, st.Field)
	delete(s.Fields, st.Field+KindSuffix)

	if st.Prev == "" {
		if !f.Cancellable {
			return Outcome{Result: Ignored}
		}
		s.Reset()
		return Outcome{Result: Exited, Flow: f}
	}
	prev, ok := f.Step(st.Prev)
	if !ok {
		return Outcome{Result: Ignored}
	}
	s.Step = prev.ID
	return Outcome{Result: Advanced, Flow: f, Step: prev}
}

// enter runs the side effects of making st current. The price is drawn once
// per flow run so going back and forth does not change it.
func (e *Engine) enter(s *state.Session, f *Flow, st Step) {
	if !st.Payment || s.Fields[FieldPrice] != "" {
		return
	}
	s.Fields[FieldPrice] = strconv.Itoa(e.drawPrice(f.Price))
}

func (e *Engine) drawPrice(r PriceRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + e.intN(r.Max-r.Min+1)
}

func (e *Engine) lookup(ctx context.Context, kind Lookup, value string) (bool, error) {
	if e.resolver == nil {
		return false, errors.New("no resolver configured")
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, nil
	}
	switch kind {
	case LookupTopic:
		return e.resolver.TopicExists(ctx, n)
	case LookupStatus:
		return e.resolver.StatusExists(ctx, n)
	}
	return true, nil
}

var (
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// accept validates in against a step and returns the value to store,
// or a non-empty reprompt reason.
func accept(a Accept, in Input) (string, string) {
	text := strings.TrimSpace(in.Text)
	switch a {
	case AcceptText:
		if in.Kind != InputText || text == "" {
			return "", ReasonKind
		}
		return text, ""
	case AcceptNumber:
		if in.Kind != InputText {
			return "", ReasonKind
		}
		if !digitsRe.MatchString(text) {
			return "", ReasonNumber
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return "", ReasonNumber
		}
		return strconv.FormatInt(n, 10), ""
	case AcceptPhone:
		if in.Kind != InputText && in.Kind != InputContact {
			return "", ReasonKind
		}
		phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(text)
		if in.Kind == InputContact && phone != "" && !strings.HasPrefix(phone, "+") {
			phone = "+" + phone
		}
		if !phoneRe.MatchString(phone) {
			return "", ReasonPhone
		}
		return phone, ""
	case AcceptPhoto:
		if in.Kind != InputPhoto || in.FileID == "" {
			return "", ReasonKind
		}
		return in.FileID, ""
	case AcceptProof:
		if (in.Kind != InputPhoto && in.Kind != InputDocument) || in.FileID == "" {
			return "", ReasonKind
		}
		return in.FileID, ""
	case AcceptMedia:
		switch in.Kind {
		case InputPhoto, InputDocument, InputVideo:
			if in.FileID != "" {
				return in.FileID, ""
			}
		}
		return "", ReasonKind
	}
	return "", ReasonWaiting
}

func isMedia(a Accept) bool {
	return a == AcceptPhoto || a == AcceptProof || a == AcceptMedia
}
