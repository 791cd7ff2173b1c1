package dialogue

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xojiakbarxolboyev/telegrambot/core/telegram/state"
)

type fakeResolver struct {
	topics   map[int64]bool
	statuses map[int64]bool
	err      error
}

func (f fakeResolver) TopicExists(_ context.Context, n int64) (bool, error) {
	return f.topics[n], f.err
}

func (f fakeResolver) StatusExists(_ context.Context, n int64) (bool, error) {
	return f.statuses[n], f.err
}

var testPrices = Prices{
	Slide:      PriceRange{Min: 20000, Max: 35000},
	ImageVideo: PriceRange{Min: 15000, Max: 25000},
	TextImage:  PriceRange{Min: 5000, Max: 10000},
	Video:      PriceRange{Min: 25000, Max: 40000},
}

func newEngine(opts ...Option) *Engine {
	r := fakeResolver{topics: map[int64]bool{3: true}, statuses: map[int64]bool{1: true}}
	return New(Flows(testPrices), r, opts...)
}

func text(s string) Input { return Input{Kind: InputText, Text: s} }

func start(t *testing.T, e *Engine, flow string) *state.Session {
	t.Helper()
	s := &state.Session{}
	out, err := e.Start(s, flow)
	require.NoError(t, err)
	require.Equal(t, Advanced, out.Result)
	return s
}

func advance(t *testing.T, e *Engine, s *state.Session, in Input) Outcome {
	t.Helper()
	out, err := e.Advance(context.Background(), s, in)
	require.NoError(t, err)
	return out
}

func TestFlowsAreWellFormed(t *testing.T) {
	for _, f := range Flows(testPrices) {
		require.NotEmpty(t, f.Steps, f.Name)
		ids := map[string]bool{}
		for i, st := range f.Steps {
			assert.False(t, ids[st.ID], "%s: duplicate step %s", f.Name, st.ID)
			ids[st.ID] = true
			if i == 0 {
				assert.Empty(t, st.Prev, f.Name)
			} else {
				assert.Equal(t, f.Steps[i-1].ID, st.Prev, "%s/%s", f.Name, st.ID)
			}
			if i == len(f.Steps)-1 {
				assert.Empty(t, st.Next, f.Name)
			} else {
				assert.Equal(t, f.Steps[i+1].ID, st.Next, "%s/%s", f.Name, st.ID)
			}
			assert.NotEmpty(t, st.Prompt, "%s/%s", f.Name, st.ID)
		}
		if f.Kind != "" {
			last := f.Steps[len(f.Steps)-1]
			assert.True(t, last.Payment, "%s ends with payment", f.Name)
			assert.True(t, f.Cancellable, f.Name)
		}
	}
}

func TestStartUnknownFlow(t *testing.T) {
	_, err := newEngine().Start(&state.Session{}, "nope")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestRegistrationScenario(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowRegistration)
	assert.Equal(t, "name", s.Step)

	for _, step := range []struct {
		in   Input
		next string
	}{
		{text("Ali"), "age"},
		{text("20"), "region"},
		{text("Tashkent"), "phone"},
	} {
		out := advance(t, e, s, step.in)
		require.Equal(t, Advanced, out.Result)
		assert.Equal(t, step.next, out.Step.ID)
		assert.Equal(t, step.next, s.Step)
	}

	out := advance(t, e, s, text("+998901234567"))
	require.Equal(t, Completed, out.Result)
	assert.Equal(t, map[string]string{
		FieldName: "Ali", FieldAge: "20", FieldRegion: "Tashkent", FieldPhone: "+998901234567",
	}, out.Fields)
	assert.False(t, s.Active())
}

func TestPhoneFromContact(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowRegistration)
	s.Step = "phone"

	out := advance(t, e, s, Input{Kind: InputContact, Text: "998901234567"})
	require.Equal(t, Completed, out.Result)
	assert.Equal(t, "+998901234567", out.Fields[FieldPhone])
}

func TestPhoneRejectsGarbage(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowRegistration)
	s.Step = "phone"
	out := advance(t, e, s, text("call me"))
	assert.Equal(t, Reprompt, out.Result)
	assert.Equal(t, ReasonPhone, out.Reason)
}

func TestNumericValidationLaw(t *testing.T) {
	e := newEngine()
	cases := []struct {
		flow, step string
	}{
		{FlowRegistration, "age"},
		{FlowSlide, "pages"},
		{FlowTopicLookup, "number"},
		{FlowTopicAdd, "number"},
		{FlowTopicDelete, "number"},
		{FlowFulfillment, "status"},
	}
	inputs := []Input{
		text("abc"), text("12a"), text("-5"), text("1.5"), text(""), text("  "),
		text("٣"), text("99999999999999999999999"),
		{Kind: InputPhoto, FileID: "p"},
	}
	for _, c := range cases {
		for _, in := range inputs {
			s := start(t, e, c.flow)
			s.Step = c.step
			s.Fields["earlier"] = "kept"
			before := s.Clone()

			out := advance(t, e, s, in)
			assert.Equal(t, Reprompt, out.Result, "%s/%s %q", c.flow, c.step, in.Text)
			assert.Equal(t, before, s.Clone(), "%s/%s %q", c.flow, c.step, in.Text)
		}
	}
}

func TestWrongKindReprompts(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowImageVideo)
	before := s.Clone()
	out := advance(t, e, s, text("not a photo"))
	assert.Equal(t, Reprompt, out.Result)
	assert.Equal(t, ReasonKind, out.Reason)
	assert.Equal(t, before, s.Clone())

	out = advance(t, e, s, Input{Kind: InputPhoto, FileID: "img"})
	require.Equal(t, Advanced, out.Result)
	assert.Equal(t, "img", s.Fields["image"])
	assert.Equal(t, string(InputPhoto), s.Fields["image"+KindSuffix])
}

func TestBackNavigationLaw(t *testing.T) {
	e := newEngine()
	answers := []Input{text("Physics"), text("12"), text("blue"), text("lots"), text("friday"), text("pptx")}

	// Walk forward to every step S and press back there.
	for depth := 1; depth < len(answers)+1; depth++ {
		s := start(t, e, FlowSlide)
		for _, in := range answers[:depth] {
			require.Equal(t, Advanced, advance(t, e, s, in).Result)
		}
		f, _ := e.Flow(FlowSlide)
		cur, ok := f.Step(s.Step)
		require.True(t, ok)
		prevID := cur.Prev
		s.Fields[cur.Field] = "partial"
		before := s.Clone()

		out := e.Back(s, cur.ID)
		require.Equal(t, Advanced, out.Result)
		assert.Equal(t, prevID, s.Step)
		assert.Equal(t, prevID, out.Step.ID)
		_, present := s.Fields[cur.Field]
		assert.False(t, present, "field of %s cleared", cur.ID)
		for k, v := range before.Fields {
			if k == cur.Field {
				continue
			}
			assert.Equal(t, v, s.Fields[k], "field %s intact after back from %s", k, cur.ID)
		}
	}
}

func TestBackWithStaleTokenIsIgnored(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowSlide)
	advance(t, e, s, text("Physics"))
	advance(t, e, s, text("12"))
	before := s.Clone()

	out := e.Back(s, "topic")
	assert.Equal(t, Ignored, out.Result)
	assert.Equal(t, before, s.Clone())
}

func TestBackOnFirstStep(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowSlide)
	s.LastPromptID = 77
	out := e.Back(s, "topic")
	assert.Equal(t, Exited, out.Result)
	assert.False(t, s.Active())
	assert.Equal(t, 77, s.LastPromptID)

	s = start(t, e, FlowRegistration)
	out = e.Back(s, "name")
	assert.Equal(t, Ignored, out.Result)
	assert.Equal(t, "name", s.Step)
}

func TestSlideScenarioPriceAndProof(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowSlide)
	for _, a := range []string{"Physics", "12", "blue", "lots", "friday"} {
		require.Equal(t, Advanced, advance(t, e, s, text(a)).Result)
	}
	_, hasPrice := s.Fields[FieldPrice]
	assert.False(t, hasPrice, "price is drawn when payment starts")

	out := advance(t, e, s, text("pptx"))
	require.Equal(t, Advanced, out.Result)
	require.True(t, out.Step.Payment)
	price, err := strconv.Atoi(s.Fields[FieldPrice])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, price, 20000)
	assert.LessOrEqual(t, price, 35000)

	// A text at the payment step is not a proof.
	assert.Equal(t, Reprompt, advance(t, e, s, text("paid")).Result)

	out = advance(t, e, s, Input{Kind: InputPhoto, FileID: "receipt"})
	require.Equal(t, Completed, out.Result)
	require.NotNil(t, out.Attachment)
	assert.Equal(t, "receipt", out.Attachment.FileID)
	for _, k := range []string{"topic", "pages", "colors", "text_amount", "deadline", "format", FieldPrice, FieldProof} {
		assert.NotEmpty(t, out.Fields[k], k)
	}
	assert.Equal(t, string(InputPhoto), out.Fields[FieldProof+KindSuffix])
	assert.False(t, s.Active())
}

func TestPriceSurvivesBackAndForth(t *testing.T) {
	calls := 0
	e := newEngine(WithIntN(func(n int) int {
		calls++
		return n - 1
	}))
	s := start(t, e, FlowTextImage)
	advance(t, e, s, text("a cat"))
	assert.Equal(t, "10000", s.Fields[FieldPrice])

	e.Back(s, "payment")
	advance(t, e, s, text("a dog"))
	assert.Equal(t, "10000", s.Fields[FieldPrice])
	assert.Equal(t, 1, calls)
}

func TestPriceRangeBounds(t *testing.T) {
	flows := Flows(testPrices)
	for _, pick := range []func(n int) int{
		func(int) int { return 0 },
		func(n int) int { return n - 1 },
	} {
		e := New(flows, fakeResolver{}, WithIntN(pick))
		for _, f := range flows {
			if f.Kind == "" {
				continue
			}
			p := e.drawPrice(f.Price)
			assert.GreaterOrEqual(t, p, f.Price.Min, f.Name)
			assert.LessOrEqual(t, p, f.Price.Max, f.Name)
		}
	}
	e := New(flows, fakeResolver{}, WithIntN(func(int) int { return 0 }))
	assert.Equal(t, 20000, e.drawPrice(testPrices.Slide))
	e = New(flows, fakeResolver{}, WithIntN(func(n int) int { return n - 1 }))
	assert.Equal(t, 35000, e.drawPrice(testPrices.Slide))
}

func TestLookupMissReprompts(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowTopicLookup)
	before := s.Clone()
	out := advance(t, e, s, text("4"))
	assert.Equal(t, Reprompt, out.Result)
	assert.Equal(t, ReasonNotFound, out.Reason)
	assert.Equal(t, before, s.Clone())

	out = advance(t, e, s, text("3"))
	require.Equal(t, Completed, out.Result)
	assert.Equal(t, "3", out.Fields[FieldNumber])
}

func TestFulfillmentStatusLookup(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowFulfillment)
	require.Equal(t, Advanced, advance(t, e, s, Input{Kind: InputVideo, FileID: "v1"}).Result)
	assert.Equal(t, Reprompt, advance(t, e, s, text("2")).Result)
	require.Equal(t, Advanced, advance(t, e, s, text("1")).Result)
	out := advance(t, e, s, text("here you go"))
	require.Equal(t, Completed, out.Result)
	assert.Equal(t, "v1", out.Fields[FieldFile])
	assert.Equal(t, string(InputVideo), out.Fields[FieldFile+KindSuffix])
	assert.Equal(t, "1", out.Fields[FieldStatus])
}

func TestResolverErrorLeavesSession(t *testing.T) {
	e := New(Flows(testPrices), fakeResolver{err: errors.New("db down")})
	s := start(t, e, FlowTopicLookup)
	before := s.Clone()
	_, err := e.Advance(context.Background(), s, text("3"))
	require.Error(t, err)
	assert.Equal(t, before, s.Clone())
}

func TestGateWaitsForButton(t *testing.T) {
	e := newEngine()
	s := start(t, e, FlowGate)
	out := advance(t, e, s, text("hello"))
	assert.Equal(t, Reprompt, out.Result)
	assert.Equal(t, ReasonWaiting, out.Reason)
	assert.Equal(t, "subscription", s.Step)
}

func TestIdleSessionIgnored(t *testing.T) {
	out := advance(t, newEngine(), &state.Session{}, text("hi"))
	assert.Equal(t, Ignored, out.Result)
}
