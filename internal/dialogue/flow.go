// Package dialogue drives the step-by-step forms of the bot.
//
// Every flow is a chain of Step descriptors. The Engine interprets any flow
// with the same two transitions: Advance on user input and Back on the back
// button. Nothing here talks to Telegram; callers render Outcome.Step.
package dialogue

// Accept is the input a step takes.
type Accept int

const (
	// AcceptNone steps only move on a button press handled by the caller.
	AcceptNone Accept = iota
	AcceptText
	// AcceptNumber takes a non-negative decimal integer.
	AcceptNumber
	// AcceptPhone takes a shared contact or a typed phone number.
	AcceptPhone
	AcceptPhoto
	// AcceptProof takes a photo or a document.
	AcceptProof
	// AcceptMedia takes a photo, a document or a video.
	AcceptMedia
)

// Lookup names an existence check run on numeric input.
type Lookup int

const (
	LookupNone Lookup = iota
	LookupTopic
	LookupStatus
)

// Step is one prompt of a flow.
type Step struct {
	ID string
	// Prompt is the text key rendered when the step becomes current.
	Prompt string
	// Field is the session key the accepted value is stored under.
	Field   string
	Accept  Accept
	Lookup  Lookup
	Payment bool
	Next    string
	Prev    string
}

// PriceRange is an inclusive price range in so'm.
type PriceRange struct {
	Min int
	Max int
}

// Flow is a named chain of steps.
type Flow struct {
	Name string
	// Kind is the approval kind of order flows; empty for the rest.
	Kind  string
	Steps []Step
	// Cancellable flows are left by pressing back on their first step.
	Cancellable  bool
	OperatorOnly bool
	Price        PriceRange
}

// First returns the entry step.
func (f *Flow) First() Step {
	return f.Steps[0]
}

// Step finds a step by id.
func (f *Flow) Step(id string) (Step, bool) {
	for _, s := range f.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// chain links steps in order through Next and Prev.
func chain(steps ...Step) []Step {
	for i := range steps {
		if i > 0 {
			steps[i].Prev = steps[i-1].ID
		}
		if i+1 < len(steps) {
			steps[i].Next = steps[i+1].ID
		}
	}
	return steps
}
