package state

import "maps"

// Session is one user's position in a dialogue.
type Session struct {
	Flow   string
	Step   string
	Fields map[string]string
	// LastPromptID is the message id of the most recent prompt, 0 if none.
	LastPromptID int
}

// Active reports whether the session is inside a flow.
func (s Session) Active() bool {
	return s.Flow != ""
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.Fields = maps.Clone(s.Fields)
	return s
}

// Reset leaves the flow but keeps LastPromptID so the caller can still clean up the prompt.
func (s *Session) Reset() {
	s.Flow = ""
	s.Step = ""
	s.Fields = nil
}

// Manager stores sessions.
type Manager interface {
	// Get returns a copy of the user's session; the zero Session when idle.
	Get(userID int64) Session
	// Update runs fn on the user's session while holding that user's lock and
	// returns a copy of the result.
	Update(userID int64, fn func(*Session)) Session
	// Clear resets the session and returns what it held before.
	Clear(userID int64) Session
	InProgress(userID int64) bool
}
