// Package approval relays paid orders to the operator and applies the operator's decision.
package approval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Order kinds. They travel inside callback payloads, so they never contain '_'.
const (
	KindSlide      = "slide"
	KindImageVideo = "i2v"
	KindTextImage  = "t2i"
	KindVideo      = "video"
)

// Decision is the operator's answer to an order.
type Decision string

const (
	Approve Decision = "approve"
	Decline Decision = "decline"
)

var (
	// ErrBadToken is returned for payloads that do not follow the token grammar.
	ErrBadToken = errors.New("approval: malformed token")
	// ErrAlreadyResolved is returned when a decision contradicts an earlier one.
	ErrAlreadyResolved = errors.New("approval: already resolved with another decision")
)

// Token is the payload of an approve or decline button:
// "<action>_<kind>_<identity>_<messageId>".
type Token struct {
	Action    Decision
	Kind      string
	Identity  int64
	MessageID int
}

func (t Token) String() string {
	return fmt.Sprintf("%s_%s_%d_%d", t.Action, t.Kind, t.Identity, t.MessageID)
}

// Key identifies the order the token refers to, independent of the action.
func (t Token) Key() string {
	return orderKey(t.Kind, t.Identity, t.MessageID)
}

func orderKey(kind string, identity int64, messageID int) string {
	return fmt.Sprintf("%s_%d_%d", kind, identity, messageID)
}

// ParseToken decodes a button payload.
func ParseToken(s string) (Token, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, s)
	}
	t := Token{Action: Decision(parts[0]), Kind: parts[1]}
	if t.Action != Approve && t.Action != Decline {
		return Token{}, fmt.Errorf("%w: unknown action %q", ErrBadToken, parts[0])
	}
	if t.Kind == "" {
		return Token{}, fmt.Errorf("%w: empty kind", ErrBadToken)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return Token{}, fmt.Errorf("%w: identity %q", ErrBadToken, parts[2])
	}
	msgID, err := strconv.Atoi(parts[3])
	if err != nil || msgID <= 0 {
		return Token{}, fmt.Errorf("%w: message id %q", ErrBadToken, parts[3])
	}
	t.Identity = id
	t.MessageID = msgID
	return t, nil
}

// IsSlide reports whether kind gets the slide confirmation rather than the media one.
func IsSlide(kind string) bool {
	return kind == KindSlide
}
