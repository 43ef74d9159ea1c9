package recorder

import (
	"time"
)

// Kind discriminates raw input events.
type Kind uint8

const (
	// KindMove is a pointer motion sample.
	KindMove Kind = iota + 1
	// KindButtonDown is a mouse button press.
	KindButtonDown
	// KindButtonUp is a mouse button release.
	KindButtonUp
	// KindKeyDown is a keyboard key press.
	KindKeyDown
	// KindKeyUp is a keyboard key release.
	KindKeyUp
)

// Event is one raw, timestamped input event from the event source. Char
// carries the printable character for keyboard events when there is one;
// Key carries the symbol name for non-printable and modifier keys.
type Event struct {
	Kind   Kind
	When   time.Time
	X      int
	Y      int
	Button string
	Clicks int
	Char   rune
	Key    string
}

// Source is a live, ordered stream of raw input events. The stream ends when
// the channel closes, whether by Close or because the underlying hook
// stopped on its own.
type Source interface {
	Events() <-chan Event
	Close() error
}

// modifier key symbols, canonical spelling.
var modifierKeys = map[string]bool{
	"shift": true,
	"ctrl":  true,
	"alt":   true,
	"cmd":   true,
}

func isModifier(key string) bool {
	return modifierKeys[key]
}
