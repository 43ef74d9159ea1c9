package primitives

import (
	"errors"
)

// ErrNotFound reports that an image search produced no match at or above the
// requested threshold.
var ErrNotFound = errors.New("no match on screen")

// Match is the region where a template image was located.
type Match struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Center returns the match's midpoint, where click-on-match clicks land.
func (m Match) Center() (int, int) {
	return m.X + m.Width/2, m.Y + m.Height/2
}

// Actuator is the set of real-world effects and queries the engine delegates
// to. Implementations may block while injecting input or capturing the
// screen; the engine re-checks cancellation before every call. Each method
// failure surfaces as a PrimitiveError.
type Actuator interface {
	// MoveTo moves the pointer to absolute screen coordinates.
	MoveTo(x, y int) error
	// Click presses and releases a button at the current pointer position.
	Click(button string, double bool) error
	// MouseDown presses a button without releasing it.
	MouseDown(button string) error
	// MouseUp releases a button.
	MouseUp(button string) error
	// TypeText types a literal string.
	TypeText(s string) error
	// PressKeys presses a key preceded by the given modifiers. The final
	// symbol is the key; the rest are modifiers.
	PressKeys(symbols []string) error
	// FindImage searches the screen once for the template at the given path.
	// It returns ErrNotFound (wrapped) when nothing matches at or above the
	// threshold.
	FindImage(template string, threshold float64) (Match, error)
	// ReadClipboard returns the current clipboard text.
	ReadClipboard() (string, error)
}
