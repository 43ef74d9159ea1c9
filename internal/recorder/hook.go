package recorder

import (
	"strings"
	"sync"
	"time"
	"unicode"

	hook "github.com/robotn/gohook"

	"github.com/alexisbeaulieu97/macrow/internal/logger"
)

// rightHoldStop is how long the right button must stay pressed for its
// release to end the capture instead of recording a click.
const rightHoldStop = 2 * time.Second

// Hook captures global mouse and keyboard input via the OS event hook and
// republishes it as recorder events. Pressing Escape, or holding the right
// button for rightHoldStop and releasing it, ends the stream.
type Hook struct {
	events chan Event
	log    *logger.Logger
	once   sync.Once
}

// NewHook installs the global input hook and starts pumping events. The
// returned Hook owns the hook until Close (or Escape) tears it down.
func NewHook(log *logger.Logger) *Hook {
	h := &Hook{
		events: make(chan Event, 64),
		log:    log,
	}
	go h.pump()
	return h
}

// Events returns the stream of captured input events. The channel is closed
// when the hook stops.
func (h *Hook) Events() <-chan Event {
	return h.events
}

// Close uninstalls the OS hook. The pump goroutine drains out and closes the
// event channel on its own.
func (h *Hook) Close() error {
	h.once.Do(hook.End)
	return nil
}

func (h *Hook) pump() {
	defer close(h.events)

	raw := hook.Start()
	defer h.Close()

	var filter stopFilter
	for ev := range raw {
		out, ok := h.translate(ev)
		if !ok {
			continue
		}
		emit, stop := filter.filter(out)
		if stop {
			h.log.Debug("stop gesture; ending capture")
			return
		}
		for _, e := range emit {
			h.events <- e
		}
	}
}

// stopFilter screens translated events for the capture-ending gestures: an
// Escape key press, and a right button held for rightHoldStop then released.
// A right press is buffered until its fate is known, so a quick right click
// still reaches the recorder intact. Escape exists for the common case; the
// right-hold gesture covers captures that need to record Escape literally.
type stopFilter struct {
	pendingRight *Event
}

// filter returns the events to forward and whether the capture should end.
func (f *stopFilter) filter(ev Event) ([]Event, bool) {
	if ev.Kind == KindKeyDown && ev.Key == "escape" {
		return nil, true
	}

	if f.pendingRight == nil {
		if ev.Kind == KindButtonDown && ev.Button == "right" {
			pending := ev
			f.pendingRight = &pending
			return nil, false
		}
		return []Event{ev}, false
	}

	down := *f.pendingRight
	f.pendingRight = nil

	if ev.Kind == KindButtonUp && ev.Button == "right" {
		if ev.When.Sub(down.When) >= rightHoldStop {
			return nil, true
		}
		return []Event{down, ev}, false
	}

	// Any other activity means the press was real input, not a stop
	// gesture.
	return []Event{down, ev}, false
}

// translate maps a raw hook event onto the recorder's event model. Events the
// recorder has no use for (scrolls, unknown buttons) are dropped.
func (h *Hook) translate(ev hook.Event) (Event, bool) {
	when := ev.When
	if when.IsZero() {
		when = time.Now()
	}

	switch ev.Kind {
	case hook.MouseMove, hook.MouseDrag:
		return Event{Kind: KindMove, When: when, X: int(ev.X), Y: int(ev.Y)}, true

	case hook.MouseDown, hook.MouseUp:
		button := buttonName(ev.Button)
		if button == "" {
			return Event{}, false
		}
		kind := KindButtonDown
		if ev.Kind == hook.MouseUp {
			kind = KindButtonUp
		}
		return Event{
			Kind:   kind,
			When:   when,
			X:      int(ev.X),
			Y:      int(ev.Y),
			Button: button,
			Clicks: int(ev.Clicks),
		}, true

	case hook.KeyDown, hook.KeyUp:
		kind := KindKeyDown
		if ev.Kind == hook.KeyUp {
			kind = KindKeyUp
		}
		out := Event{Kind: kind, When: when, Key: keyName(ev)}
		if ev.Keychar != 0 && unicode.IsPrint(ev.Keychar) {
			out.Char = ev.Keychar
		}
		return out, true
	}

	return Event{}, false
}

func buttonName(button uint16) string {
	switch button {
	case 1:
		return "left"
	case 2:
		return "right"
	}
	return ""
}

// keyAliases folds the hook's keycode names onto the symbols used in
// key_press steps.
var keyAliases = map[string]string{
	"return":        "enter",
	"control":       "ctrl",
	"left control":  "ctrl",
	"right control": "ctrl",
	"left shift":    "shift",
	"right shift":   "shift",
	"left alt":      "alt",
	"right alt":     "alt",
	"command":       "cmd",
	"left command":  "cmd",
	"right command": "cmd",
	"windows":       "cmd",
	"spacebar":      "space",
}

func keyName(ev hook.Event) string {
	name := strings.ToLower(hook.RawcodetoKeychar(ev.Rawcode))
	if alias, ok := keyAliases[name]; ok {
		return alias
	}
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" && ev.Keychar != 0 && unicode.IsPrint(ev.Keychar) {
		name = strings.ToLower(string(ev.Keychar))
	}
	return name
}
