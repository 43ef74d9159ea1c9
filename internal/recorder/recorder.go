package recorder

import (
	"errors"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/alexisbeaulieu97/macrow/internal/logger"
	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

// ErrAlreadyRecording is returned by Start while a capture is in progress.
var ErrAlreadyRecording = errors.New("a recording is already in progress")

// Recorder compresses a raw input event stream into workflow steps:
// motion runs collapse into one mouse_move, down/up pairs into clicks,
// printable key bursts into one key_type. Inter-event gaps are carried as
// per-step delays so playback keeps the recorded rhythm.
type Recorder struct {
	src Source
	log *logger.Logger

	mu        sync.Mutex
	recording bool
	quit      chan struct{}
	done      chan struct{}

	// coalescing state, owned by the consumer goroutine between Start and
	// the done signal, then by Stop.
	steps       []workflow.Step
	prev        time.Time
	pendingMove *moveRun
	pendingDown *downState
	textBuf     strings.Builder
	textDelay   float64
	mods        []string
	held        map[string]bool
}

type moveRun struct {
	x, y  int
	delay float64
}

type downState struct {
	button string
	x, y   int
	double bool
	delay  float64
}

// New creates a recorder reading from the given event source.
func New(src Source, log *logger.Logger) *Recorder {
	return &Recorder{src: src, log: log}
}

// IsRecording reports whether a capture is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Done is closed once the consumer goroutine exits, either because Stop was
// called or because the event source ended on its own. Nil before Start.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Start begins consuming the event stream.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	if r.src == nil {
		return errors.New("recorder has no event source")
	}

	r.steps = nil
	r.prev = time.Time{}
	r.pendingMove = nil
	r.pendingDown = nil
	r.textBuf.Reset()
	r.textDelay = 0
	r.mods = nil
	r.held = make(map[string]bool)

	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	r.recording = true

	go r.consumeLoop()

	r.log.Info("recording started")
	return nil
}

// Stop ends the capture and returns the coalesced workflow. If the event
// source stopped on its own, whatever was captured up to that point is
// returned rather than discarded.
func (r *Recorder) Stop() *workflow.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return &workflow.Workflow{Steps: r.steps}
	}

	close(r.quit)
	_ = r.src.Close()
	<-r.done

	r.flushAll()
	r.recording = false

	r.log.WithFields(map[string]any{"steps": len(r.steps)}).Info("recording stopped")
	return &workflow.Workflow{Steps: r.steps}
}

func (r *Recorder) consumeLoop() {
	defer close(r.done)

	for {
		select {
		case ev, ok := <-r.src.Events():
			if !ok {
				r.log.Warn("event source stopped; keeping partial capture")
				return
			}
			r.consume(ev)
		case <-r.quit:
			return
		}
	}
}

// gap returns the seconds elapsed since the previous event, rounded to
// milliseconds, and advances the clock.
func (r *Recorder) gap(when time.Time) float64 {
	if r.prev.IsZero() {
		r.prev = when
		return 0
	}
	d := when.Sub(r.prev).Seconds()
	r.prev = when
	if d < 0 {
		return 0
	}
	return math.Round(d*1000) / 1000
}

func (r *Recorder) consume(ev Event) {
	delay := r.gap(ev.When)

	switch ev.Kind {
	case KindMove:
		// Motion during a press is a drag, not a click.
		r.resolveHold()
		r.flushText()
		if r.pendingMove == nil {
			r.pendingMove = &moveRun{delay: delay}
		}
		r.pendingMove.x = ev.X
		r.pendingMove.y = ev.Y

	case KindButtonDown:
		r.resolveHold()
		r.flushMove()
		r.flushText()
		r.pendingDown = &downState{
			button: ev.Button,
			x:      ev.X,
			y:      ev.Y,
			double: ev.Clicks > 1,
			delay:  delay,
		}

	case KindButtonUp:
		down := r.pendingDown
		switch {
		case down != nil && down.button == ev.Button && down.x == ev.X && down.y == ev.Y:
			r.pendingDown = nil
			r.emitClick(down)
		case down != nil && down.button == ev.Button:
			r.resolveHold()
			r.emitRelease(ev.Button, delay)
		case r.held[ev.Button]:
			delete(r.held, ev.Button)
			r.flushMove()
			r.flushText()
			r.emitRelease(ev.Button, delay)
		default:
			// Release with no observed press.
			r.resolveHold()
			r.flushMove()
			r.flushText()
			r.emitRelease(ev.Button, delay)
		}

	case KindKeyDown:
		if isModifier(ev.Key) {
			r.pushMod(ev.Key)
			return
		}
		r.resolveHold()
		if r.isPrintable(ev) {
			r.flushMove()
			if r.textBuf.Len() == 0 {
				r.textDelay = delay
			}
			r.textBuf.WriteRune(ev.Char)
			return
		}
		r.flushMove()
		r.flushText()
		r.emitKeyPress(ev, delay)

	case KindKeyUp:
		if isModifier(ev.Key) {
			r.popMod(ev.Key)
		}
		// Releases of regular keys carry no information of their own.
	}
}

// isPrintable reports whether a key event should join a typed-text run.
// Shift alone still types (the character already reflects it); any other
// held modifier turns the keystroke into a hotkey.
func (r *Recorder) isPrintable(ev Event) bool {
	if ev.Char == 0 || !unicode.IsPrint(ev.Char) {
		return false
	}
	for _, mod := range r.mods {
		if mod != "shift" {
			return false
		}
	}
	return true
}

func (r *Recorder) pushMod(key string) {
	for _, mod := range r.mods {
		if mod == key {
			return
		}
	}
	r.mods = append(r.mods, key)
}

func (r *Recorder) popMod(key string) {
	for i, mod := range r.mods {
		if mod == key {
			r.mods = append(r.mods[:i], r.mods[i+1:]...)
			return
		}
	}
}

func (r *Recorder) emitClick(down *downState) {
	// A double-click arrives as two press/release pairs; fold the second
	// pair into the step emitted for the first.
	if down.double && len(r.steps) > 0 {
		last := &r.steps[len(r.steps)-1]
		if last.Kind == workflow.KindMouseClick && last.MouseClick.Button == down.button && !last.MouseClick.Double {
			last.MouseClick.Double = true
			return
		}
	}

	r.steps = append(r.steps, workflow.Step{
		Kind:       workflow.KindMouseClick,
		Delay:      down.delay,
		MouseClick: &workflow.MouseClickStep{Button: down.button, Double: down.double},
	})
}

func (r *Recorder) emitRelease(button string, delay float64) {
	r.steps = append(r.steps, workflow.Step{
		Kind:         workflow.KindMouseRelease,
		Delay:        delay,
		MouseRelease: &workflow.MouseReleaseStep{Button: button},
	})
}

func (r *Recorder) emitKeyPress(ev Event, delay float64) {
	symbol := ev.Key
	if symbol == "" && ev.Char != 0 {
		symbol = strings.ToLower(string(ev.Char))
	}
	if symbol == "" {
		return
	}

	symbols := append(append([]string(nil), r.mods...), symbol)
	r.steps = append(r.steps, workflow.Step{
		Kind:     workflow.KindKeyPress,
		Delay:    delay,
		KeyPress: &workflow.KeyPressStep{Keys: symbols},
	})
}

// resolveHold turns an unconcluded button press into a mouse_hold step and
// remembers the button so its eventual release becomes a mouse_release.
func (r *Recorder) resolveHold() {
	if r.pendingDown == nil {
		return
	}
	down := r.pendingDown
	r.pendingDown = nil

	r.flushMove()
	r.flushText()
	r.held[down.button] = true
	r.steps = append(r.steps, workflow.Step{
		Kind:      workflow.KindMouseHold,
		Delay:     down.delay,
		MouseHold: &workflow.MouseHoldStep{Button: down.button},
	})
}

func (r *Recorder) flushMove() {
	if r.pendingMove == nil {
		return
	}
	run := r.pendingMove
	r.pendingMove = nil
	r.steps = append(r.steps, workflow.Step{
		Kind:      workflow.KindMouseMove,
		Delay:     run.delay,
		MouseMove: &workflow.MouseMoveStep{X: run.x, Y: run.y},
	})
}

func (r *Recorder) flushText() {
	if r.textBuf.Len() == 0 {
		return
	}
	text := r.textBuf.String()
	r.textBuf.Reset()
	r.steps = append(r.steps, workflow.Step{
		Kind:    workflow.KindKeyType,
		Delay:   r.textDelay,
		KeyType: &workflow.KeyTypeStep{Text: text},
	})
}

func (r *Recorder) flushAll() {
	r.resolveHold()
	r.flushMove()
	r.flushText()
}
