package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alexisbeaulieu97/macrow/internal/logger"
	"github.com/alexisbeaulieu97/macrow/internal/primitives"
	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

// ErrAlreadyRunning is returned by Run while another run is in progress on
// the same engine instance.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// cancelPoll bounds how long a step delay can outlive a stop request.
const cancelPoll = 20 * time.Millisecond

// Engine interprets a workflow, dispatching each leaf step to the matching
// action primitive. One run at a time; Stop may be called concurrently from
// any goroutine.
type Engine struct {
	act primitives.Actuator
	log *logger.Logger

	running atomic.Bool
	stop    atomic.Bool
}

// New creates an engine bound to an actuator.
func New(act primitives.Actuator, log *logger.Logger) *Engine {
	return &Engine{act: act, log: log}
}

// IsRunning reports whether a run is in progress.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Stop requests cooperative cancellation of the current run. The request is
// observed before the next primitive dispatch, never inside one already in
// progress.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// frame is one level of the explicit traversal stack: a sequence of steps,
// the cursor within it, and loop bookkeeping. Conditional branches and loop
// bodies each get their own frame, so a stop request unwinds from arbitrary
// nesting depth without call-stack recursion.
type frame struct {
	steps []workflow.Step
	// prefix is the index path of the sequence's owning control step; leaf
	// paths are prefix + cursor. Else-branch frames carry an offset so their
	// indices follow the then-branch in one index space.
	prefix workflow.Path
	offset int
	cursor int
	// remaining counts loop passes left including the current one; zero for
	// non-loop frames. Reset on every loop entry, independent per nesting
	// level.
	remaining int
}

// Run executes the workflow from the first step and returns exactly one
// terminal result. It blocks until the run ends; callers wanting a
// background run start it on their own worker goroutine.
func (e *Engine) Run(wf *workflow.Workflow) (*RunResult, error) {
	if wf == nil {
		return nil, fmt.Errorf("workflow is nil")
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer e.running.Store(false)
	e.stop.Store(false)

	start := time.Now()
	steps := 0
	stack := []*frame{{steps: wf.Steps}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.cursor >= len(f.steps) {
			if f.remaining > 1 {
				f.remaining--
				f.cursor = 0
				continue
			}
			stack = stack[:len(stack)-1]
			continue
		}

		step := f.steps[f.cursor]
		path := f.prefix.Child(f.offset + f.cursor)

		if e.stop.Load() {
			e.log.WithStep(path.String()).Info("run cancelled")
			return cancelled(path, steps, time.Since(start)), nil
		}

		if !e.wait(step.Delay) {
			e.log.WithStep(path.String()).Info("run cancelled during step delay")
			return cancelled(path, steps, time.Since(start)), nil
		}

		f.cursor++

		switch step.Kind {
		case workflow.KindLoop:
			if len(step.Loop.Body) == 0 {
				continue
			}
			stack = append(stack, &frame{
				steps:     step.Loop.Body,
				prefix:    path,
				remaining: step.Loop.Count,
			})

		case workflow.KindConditional:
			text, err := e.act.ReadClipboard()
			if err != nil {
				return failed(path, err, steps, time.Since(start)), nil
			}
			branch := step.Conditional.Else
			offset := len(step.Conditional.Then)
			if predicateHolds(step.Conditional.Predicate, text) {
				branch = step.Conditional.Then
				offset = 0
			}
			if len(branch) == 0 {
				continue
			}
			stack = append(stack, &frame{
				steps:  branch,
				prefix: path,
				offset: offset,
			})

		default:
			if err := e.dispatch(step, path); err != nil {
				e.log.WithStep(path.String()).Error(err, "step failed")
				return failed(path, err, steps, time.Since(start)), nil
			}
			steps++
		}
	}

	e.log.WithFields(map[string]any{"steps": steps}).Info("run completed")
	return completed(steps, time.Since(start)), nil
}

// dispatch invokes the primitive matching one leaf step.
func (e *Engine) dispatch(step workflow.Step, path workflow.Path) error {
	e.log.WithStep(path.String()).Debug(step.Summary())

	switch step.Kind {
	case workflow.KindMouseMove:
		return e.act.MoveTo(step.MouseMove.X, step.MouseMove.Y)
	case workflow.KindMouseClick:
		return e.act.Click(step.MouseClick.Button, step.MouseClick.Double)
	case workflow.KindMouseHold:
		return e.act.MouseDown(step.MouseHold.Button)
	case workflow.KindMouseRelease:
		return e.act.MouseUp(step.MouseRelease.Button)
	case workflow.KindKeyType:
		return e.act.TypeText(step.KeyType.Text)
	case workflow.KindKeyPress:
		return e.act.PressKeys(step.KeyPress.Keys)
	case workflow.KindImageFind:
		match, err := e.act.FindImage(step.ImageFind.Template, step.ImageFind.Threshold)
		if err != nil {
			return err
		}
		if step.ImageFind.ClickOnMatch {
			x, y := match.Center()
			if err := e.act.MoveTo(x, y); err != nil {
				return err
			}
			return e.act.Click("left", false)
		}
		return nil
	}
	return fmt.Errorf("unknown step kind %q", step.Kind)
}

// predicateHolds evaluates a conditional's predicate against clipboard text.
// Pure read, no side effect.
func predicateHolds(p workflow.Predicate, text string) bool {
	switch p.Mode {
	case "equals":
		return text == p.Value
	default:
		return strings.Contains(text, p.Value)
	}
}

// wait sleeps the step's configured delay, polling the stop flag so a stop
// request does not have to wait out a long delay. Returns false when the run
// was cancelled.
func (e *Engine) wait(seconds float64) bool {
	if seconds <= 0 {
		return true
	}

	deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	for {
		if e.stop.Load() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > cancelPoll {
			remaining = cancelPoll
		}
		time.Sleep(remaining)
	}
}
