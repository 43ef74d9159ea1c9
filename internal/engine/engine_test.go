package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/macrow/internal/primitives"
	"github.com/alexisbeaulieu97/macrow/internal/workflow"
	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

// fakeActuator records every primitive invocation in order. It stands in for
// the desktop so tests can assert exactly which effects a run produced.
type fakeActuator struct {
	mu        sync.Mutex
	calls     []string
	clipboard string
	images    map[string]primitives.Match
	onCall    func(op string)
	gate      chan struct{}
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{images: map[string]primitives.Match{}}
}

func (f *fakeActuator) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(call)
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeActuator) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeActuator) MoveTo(x, y int) error {
	f.record(fmt.Sprintf("moveTo(%d,%d)", x, y))
	return nil
}

func (f *fakeActuator) Click(button string, double bool) error {
	f.record(fmt.Sprintf("click(%s,%v)", button, double))
	return nil
}

func (f *fakeActuator) MouseDown(button string) error {
	f.record("mouseDown(" + button + ")")
	return nil
}

func (f *fakeActuator) MouseUp(button string) error {
	f.record("mouseUp(" + button + ")")
	return nil
}

func (f *fakeActuator) TypeText(s string) error {
	f.record("typeText(" + s + ")")
	return nil
}

func (f *fakeActuator) PressKeys(symbols []string) error {
	f.record(fmt.Sprintf("pressKeys(%v)", symbols))
	return nil
}

func (f *fakeActuator) FindImage(template string, threshold float64) (primitives.Match, error) {
	f.record("findImage(" + template + ")")
	match, ok := f.images[template]
	if !ok {
		return primitives.Match{}, macrowerrors.NewPrimitiveError("findImage", primitives.ErrNotFound)
	}
	return match, nil
}

func (f *fakeActuator) ReadClipboard() (string, error) {
	f.record("readClipboard()")
	return f.clipboard, nil
}

func keyType(text string) workflow.Step {
	return workflow.Step{Kind: workflow.KindKeyType, KeyType: &workflow.KeyTypeStep{Text: text}}
}

func newTestEngine(t *testing.T, act primitives.Actuator) *Engine {
	t.Helper()
	return New(act, nil)
}

func TestRunEmptyWorkflowCompletes(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	res, err := eng.Run(&workflow.Workflow{})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Zero(t, res.Steps)
	require.Empty(t, act.recorded())
}

func TestRunNilWorkflow(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, newFakeActuator())
	_, err := eng.Run(nil)
	require.Error(t, err)
}

func TestRunFlatSequenceInOrder(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindMouseMove, MouseMove: &workflow.MouseMoveStep{X: 5, Y: 6}},
		{Kind: workflow.KindMouseClick, MouseClick: &workflow.MouseClickStep{Button: "left"}},
		keyType("hi"),
		{Kind: workflow.KindKeyPress, KeyPress: &workflow.KeyPressStep{Keys: []string{"ctrl", "s"}}},
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.True(t, res.Completed())
	require.Equal(t, 4, res.Steps)
	require.Equal(t, []string{
		"moveTo(5,6)",
		"click(left,false)",
		"typeText(hi)",
		"pressKeys([ctrl s])",
	}, act.recorded())
}

func TestLoopRunsBodyExactly(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindLoop, Loop: &workflow.LoopStep{Count: 3, Body: []workflow.Step{keyType("a")}}},
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, []string{"typeText(a)", "typeText(a)", "typeText(a)"}, act.recorded())
}

func TestNestedLoopCountersAreIndependent(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	inner := workflow.Step{Kind: workflow.KindLoop, Loop: &workflow.LoopStep{Count: 2, Body: []workflow.Step{keyType("x")}}}
	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindLoop, Loop: &workflow.LoopStep{Count: 3, Body: []workflow.Step{inner, keyType("y")}}},
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.True(t, res.Completed())

	want := []string{
		"typeText(x)", "typeText(x)", "typeText(y)",
		"typeText(x)", "typeText(x)", "typeText(y)",
		"typeText(x)", "typeText(x)", "typeText(y)",
	}
	require.Equal(t, want, act.recorded())
}

func TestConditionalSelectsBranchFromClipboard(t *testing.T) {
	t.Parallel()

	cond := workflow.Step{Kind: workflow.KindConditional, Conditional: &workflow.ConditionalStep{
		Predicate: workflow.Predicate{Source: "clipboard", Mode: "equals", Value: "foo"},
		Then:      []workflow.Step{keyType("then")},
		Else:      []workflow.Step{keyType("else")},
	}}

	cases := []struct {
		name      string
		clipboard string
		want      []string
	}{
		{name: "equal clipboard runs then branch", clipboard: "foo", want: []string{"readClipboard()", "typeText(then)"}},
		{name: "different clipboard runs else branch", clipboard: "bar", want: []string{"readClipboard()", "typeText(else)"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			act := newFakeActuator()
			act.clipboard = tc.clipboard
			eng := newTestEngine(t, act)

			res, err := eng.Run(&workflow.Workflow{Steps: []workflow.Step{cond}})
			require.NoError(t, err)
			require.True(t, res.Completed())
			require.Equal(t, tc.want, act.recorded())
		})
	}
}

func TestConditionalContainsMode(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	act.clipboard = "prefix foo suffix"
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindConditional, Conditional: &workflow.ConditionalStep{
			Predicate: workflow.Predicate{Source: "clipboard", Mode: "contains", Value: "foo"},
			Then:      []workflow.Step{keyType("hit")},
		}},
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.True(t, res.Completed())
	require.Equal(t, []string{"readClipboard()", "typeText(hit)"}, act.recorded())
}

func TestStopBetweenStepsSkipsTheRest(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	// Stop after the second effect; steps at index >= 2 must never dispatch.
	act.onCall = func(call string) {
		if call == "typeText(b)" {
			eng.Stop()
		}
	}

	wf := &workflow.Workflow{Steps: []workflow.Step{
		keyType("a"), keyType("b"), keyType("c"), keyType("d"),
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, res.Status)
	require.Equal(t, workflow.Path{2}, res.Path)
	require.Equal(t, []string{"typeText(a)", "typeText(b)"}, act.recorded())
}

func TestStopInsideNestedLoopUnwinds(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	count := 0
	act.onCall = func(call string) {
		count++
		if count == 4 {
			eng.Stop()
		}
	}

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindLoop, Loop: &workflow.LoopStep{Count: 5, Body: []workflow.Step{
			keyType("a"), keyType("b"),
		}}},
		keyType("never"),
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, res.Status)
	require.Equal(t, workflow.Path{0, 0}, res.Path)
	require.Len(t, act.recorded(), 4)
	require.NotContains(t, act.recorded(), "typeText(never)")
}

func TestFailureHaltsForwardProgress(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		keyType("a"),
		{Kind: workflow.KindImageFind, ImageFind: &workflow.ImageFindStep{Template: "missing.png", Threshold: 0.8}},
		keyType("never"),
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, workflow.Path{1}, res.Path)
	require.ErrorIs(t, res.Err, primitives.ErrNotFound)
	require.Equal(t, []string{"typeText(a)", "findImage(missing.png)"}, act.recorded())
}

func TestImageFindClicksMatchCenter(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	act.images["ok.png"] = primitives.Match{X: 100, Y: 200, Width: 20, Height: 10}
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindImageFind, ImageFind: &workflow.ImageFindStep{
			Template: "ok.png", Threshold: 0.8, ClickOnMatch: true,
		}},
	}}

	res, err := eng.Run(wf)
	require.NoError(t, err)
	require.True(t, res.Completed())
	require.Equal(t, []string{"findImage(ok.png)", "moveTo(110,205)", "click(left,false)"}, act.recorded())
}

func TestRunWhileRunningFailsWithoutDisturbingFirstRun(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	act.gate = make(chan struct{})
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{keyType("a"), keyType("b")}}

	done := make(chan *RunResult, 1)
	go func() {
		res, err := eng.Run(wf)
		require.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, eng.IsRunning, time.Second, time.Millisecond)

	_, err := eng.Run(wf)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	// Release the first run and let it finish untouched.
	act.gate <- struct{}{}
	act.gate <- struct{}{}

	select {
	case res := <-done:
		require.True(t, res.Completed())
		require.Equal(t, 2, res.Steps)
	case <-time.After(time.Second):
		t.Fatal("first run did not finish")
	}
}

func TestStopCancelsStepDelay(t *testing.T) {
	t.Parallel()

	act := newFakeActuator()
	eng := newTestEngine(t, act)

	wf := &workflow.Workflow{Steps: []workflow.Step{
		{Kind: workflow.KindKeyType, Delay: 30, KeyType: &workflow.KeyTypeStep{Text: "late"}},
	}}

	done := make(chan *RunResult, 1)
	go func() {
		res, err := eng.Run(wf)
		require.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, eng.IsRunning, time.Second, time.Millisecond)
	eng.Stop()

	select {
	case res := <-done:
		require.Equal(t, StatusCancelled, res.Status)
		require.Empty(t, act.recorded())
	case <-time.After(2 * time.Second):
		t.Fatal("stop request did not interrupt the delay")
	}
}
