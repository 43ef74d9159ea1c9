package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTree() *Workflow {
	return &Workflow{Steps: []Step{
		{Kind: KindMouseMove, MouseMove: &MouseMoveStep{X: 1, Y: 2}},
		{Kind: KindLoop, Loop: &LoopStep{Count: 2, Body: []Step{
			{Kind: KindKeyType, KeyType: &KeyTypeStep{Text: "a"}},
			{Kind: KindConditional, Conditional: &ConditionalStep{
				Predicate: Predicate{Source: "clipboard", Mode: "equals", Value: "x"},
				Then: []Step{
					{Kind: KindMouseClick, MouseClick: &MouseClickStep{Button: "left"}},
				},
				Else: []Step{
					{Kind: KindKeyPress, KeyPress: &KeyPressStep{Keys: []string{"escape"}}},
				},
			}},
		}}},
	}}
}

func TestPathChildAndString(t *testing.T) {
	t.Parallel()

	var root Path
	require.Equal(t, "-", root.String())

	p := root.Child(1).Child(0)
	require.Equal(t, Path{1, 0}, p)
	require.Equal(t, "1.0", p.String())

	// Child must not alias the parent's backing array.
	a := p.Child(5)
	b := p.Child(7)
	require.Equal(t, Path{1, 0, 5}, a)
	require.Equal(t, Path{1, 0, 7}, b)
}

func TestStepAt(t *testing.T) {
	t.Parallel()

	wf := sampleTree()

	cases := []struct {
		name string
		path Path
		want string
	}{
		{name: "root step", path: Path{0}, want: KindMouseMove},
		{name: "loop itself", path: Path{1}, want: KindLoop},
		{name: "inside loop body", path: Path{1, 0}, want: KindKeyType},
		{name: "then branch", path: Path{1, 1, 0}, want: KindMouseClick},
		{name: "else branch follows then in index space", path: Path{1, 1, 1}, want: KindKeyPress},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			step := wf.StepAt(tc.path)
			require.NotNil(t, step)
			require.Equal(t, tc.want, step.Kind)
		})
	}

	require.Nil(t, wf.StepAt(Path{9}))
	require.Nil(t, wf.StepAt(Path{0, 0}))
	require.Nil(t, wf.StepAt(Path{1, 1, 2}))
}

func TestCountSteps(t *testing.T) {
	t.Parallel()

	wf := sampleTree()
	require.Equal(t, 6, CountSteps(wf.Steps))
}

func TestStepSummary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		step Step
		want string
	}{
		{Step{Kind: KindMouseMove, MouseMove: &MouseMoveStep{X: 3, Y: 4}}, "mouse move to (3,4)"},
		{Step{Kind: KindMouseClick, MouseClick: &MouseClickStep{Button: "left", Double: true}}, "mouse double-click left"},
		{Step{Kind: KindKeyType, KeyType: &KeyTypeStep{Text: "a very long piece of typed text"}}, `type "a very long piece of..."`},
		{Step{Kind: KindKeyPress, KeyPress: &KeyPressStep{Keys: []string{"ctrl", "c"}}}, "press ctrl+c"},
		{Step{Kind: KindImageFind, ImageFind: &ImageFindStep{Template: "shots/ok.png", ClickOnMatch: true}}, `find image "ok.png" and click`},
		{Step{Kind: KindLoop, Loop: &LoopStep{Count: 3, Body: make([]Step, 2)}}, "loop 3 times (2 steps)"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, tc.step.Summary())
	}
}
