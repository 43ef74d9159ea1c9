package workflow

import (
	"strconv"
	"strings"
)

// Workflow is an ordered, tree-shaped sequence of steps representing one
// automation script. A workflow owns its step tree exclusively.
type Workflow struct {
	Steps []Step
}

// Path identifies a step by its index path from the workflow root. Each
// component indexes into the ordered sequence at that nesting level: a loop
// body indexes 0..len(body)-1, and a conditional's branches share one index
// space with then at 0..len(then)-1 and else following at len(then)..
// Paths are stable identities for UI selection; the engine's control flow
// never dereferences them.
type Path []int

// Child returns a copy of the path extended with one more index.
func (p Path) Child(i int) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = i
	return child
}

func (p Path) String() string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// StepAt resolves an index path to the step it identifies, or nil when the
// path leads outside the tree.
func (w *Workflow) StepAt(p Path) *Step {
	if w == nil {
		return nil
	}

	steps := w.Steps
	var current *Step
	for _, idx := range p {
		if current != nil {
			switch current.Kind {
			case KindLoop:
				steps = current.Loop.Body
			case KindConditional:
				then := current.Conditional.Then
				if idx < len(then) {
					steps = then
				} else {
					steps = current.Conditional.Else
					idx -= len(then)
				}
				if idx < 0 || idx >= len(steps) {
					return nil
				}
				current = &steps[idx]
				continue
			default:
				return nil
			}
		}
		if idx < 0 || idx >= len(steps) {
			return nil
		}
		current = &steps[idx]
	}
	return current
}

// CountSteps reports the total number of steps in the tree, nested bodies
// included. Used for recorder summaries and logging.
func CountSteps(steps []Step) int {
	total := 0
	for i := range steps {
		total++
		switch steps[i].Kind {
		case KindLoop:
			total += CountSteps(steps[i].Loop.Body)
		case KindConditional:
			total += CountSteps(steps[i].Conditional.Then)
			total += CountSteps(steps[i].Conditional.Else)
		}
	}
	return total
}
