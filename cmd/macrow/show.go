package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <workflow-file>",
		Short: "Display the steps of a workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}

	return cmd
}

func runShow(cmd *cobra.Command, path string) error {
	wf, err := workflow.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", indexStyle.Render(path),
		mutedStyle.Render(fmt.Sprintf("(%d steps)", workflow.CountSteps(wf.Steps))))
	printSteps(out, wf.Steps, 0)
	return nil
}

func printSteps(out io.Writer, steps []workflow.Step, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, step := range steps {
		line := fmt.Sprintf("%s%s %s", indent, indexStyle.Render(fmt.Sprintf("%d.", i+1)), step.Summary())
		if step.Delay > 0 {
			line += " " + mutedStyle.Render(fmt.Sprintf("(after %.3gs)", step.Delay))
		}
		fmt.Fprintln(out, line)

		switch step.Kind {
		case workflow.KindLoop:
			printSteps(out, step.Loop.Body, depth+1)
		case workflow.KindConditional:
			fmt.Fprintf(out, "%s  %s\n", indent, mutedStyle.Render("then:"))
			printSteps(out, step.Conditional.Then, depth+2)
			if len(step.Conditional.Else) > 0 {
				fmt.Fprintf(out, "%s  %s\n", indent, mutedStyle.Render("else:"))
				printSteps(out, step.Conditional.Else, depth+2)
			}
		}
	}
}
