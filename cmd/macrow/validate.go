package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Check a workflow file for format and value errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := workflow.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ valid"),
				mutedStyle.Render(fmt.Sprintf("(%d steps)", workflow.CountSteps(wf.Steps))))
			return nil
		},
	}

	return cmd
}
