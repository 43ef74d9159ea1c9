package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/macrow/internal/engine"
	"github.com/alexisbeaulieu97/macrow/internal/primitives"
	"github.com/alexisbeaulieu97/macrow/internal/recorder"
	"github.com/alexisbeaulieu97/macrow/internal/service"
)

func newRunCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Execute a workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], root)
		},
	}

	return cmd
}

func runRun(cmd *cobra.Command, path string, root *rootFlags) error {
	log, err := commandLogger(root)
	if err != nil {
		return err
	}

	eng := engine.New(primitives.NewDesktop(log), log)
	svc := service.New(eng, recorder.New(nil, log), log)
	defer svc.Close()

	if err := svc.Load(path); err != nil {
		return err
	}

	st := svc.State()
	fmt.Fprintln(cmd.OutOrStdout(),
		mutedStyle.Render(fmt.Sprintf("running %s (%d steps)", st.WorkflowPath, st.StepCount)))

	if err := svc.Run(); err != nil {
		return err
	}

	// Ctrl-C requests a graceful stop; the run ends at the next step
	// boundary instead of killing the process mid-input.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		if _, ok := <-sigs; ok {
			log.Warn("interrupt received; stopping after current step")
			svc.Stop()
		}
	}()

	res := <-svc.Results()
	printRunResult(cmd, res)
	if res.Status == engine.StatusFailed {
		return res.Err
	}
	return nil
}

func printRunResult(cmd *cobra.Command, res *engine.RunResult) {
	out := cmd.OutOrStdout()

	switch res.Status {
	case engine.StatusCompleted:
		fmt.Fprintln(out, successStyle.Render("✓ completed"),
			mutedStyle.Render(fmt.Sprintf("(%d steps in %s)", res.Steps, res.Duration.Round(time.Millisecond))))
	case engine.StatusCancelled:
		fmt.Fprintln(out, warningStyle.Render("⚠ cancelled"),
			mutedStyle.Render(fmt.Sprintf("at step %s after %d steps", res.Path, res.Steps)))
	case engine.StatusFailed:
		fmt.Fprintln(out, errorStyle.Render("✗ failed"),
			mutedStyle.Render(fmt.Sprintf("at step %s: %v", res.Path, res.Err)))
	}
}
