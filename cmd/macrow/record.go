package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/macrow/internal/engine"
	"github.com/alexisbeaulieu97/macrow/internal/primitives"
	"github.com/alexisbeaulieu97/macrow/internal/recorder"
	"github.com/alexisbeaulieu97/macrow/internal/service"
	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

const presetsDir = "workflow_presets"

type recordOptions struct {
	outputPath string
}

func newRecordCmd(root *rootFlags) *cobra.Command {
	opts := recordOptions{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture live mouse and keyboard input into a workflow file",
		Long: "Record captures global mouse and keyboard input and writes the " +
			"coalesced steps to a workflow file. Press Escape, hold the right " +
			"button for two seconds, or hit Ctrl-C to stop.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, opts, root)
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Destination workflow file (default: workflow_presets/recorded-<timestamp>.yaml)")

	return cmd
}

func runRecord(cmd *cobra.Command, opts recordOptions, root *rootFlags) error {
	log, err := commandLogger(root)
	if err != nil {
		return err
	}

	outputPath := opts.outputPath
	if outputPath == "" {
		name := fmt.Sprintf("recorded-%s.yaml", time.Now().Format("20060102-150405"))
		outputPath = filepath.Join(presetsDir, name)
	}

	src := recorder.NewHook(log)
	rec := recorder.New(src, log)
	svc := service.New(engine.New(primitives.NewDesktop(log), log), rec, log)
	defer svc.Close()

	if err := svc.StartRecording(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("recording… press Escape, hold right button 2s, or Ctrl-C to stop"))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
	case <-rec.Done():
	}

	wf := svc.StopRecording()
	if wf == nil || len(wf.Steps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("nothing captured; no file written"))
		return nil
	}

	if err := workflow.Save(outputPath, wf); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ saved"),
		mutedStyle.Render(fmt.Sprintf("%d steps to %s", len(wf.Steps), outputPath)))
	return nil
}
