// Package service coordinates the engine and recorder behind a single
// worker goroutine so front-ends never touch either concurrently.
package service

import (
	"errors"

	"github.com/alexisbeaulieu97/macrow/internal/engine"
	"github.com/alexisbeaulieu97/macrow/internal/logger"
	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

var (
	// ErrNoWorkflow is returned by Run when nothing has been loaded.
	ErrNoWorkflow = errors.New("no workflow loaded")
	// ErrBusy is returned when a command conflicts with a run or a
	// recording already in progress.
	ErrBusy = errors.New("another operation is in progress")
	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("service is closed")
)

// Runner is the engine surface the service drives.
type Runner interface {
	Run(wf *workflow.Workflow) (*engine.RunResult, error)
	Stop()
}

// Capturer is the recorder surface the service drives.
type Capturer interface {
	Start() error
	Stop() *workflow.Workflow
	IsRecording() bool
}

// State is a point-in-time snapshot of what the service is doing.
type State struct {
	WorkflowPath string
	StepCount    int
	Running      bool
	Recording    bool
}

type command interface{ isCommand() }

type loadCmd struct {
	path  string
	reply chan error
}

type runCmd struct {
	reply chan error
}

type startRecordCmd struct {
	reply chan error
}

type stopRecordCmd struct {
	reply chan *workflow.Workflow
}

type stateCmd struct {
	reply chan State
}

func (loadCmd) isCommand()        {}
func (runCmd) isCommand()         {}
func (startRecordCmd) isCommand() {}
func (stopRecordCmd) isCommand()  {}
func (stateCmd) isCommand()       {}

// Service owns the loaded workflow and serializes engine and recorder use.
// All mutating commands funnel through one worker goroutine; Stop is the
// lone exception since the engine's stop flag is safe to set from anywhere.
type Service struct {
	runner   Runner
	capturer Capturer
	log      *logger.Logger

	cmds    chan command
	quit    chan struct{}
	done    chan struct{}
	results chan *engine.RunResult
}

// New starts the worker goroutine and returns the service.
func New(runner Runner, capturer Capturer, log *logger.Logger) *Service {
	s := &Service{
		runner:   runner,
		capturer: capturer,
		log:      log,
		cmds:     make(chan command),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		results:  make(chan *engine.RunResult, 1),
	}
	go s.worker()
	return s
}

// Load reads and validates a workflow file, replacing the current one.
func (s *Service) Load(path string) error {
	cmd := loadCmd{path: path, reply: make(chan error, 1)}
	return s.send(cmd, cmd.reply)
}

// Run starts executing the loaded workflow. It returns once the run has been
// started; the outcome is delivered on Results.
func (s *Service) Run() error {
	cmd := runCmd{reply: make(chan error, 1)}
	return s.send(cmd, cmd.reply)
}

// Stop requests cancellation of the in-flight run, if any.
func (s *Service) Stop() {
	s.runner.Stop()
}

// StartRecording begins capturing live input into a new workflow.
func (s *Service) StartRecording() error {
	cmd := startRecordCmd{reply: make(chan error, 1)}
	return s.send(cmd, cmd.reply)
}

// StopRecording ends the capture. The captured workflow becomes the loaded
// one and is returned.
func (s *Service) StopRecording() *workflow.Workflow {
	cmd := stopRecordCmd{reply: make(chan *workflow.Workflow, 1)}
	select {
	case s.cmds <- cmd:
		return <-cmd.reply
	case <-s.quit:
		return nil
	}
}

// State reports what the service is currently doing.
func (s *Service) State() State {
	cmd := stateCmd{reply: make(chan State, 1)}
	select {
	case s.cmds <- cmd:
		return <-cmd.reply
	case <-s.quit:
		return State{}
	}
}

// Results delivers the outcome of each run started via Run.
func (s *Service) Results() <-chan *engine.RunResult {
	return s.results
}

// Close shuts the worker down. A run in flight is stopped first.
func (s *Service) Close() {
	s.runner.Stop()
	close(s.quit)
	<-s.done
}

func (s *Service) send(cmd command, reply chan error) error {
	select {
	case s.cmds <- cmd:
		return <-reply
	case <-s.quit:
		return ErrClosed
	}
}

// runEnd carries a finished run back to the worker, which owns the
// in-flight flag.
type runEnd struct {
	res *engine.RunResult
	err error
}

func (s *Service) worker() {
	defer close(s.done)

	var (
		wf      *workflow.Workflow
		wfPath  string
		running bool
	)
	// Buffered so a run finishing after Close does not leak its goroutine.
	ended := make(chan runEnd, 1)

	for {
		select {
		case <-s.quit:
			return

		case end := <-ended:
			running = false
			if end.err != nil {
				s.log.Error(end.err, "run failed to start")
				continue
			}
			s.publish(end.res)

		case cmd := <-s.cmds:
			switch c := cmd.(type) {
			case loadCmd:
				if running || s.capturer.IsRecording() {
					c.reply <- ErrBusy
					continue
				}
				loaded, err := workflow.Load(c.path)
				if err != nil {
					c.reply <- err
					continue
				}
				wf = loaded
				wfPath = c.path
				s.log.WithFields(map[string]any{
					"path":  c.path,
					"steps": workflow.CountSteps(wf.Steps),
				}).Info("workflow loaded")
				c.reply <- nil

			case runCmd:
				switch {
				case wf == nil:
					c.reply <- ErrNoWorkflow
				case s.capturer.IsRecording():
					c.reply <- ErrBusy
				case running:
					c.reply <- engine.ErrAlreadyRunning
				default:
					// The flag flips before the reply, so a duplicate Run
					// arriving before the engine's own guard engages is
					// still rejected here.
					running = true
					target := wf
					go func() {
						res, err := s.runner.Run(target)
						ended <- runEnd{res: res, err: err}
					}()
					c.reply <- nil
				}

			case startRecordCmd:
				if running {
					c.reply <- ErrBusy
					continue
				}
				c.reply <- s.capturer.Start()

			case stopRecordCmd:
				captured := s.capturer.Stop()
				wf = captured
				wfPath = ""
				c.reply <- captured

			case stateCmd:
				st := State{
					WorkflowPath: wfPath,
					Running:      running,
					Recording:    s.capturer.IsRecording(),
				}
				if wf != nil {
					st.StepCount = workflow.CountSteps(wf.Steps)
				}
				c.reply <- st
			}
		}
	}
}

// publish delivers a result, displacing an unread older one so the channel
// never blocks the worker.
func (s *Service) publish(res *engine.RunResult) {
	select {
	case s.results <- res:
	default:
		select {
		case <-s.results:
		default:
		}
		s.results <- res
	}
}
