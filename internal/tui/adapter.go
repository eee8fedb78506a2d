package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/backlog/internal/orchestrator"
)

// Adapter bridges the orchestrator's progress callback and the TUI program.
type Adapter struct {
	program *tea.Program
	stop    atomic.Bool
	exited  chan struct{}
	err     error
}

// NewAdapter creates the publish view for planned items in project.
func NewAdapter(project string, planned int, opts ...tea.ProgramOption) *Adapter {
	a := &Adapter{exited: make(chan struct{})}
	model := NewModel(project, planned, a.RequestStop)
	a.program = tea.NewProgram(model, opts...)
	return a
}

// Start runs the program in the background. Cancelling ctx also requests a
// stop, so a signal behaves like pressing q.
func (a *Adapter) Start(ctx context.Context) {
	go func() {
		_, a.err = a.program.Run()
		close(a.exited)
	}()
	go func() {
		select {
		case <-ctx.Done():
			a.RequestStop()
		case <-a.exited:
		}
	}()
}

// RequestStop asks the run to halt before the next item.
func (a *Adapter) RequestStop() {
	a.stop.Store(true)
}

// Stopping reports whether a stop was requested.
func (a *Adapter) Stopping() bool {
	return a.stop.Load()
}

// Progress is an orchestrator.ProgressFunc.
func (a *Adapter) Progress(message string, fraction float64) error {
	a.program.Send(StepMsg{Message: message, Fraction: fraction})
	if a.stop.Load() {
		return orchestrator.ErrStop
	}
	return nil
}

// Finish shows the outcome and waits for the program to exit.
func (a *Adapter) Finish(created int, runErr error) error {
	a.program.Send(DoneMsg{Created: created, Err: runErr})
	<-a.exited
	return a.err
}
