package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sweeney/air-quality/internal/logic"
)

// Program runs the chart and receives frames from the control loop.
type Program struct {
	program *tea.Program
	done    chan struct{}
	started atomic.Bool
	err     error // set before done is closed
}

// NewProgram prepares the chart. Nothing is drawn until Start.
func NewProgram(m Model, opts ...tea.ProgramOption) *Program {
	return &Program{
		program: tea.NewProgram(m, opts...),
		done:    make(chan struct{}),
	}
}

// Start draws the chart in the background until the window is closed or
// Close is called. It must be called at most once.
func (p *Program) Start() {
	p.started.Store(true)
	go func() {
		defer close(p.done)
		_, p.err = p.program.Run()
	}()
}

// Done is closed once the chart has exited.
func (p *Program) Done() <-chan struct{} {
	return p.done
}

// Emit hands a frame to the chart. It blocks until the chart is running.
func (p *Program) Emit(f logic.Frame) {
	select {
	case <-p.done:
	default:
		p.program.Send(frameMsg(f))
	}
}

// Close stops the chart, waits for the terminal to be restored and
// returns the chart's exit error.
func (p *Program) Close() error {
	if !p.started.Load() {
		return nil
	}
	p.program.Quit()
	<-p.done
	return p.err
}
