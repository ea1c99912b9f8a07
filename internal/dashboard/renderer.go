package dashboard

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"btc-metrics/internal/buffer"
)

// Sender is the part of *tea.Program the renderer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramRenderer forwards every poll result to a running bubbletea program.
type ProgramRenderer struct {
	program Sender
}

func NewProgramRenderer(program Sender) *ProgramRenderer {
	return &ProgramRenderer{program: program}
}

func (r *ProgramRenderer) Render(window buffer.Window, errMsg string) {
	r.program.Send(WindowMsg{Window: window, Err: errMsg})
}

// WriterRenderer prints each poll result as plain text.
type WriterRenderer struct {
	w io.Writer
}

func NewWriterRenderer(w io.Writer) *WriterRenderer {
	return &WriterRenderer{w: w}
}

func (r *WriterRenderer) Render(window buffer.Window, errMsg string) {
	fmt.Fprintln(r.w, RenderPlain(window, errMsg))
}
