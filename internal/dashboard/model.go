// Package dashboard renders the sample window in the terminal.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"btc-metrics/internal/buffer"
)

// WindowMsg carries the result of one poll cycle into the program.
type WindowMsg struct {
	Window buffer.Window
	Err    string
}

// Model is the bubbletea model of the dashboard. It only displays what the
// poller sends; it never fetches on its own.
type Model struct {
	window      buffer.Window
	errMsg      string
	lastUpdated time.Time
	source      string
	interval    time.Duration
	width       int
	height      int
	ready       bool
	now         func() time.Time
}

func NewModel(source string, interval time.Duration) Model {
	return Model{
		source:   source,
		interval: interval,
		now:      time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, tea.ClearScreen
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case WindowMsg:
		m.window = msg.Window
		m.errMsg = msg.Err
		m.lastUpdated = m.now()
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	body := renderBody(m.window, m.errMsg, m.width)
	header := styleHeader.Width(m.width).Render(m.title())
	footer := styleFooter.Width(m.width).Render(m.footer())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) title() string {
	t := "BTC metrics"
	if m.source != "" {
		t += "  ·  " + m.source
	}
	if m.interval > 0 {
		t += "  ·  every " + m.interval.String()
	}
	return t
}

func (m Model) footer() string {
	f := keys.help()
	if !m.lastUpdated.IsZero() {
		f += "  Updated: " + m.lastUpdated.Format("15:04:05")
	}
	return f
}

// Window returns the samples currently on screen.
func (m Model) Window() buffer.Window {
	return m.window
}

// Err returns the error currently on screen, if any.
func (m Model) Err() string {
	return m.errMsg
}
