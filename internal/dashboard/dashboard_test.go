package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-metrics/internal/buffer"
	"btc-metrics/internal/domain"
)

func isQuitCmd(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func sampleWindow() buffer.Window {
	return buffer.Window{
		{BlockHeight: 840000, BTCPrice: 63000, Timestamp: "2024-04-20T00:00:00Z"},
		{BlockHeight: 840001, BTCPrice: 63512.25, Timestamp: "2024-04-20T00:00:20Z"},
		{BlockHeight: 840002, BTCPrice: 62890.5, Timestamp: "2024-04-20T00:00:40Z"},
	}
}

func readyModel() Model {
	m := NewModel("http://localhost:8080/api/metrics", 10*time.Second)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestModel_Init(t *testing.T) {
	assert.Nil(t, NewModel("", 0).Init())
}

func TestModel_Quit(t *testing.T) {
	cases := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, msg := range cases {
		_, cmd := NewModel("", 0).Update(msg)
		assert.True(t, isQuitCmd(cmd), msg.String())
	}

	_, cmd := NewModel("", 0).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
}

func TestModel_View_BeforeSize(t *testing.T) {
	assert.Equal(t, "Initializing...", NewModel("", 0).View())
}

func TestModel_View_Waiting(t *testing.T) {
	view := readyModel().View()

	assert.Contains(t, view, WaitingMessage)
	assert.Contains(t, view, "http://localhost:8080/api/metrics")
	assert.NotContains(t, view, "Error:")
}

func TestModel_WindowMsg(t *testing.T) {
	fixed := time.Date(2024, 4, 20, 12, 30, 45, 0, time.Local)
	m := readyModel()
	m.now = func() time.Time { return fixed }

	updated, cmd := m.Update(WindowMsg{Window: sampleWindow()})
	require.Nil(t, cmd)
	m = updated.(Model)

	assert.Len(t, m.Window(), 3)
	assert.Empty(t, m.Err())

	view := m.View()
	assert.Contains(t, view, "BTC price (USD)")
	assert.Contains(t, view, "Block height")
	assert.Contains(t, view, "$63,512.25")
	assert.Contains(t, view, "840,002")
	assert.Contains(t, view, "Updated: 12:30:45")
	assert.NotContains(t, view, WaitingMessage)
}

func TestModel_ErrorKeepsWindow(t *testing.T) {
	m := readyModel()
	updated, _ := m.Update(WindowMsg{Window: sampleWindow()})
	updated, _ = updated.(Model).Update(WindowMsg{Window: sampleWindow(), Err: "failed to fetch metrics"})
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "Error: failed to fetch metrics")
	assert.Contains(t, view, "$63,512.25", "last good window stays visible")
}

func TestRenderPlain(t *testing.T) {
	t.Run("empty without error", func(t *testing.T) {
		out := RenderPlain(nil, "")
		assert.Contains(t, out, WaitingMessage)
	})

	t.Run("empty with error", func(t *testing.T) {
		out := RenderPlain(nil, "failed to fetch metrics")
		assert.Contains(t, out, "failed to fetch metrics")
		assert.NotContains(t, out, WaitingMessage)
	})

	t.Run("table is newest first", func(t *testing.T) {
		out := renderTable(sampleWindow())
		newest := strings.Index(out, "840,002")
		oldest := strings.Index(out, "840,000")
		require.NotEqual(t, -1, newest)
		require.NotEqual(t, -1, oldest)
		assert.Less(t, newest, oldest)
	})
}

func TestRenderHeights(t *testing.T) {
	out := renderHeights(sampleWindow())

	assert.Contains(t, out, "840,000 → 840,002")
	assert.Contains(t, out, "▁")
	assert.Contains(t, out, "█")
}

func TestShortTime(t *testing.T) {
	want := time.Date(2024, 4, 20, 0, 0, 20, 0, time.UTC).Local().Format("15:04:05")
	assert.Equal(t, want, shortTime("2024-04-20T00:00:20Z"))
	assert.Equal(t, "not-a-time", shortTime("not-a-time"))
}

func TestColumnChart(t *testing.T) {
	grid := columnChart([]float64{1, 2, 3}, 3, 2, 1, 3)
	require.Len(t, grid, 2)

	bottom := []rune(grid[1])
	top := []rune(grid[0])
	assert.Equal(t, '▁', bottom[0], "minimum still draws a bar")
	assert.Equal(t, ' ', top[0])
	assert.Equal(t, '█', bottom[2])
	assert.Equal(t, '█', top[2], "maximum fills every row")

	flat := columnChart([]float64{5, 5}, 4, 1, 5, 5)
	assert.Len(t, []rune(flat[0]), 4)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "63,512.25", formatPrice(63512.25))
	assert.Equal(t, "0.00", formatPrice(0))
	assert.Equal(t, "840,000", formatHeight(840000))
}

type recordingSender struct {
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.msgs = append(r.msgs, msg)
}

func TestProgramRenderer(t *testing.T) {
	s := &recordingSender{}
	r := NewProgramRenderer(s)

	r.Render(sampleWindow(), "")
	r.Render(nil, "failed to fetch metrics")

	require.Len(t, s.msgs, 2)
	assert.Equal(t, WindowMsg{Window: sampleWindow()}, s.msgs[0])
	assert.Equal(t, WindowMsg{Err: "failed to fetch metrics"}, s.msgs[1])
}

func TestWriterRenderer(t *testing.T) {
	var buf bytes.Buffer
	NewWriterRenderer(&buf).Render(buffer.Window{
		domain.MetricSample{BlockHeight: 1, BTCPrice: 2, Timestamp: "2024-04-20T00:00:00Z"},
	}, "")

	assert.Contains(t, buf.String(), "$2.00")
}
