package dashboard

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"btc-metrics/internal/buffer"
)

const (
	chartRows     = 6
	minChartWidth = 20
	// WaitingMessage is shown until the first sample arrives.
	WaitingMessage = "Waiting for data..."
)

var (
	colorAccent = lipgloss.Color("#F7931A")
	colorMuted  = lipgloss.Color("#808080")
	colorError  = lipgloss.Color("#FF5F5F")
	colorBlue   = lipgloss.Color("#5FAFFF")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	styleFooter = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	styleLabel  = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(colorMuted)
	styleError  = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	stylePrice  = lipgloss.NewStyle().Foreground(colorAccent)
	styleHeight = lipgloss.NewStyle().Foreground(colorBlue)
	styleBody   = lipgloss.NewStyle().Padding(1, 1)

	blocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	printer = message.NewPrinter(language.English)
)

// RenderPlain renders the window and error without the interactive frame.
// It is used for one-shot output.
func RenderPlain(window buffer.Window, errMsg string) string {
	return renderBody(window, errMsg, 0)
}

func renderBody(window buffer.Window, errMsg string, width int) string {
	var sections []string

	if errMsg != "" {
		sections = append(sections, styleError.Render("Error: "+errMsg))
	}

	if len(window) == 0 {
		if errMsg == "" {
			sections = append(sections, styleMuted.Render(WaitingMessage))
		}
		return styleBody.Render(strings.Join(sections, "\n"))
	}

	chartWidth := len(window) * 3
	if width > 0 {
		chartWidth = max(minChartWidth, width-16)
	}

	sections = append(sections,
		renderPriceChart(window, chartWidth),
		renderHeights(window),
		renderTable(window),
	)

	return styleBody.Render(strings.Join(sections, "\n\n"))
}

func renderPriceChart(window buffer.Window, width int) string {
	prices := window.Prices()
	lo, hi := bounds(prices)

	var b strings.Builder
	b.WriteString(styleLabel.Render("BTC price (USD)"))
	b.WriteString("\n")

	grid := columnChart(prices, width, chartRows, lo, hi)
	for i, row := range grid {
		axis := strings.Repeat(" ", 12)
		switch i {
		case 0:
			axis = padLeft(formatPrice(hi), 12)
		case len(grid) - 1:
			axis = padLeft(formatPrice(lo), 12)
		}
		b.WriteString(styleMuted.Render(axis + " │"))
		b.WriteString(stylePrice.Render(row))
		b.WriteString("\n")
	}

	ts := window.Timestamps()
	first, last := shortTime(ts[0]), shortTime(ts[len(ts)-1])
	gap := max(1, width-len(first)-len(last))
	b.WriteString(styleMuted.Render(strings.Repeat(" ", 14) + first + strings.Repeat(" ", gap) + last))

	return b.String()
}

func renderHeights(window buffer.Window) string {
	heights := window.Heights()
	lo, hi := bounds(heights)

	line := columnChart(heights, len(heights), 1, lo, hi)[0]
	return styleLabel.Render("Block height ") +
		styleHeight.Render(line) + " " +
		styleMuted.Render(formatHeight(int64(lo))+" → "+formatHeight(int64(hi)))
}

func renderTable(window buffer.Window) string {
	rows := make([][]string, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		s := window[i]
		rows = append(rows, []string{shortTime(s.Timestamp), formatHeight(s.BlockHeight), "$" + formatPrice(s.BTCPrice)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleMuted).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return st.Bold(true).Foreground(colorAccent)
			}
			if col > 0 {
				st = st.Align(lipgloss.Right)
			}
			return st
		}).
		Headers("Time", "Block height", "BTC price").
		Rows(rows...)

	return t.String()
}

// columnChart resamples values onto width columns and draws them as bars
// rows high, using eighth blocks for the top cell of each bar.
func columnChart(values []float64, width, rows int, lo, hi float64) []string {
	if width < 1 {
		width = 1
	}
	levels := rows * (len(blocks) - 1)

	heights := make([]int, width)
	for x := range heights {
		v := values[x*len(values)/width]
		n := 0.5
		if hi > lo {
			n = (v - lo) / (hi - lo)
		}
		n = math.Max(0, math.Min(1, n))
		heights[x] = 1 + int(math.Round(n*float64(levels-1)))
	}

	grid := make([]string, rows)
	for r := 0; r < rows; r++ {
		base := (rows - 1 - r) * (len(blocks) - 1)
		line := make([]rune, width)
		for x, h := range heights {
			fill := h - base
			switch {
			case fill <= 0:
				line[x] = blocks[0]
			case fill >= len(blocks)-1:
				line[x] = blocks[len(blocks)-1]
			default:
				line[x] = blocks[fill]
			}
		}
		grid[r] = string(line)
	}
	return grid
}

func bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// shortTime shows the local clock time of an RFC3339 timestamp. Anything
// else is shown as is.
func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}

func formatPrice(p float64) string {
	return printer.Sprintf("%.2f", p)
}

func formatHeight(h int64) string {
	return printer.Sprintf("%d", h)
}

func padLeft(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}
