// Package tui renders the live reading chart in the terminal using
// BubbleTea. Closing the window ends the monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/air-quality/internal/logic"
)

// ── Messages ─────────────────────────────────────────────────────────

type frameMsg logic.Frame

// ── Model ────────────────────────────────────────────────────────────

// Settings are the fixed parameters the view needs.
type Settings struct {
	Threshold int
	MaxPoints int
	Interval  time.Duration
}

// Model is the BubbleTea model for the live chart.
type Model struct {
	settings  Settings
	mode      logic.Mode
	fanOn     bool
	last      *logic.Sample
	lastTime  time.Time
	window    []logic.Sample
	err       error
	errTime   time.Time
	samples   int
	width     int
	height    int
	startTime time.Time
}

// New creates the initial model.
func New(settings Settings, start time.Time) Model {
	return Model{
		settings:  settings,
		mode:      logic.ModePaused,
		startTime: start,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case frameMsg:
		m.mode = msg.Mode
		m.window = msg.Window
		m.fanOn = msg.Sample != nil && msg.Sample.FanOn
		if msg.Sample != nil {
			s := *msg.Sample
			m.last = &s
			m.lastTime = msg.Time
			m.samples++
		}
		if msg.Err != nil {
			m.err = msg.Err
			m.errTime = msg.Time
		}
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorHigh     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("208")
)

// ── View ─────────────────────────────────────────────────────────────

// minWidth fits the chart header and footer on one line each.
const minWidth = 64

func (m Model) View() string {
	width := m.width - 2
	if width < minWidth {
		width = minWidth
	}

	sections := []string{m.renderTitleBar(width)}
	if m.err != nil {
		sections = append(sections, m.renderFault(width))
	}
	sections = append(sections, m.renderChart(width), m.renderFooter(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderFault shows the last fault on a single line, cut with an ellipsis
// when it does not fit.
func (m Model) renderFault(width int) string {
	msg := fmt.Sprintf("FAULT %s: %v", m.errTime.Format("15:04:05"), m.err)
	return lipgloss.NewStyle().
		Foreground(colorHigh).
		Bold(true).
		Width(width).
		Padding(0, 1).
		Render(truncate(msg, width-2))
}

func truncate(s string, n int) string {
	if n < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("AIR QUALITY")

	modeColor := colorOk
	if m.mode != logic.ModeRunning {
		modeColor = colorPaused
	}
	parts := []string{
		lipgloss.NewStyle().Foreground(modeColor).Bold(true).Render(string(m.mode)),
		lipgloss.NewStyle().Foreground(colorDim).Render("up " + fmtDuration(time.Since(m.startTime))),
	}
	if !m.lastTime.IsZero() {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorDim).Render(m.lastTime.Format("15:04:05")))
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(parts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderChart(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	labelS := lipgloss.NewStyle().Foreground(colorLabel)

	reading := dimS.Render("  -")
	if m.last != nil {
		reading = lipgloss.NewStyle().
			Foreground(ReadingColor(m.last.Reading, m.settings.Threshold)).
			Bold(true).
			Render(fmt.Sprintf("%4d", m.last.Reading))
	}
	fan := dimS.Render("off")
	if m.fanOn {
		fan = lipgloss.NewStyle().Foreground(colorHigh).Bold(true).Render("ON")
	}

	header := labelS.Render("reading ") + reading +
		labelS.Render("   fan ") + fan +
		dimS.Render(fmt.Sprintf("   threshold %d   samples %d", m.settings.Threshold, m.samples))

	chartWidth := width - 6
	xmin, xmax := logic.DisplayRange(m.window, m.settings.MaxPoints, m.settings.Interval)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	spark := frameL + RenderSparkline(m.window, chartWidth, xmin, xmax, m.settings.Threshold) + frameR

	left := fmt.Sprintf("%.1fs", xmin)
	right := fmt.Sprintf("%.1fs", xmax)
	gap := chartWidth + 2 - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	axis := dimS.Render(left + strings.Repeat(" ", gap) + right)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, spark, axis))
}

func (m Model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	highS := lipgloss.NewStyle().Foreground(colorHigh).Render("██")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" near ") +
		highS + dimS.Render(" fan ")

	keys := dimS.Render("button") + lipgloss.NewStyle().Foreground(colorLabel).Render(":run/pause") +
		dimS.Render("  q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
