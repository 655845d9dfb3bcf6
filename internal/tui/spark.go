package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/air-quality/internal/logic"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// column is one cell of the sparkline. empty columns have no sample.
type column struct {
	sample logic.Sample
	filled bool
}

// columns maps the window onto width cells spanning [xmin, xmax] seconds.
// When several samples land in one cell the newest wins.
func columns(window []logic.Sample, width int, xmin, xmax float64) []column {
	if width <= 0 {
		return nil
	}
	cols := make([]column, width)
	span := xmax - xmin
	if span <= 0 {
		span = 1
	}
	for _, s := range window {
		x := (s.Elapsed.Seconds() - xmin) / span * float64(width)
		if x < 0 {
			continue
		}
		pos := int(x)
		if pos >= width {
			pos = width - 1
		}
		cols[pos] = column{sample: s, filled: true}
	}
	return cols
}

// level maps a reading onto one of the eight block heights.
func level(reading int) int {
	idx := (reading - logic.MinReading) * len(sparkBlocks) / (logic.MaxReading - logic.MinReading + 1)
	if idx < 0 {
		return 0
	}
	if idx >= len(sparkBlocks) {
		return len(sparkBlocks) - 1
	}
	return idx
}

// ReadingColor returns the color for a reading relative to the fan threshold.
func ReadingColor(reading, threshold int) lipgloss.Color {
	switch {
	case reading > threshold:
		return colorHigh
	case reading*100 >= threshold*85:
		return colorWarn
	default:
		return colorOk
	}
}

// RenderSparkline renders the window as color-coded blocks over the display
// range. Cells with no sample are drawn dim.
func RenderSparkline(window []logic.Sample, width int, xmin, xmax float64, threshold int) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))

	var sb strings.Builder
	for _, c := range columns(window, width, xmin, xmax) {
		if !c.filled {
			sb.WriteString(dim.Render("╌"))
			continue
		}
		style := lipgloss.NewStyle().Foreground(ReadingColor(c.sample.Reading, threshold))
		if c.sample.FanOn {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[level(c.sample.Reading)])))
	}
	return sb.String()
}
