package web

import (
	"strconv"
	"strings"

	"github.com/sweeney/air-quality/internal/logic"
	"github.com/sweeney/air-quality/internal/status"
)

// Chart area in SVG user units.
const (
	chartWidth  = 560
	chartHeight = 220
	chartPad    = 30
)

// chart is the pre-computed geometry of the reading plot.
type chart struct {
	Width, Height float64
	Left, Right   float64
	Top, Bottom   float64
	Points        string // polyline points, "x,y x,y ..."
	FanOn         []point
	ThresholdY    float64
	XMin, XMax    string
}

type point struct {
	X, Y float64
}

func buildChart(snap status.Snapshot) chart {
	xmin, xmax := snap.DisplayRange()
	c := chart{
		Width:  chartWidth,
		Height: chartHeight,
		Left:   chartPad,
		Right:  chartWidth - chartPad,
		Top:    chartPad / 2,
		Bottom: chartHeight - chartPad,
		XMin:   strconv.FormatFloat(xmin, 'f', 1, 64),
		XMax:   strconv.FormatFloat(xmax, 'f', 1, 64),
	}
	c.ThresholdY = c.y(snap.Config.Threshold)

	pts := make([]string, 0, len(snap.Window))
	for _, s := range snap.Window {
		p := point{X: c.x(s.Elapsed.Seconds(), xmin, xmax), Y: c.y(s.Reading)}
		pts = append(pts, format(p.X)+","+format(p.Y))
		if s.FanOn {
			c.FanOn = append(c.FanOn, p)
		}
	}
	c.Points = strings.Join(pts, " ")
	return c
}

func (c chart) x(sec, xmin, xmax float64) float64 {
	if xmax <= xmin {
		return c.Left
	}
	return c.Left + (sec-xmin)/(xmax-xmin)*(c.Right-c.Left)
}

func (c chart) y(reading int) float64 {
	frac := float64(reading-logic.MinReading) / float64(logic.MaxReading-logic.MinReading)
	return c.Bottom - frac*(c.Bottom-c.Top)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
