package web

import (
	"html/template"
	"io"
	"time"

	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"seconds": func(d time.Duration) string { return d.Truncate(time.Second).String() },
	"pct":     func(reading int) int { return reading * 100 / 1023 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Air Quality</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.running { color: green; font-weight: bold; }
.paused { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.fault { color: red; }
svg { border: 1px solid #ddd; width: 100%; height: auto; }
</style>
</head>
<body>
<h1>Air Quality</h1>

<svg id="chart" viewBox="0 0 {{.Chart.Width}} {{.Chart.Height}}">
<line class="threshold" x1="{{.Chart.Left}}" x2="{{.Chart.Right}}" y1="{{.Chart.ThresholdY}}" y2="{{.Chart.ThresholdY}}" stroke="red" stroke-dasharray="4 4"/>
<polyline id="readings" points="{{.Chart.Points}}" fill="none" stroke="steelblue" stroke-width="1.5"/>
{{range .Chart.FanOn}}<circle cx="{{.X}}" cy="{{.Y}}" r="2" fill="red"/>
{{end}}<text x="{{.Chart.Left}}" y="{{.Chart.Height}}" font-size="10" dy="-10">{{.Chart.XMin}}s</text>
<text x="{{.Chart.Right}}" y="{{.Chart.Height}}" font-size="10" dy="-10" text-anchor="end">{{.Chart.XMax}}s</text>
</svg>

<h2>State</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{if eq .Mode "RUNNING"}}running{{else}}paused{{end}}">{{.Mode}}</td></tr>
<tr><th>Reading</th><td id="reading">{{if .Last}}{{.Last.Reading}}{{else}}-{{end}}</td></tr>
{{if .Last}}<tr><th>Full scale</th><td>{{pct .Last.Reading}}%</td></tr>{{end}}
<tr><th>Fan</th><td id="fan" class="{{if .FanOn}}on{{else}}off{{end}}">{{if .FanOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.Threshold}}</td></tr>
{{if .LastError}}<tr><th>Last fault</th><td class="fault">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Samples</th><td>{{.Samples}}</td></tr>
<tr><th>Toggles</th><td>{{.Toggles}}</td></tr>
<tr><th>Faults</th><td>{{.Faults}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{seconds .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td id="heartbeat">{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{seconds .Config.Heartbeat}}{{end}}</td></tr>
<tr><th>Points</th><td>{{.Config.MaxPoints}}</td></tr>
<tr><th>Log</th><td>{{.Config.LogFile}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The template needs Uptime as a field, not a method.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Chart  chart
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Chart:    buildChart(snap),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		logger.Warn().Err(err).Msg("render status page")
	}
}
