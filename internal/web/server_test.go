package web

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/air-quality/internal/logic"
	"github.com/sweeney/air-quality/internal/status"
)

type fakeConn struct{}

func (fakeConn) IsConnected() bool { return true }

func testConfig() status.Config {
	return status.Config{
		IntervalMs: 500,
		DebounceMs: 300,
		Threshold:  300,
		MaxPoints:  300,
		LogFile:    "air_quality_log.csv",
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":8080",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, testConfig())
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func emitSamples(tr *status.Tracker, readings ...int) {
	var window []logic.Sample
	for i, r := range readings {
		s := logic.Sample{
			Elapsed: time.Duration(i+1) * 500 * time.Millisecond,
			Reading: r,
			FanOn:   r > 300,
		}
		window = append(window, s)
		tr.Emit(logic.Frame{Mode: logic.ModeRunning, Toggled: i == 0, Sample: &s, Window: window})
	}
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	emitSamples(tr, 100, 350, 200)
	tr.WatchConnection(fakeConn{})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Mode != "RUNNING" {
		t.Errorf("Mode: got %q, want RUNNING", sj.Status.Mode)
	}
	if sj.Status.LastReading == nil || *sj.Status.LastReading != 200 {
		t.Errorf("LastReading: got %v, want 200", sj.Status.LastReading)
	}
	if sj.Status.FanOn {
		t.Error("expected FanOn=false after a reading below threshold")
	}
	if sj.Status.Samples != 3 || sj.Status.Toggles != 1 {
		t.Errorf("counts: samples=%d toggles=%d", sj.Status.Samples, sj.Status.Toggles)
	}
	if len(sj.Status.Window) != 3 {
		t.Errorf("Window: got %d points, want 3", len(sj.Status.Window))
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Threshold != 300 {
		t.Errorf("Config.Threshold: got %d", sj.Status.Config.Threshold)
	}
}

func TestJSONBeforeFirstSample(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	json.NewDecoder(resp.Body).Decode(&sj)

	if sj.Status.Mode != "PAUSED" {
		t.Errorf("Mode: got %q, want PAUSED", sj.Status.Mode)
	}
	if sj.Status.LastReading != nil {
		t.Errorf("LastReading: got %v, want nil", *sj.Status.LastReading)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	emitSamples(tr, 100, 350)

	resp, body := getBody(t, ts.URL+"/")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{`<polyline id="readings"`, `class="threshold"`, `id="mode" class="running">RUNNING`, `<td id="reading">350</td>`, `id="fan" class="on">ON`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLShowsHeartbeat(t *testing.T) {
	ts, _ := newTestServer(t)
	_, body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, `<td id="heartbeat">disabled</td>`) {
		t.Error("expected heartbeat shown as disabled")
	}

	cfg := testConfig()
	cfg.HeartbeatMs = 15 * 60 * 1000
	srv := New(":0", status.NewTracker(time.Now(), cfg))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `<td id="heartbeat">15m0s</td>`) {
		t.Error("expected 15m0s heartbeat")
	}
}

func TestHTMLShowsFault(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Emit(logic.Frame{Mode: logic.ModeRunning, Err: errors.New("read sensor: <spi> fault")})

	_, body := getBody(t, ts.URL+"/")

	if !strings.Contains(body, "read sensor: &lt;spi&gt; fault") {
		t.Error("expected escaped fault text in page")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestBuildChart(t *testing.T) {
	snap := status.Snapshot{
		Config: status.Config{IntervalMs: 1000, MaxPoints: 10, Threshold: 1023},
		Window: []logic.Sample{
			{Elapsed: 0, Reading: 0},
			{Elapsed: 10 * time.Second, Reading: 1023, FanOn: true},
		},
	}

	c := buildChart(snap)

	if c.Points != "30.0,190.0 530.0,15.0" {
		t.Errorf("Points: got %q", c.Points)
	}
	if c.ThresholdY != c.Top {
		t.Errorf("ThresholdY: got %v, want %v", c.ThresholdY, c.Top)
	}
	if len(c.FanOn) != 1 || c.FanOn[0].X != 530 {
		t.Errorf("FanOn: got %+v", c.FanOn)
	}
	if c.XMin != "0.0" || c.XMax != "10.0" {
		t.Errorf("range: got %s..%s", c.XMin, c.XMax)
	}
}

func TestBuildChartScrolls(t *testing.T) {
	snap := status.Snapshot{
		Config: status.Config{IntervalMs: 500, MaxPoints: 4},
		Window: []logic.Sample{
			{Elapsed: 9 * time.Second},
			{Elapsed: 10 * time.Second},
		},
	}

	c := buildChart(snap)

	if c.XMin != "8.0" || c.XMax != "10.0" {
		t.Errorf("range: got %s..%s, want 8.0..10.0", c.XMin, c.XMax)
	}
	if !strings.HasPrefix(c.Points, "280.0,") {
		t.Errorf("first point should sit mid-chart, got %q", c.Points)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if sj1.Status.Samples != 0 {
		t.Error("expected no samples initially")
	}

	emitSamples(tr, 900)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if sj2.Status.Samples != 1 {
		t.Errorf("Samples: got %d, want 1", sj2.Status.Samples)
	}
	if !sj2.Status.FanOn {
		t.Error("expected fan on after a high reading")
	}
}

func TestServeAndClose(t *testing.T) {
	tr := status.NewTracker(time.Now(), testConfig())
	emitSamples(tr, 120)
	srv := New("127.0.0.1:0", tr)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, body := getBody(t, "http://"+ln.Addr().String()+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control: got %q, want no-store", cc)
	}
	if !strings.Contains(body, `"last_reading": 120`) {
		t.Errorf("body missing last reading: %s", body)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve returned %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
