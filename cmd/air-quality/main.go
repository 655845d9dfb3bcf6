// Command air-quality samples a gas sensor, drives a ventilation fan above a
// threshold and logs every sample. A push button starts and pauses sampling.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/sweeney/air-quality/internal/adc"
	"github.com/sweeney/air-quality/internal/archive"
	"github.com/sweeney/air-quality/internal/config"
	"github.com/sweeney/air-quality/internal/control"
	"github.com/sweeney/air-quality/internal/csvlog"
	"github.com/sweeney/air-quality/internal/gpio"
	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/logic"
	"github.com/sweeney/air-quality/internal/mqtt"
	"github.com/sweeney/air-quality/internal/status"
	"github.com/sweeney/air-quality/internal/tui"
	"github.com/sweeney/air-quality/internal/web"
)

// Shutdown reasons reported in the SHUTDOWN event.
const (
	reasonSIGINT       = "SIGINT"
	reasonSIGTERM      = "SIGTERM"
	reasonWindowClosed = "WINDOW_CLOSED"
	reasonFault        = "FAULT"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "air-quality: %v\n", err)
		os.Exit(2)
	}

	if cfg.ClearLog {
		if err := csvlog.Clear(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "air-quality: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("cleared %s\n", cfg.LogFile)
		return
	}

	useTUI := wantTUI(cfg.UI, isatty.IsTerminal(os.Stdout.Fd()))
	out, closeOut, err := logOutput(cfg.LogOutput, useTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "air-quality: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, out, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "air-quality: init logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, useTUI)
	closeOut()
	if err != nil {
		fmt.Fprintf(os.Stderr, "air-quality: %v\n", err)
		os.Exit(1)
	}
}

// wantTUI resolves the ui setting. auto shows the chart only on a terminal.
func wantTUI(mode string, terminal bool) bool {
	switch mode {
	case config.UITUI:
		return true
	case config.UINone:
		return false
	default:
		return terminal
	}
}

// logOutput picks where diagnostics go. The chart owns stdout, so with the
// TUI logs go to path or nowhere.
func logOutput(path string, useTUI bool) (io.Writer, func(), error) {
	if path == "" {
		if useTUI {
			return io.Discard, func() {}, nil
		}
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// resources are the handles acquired for one run.
type resources struct {
	hw        *gpio.Real
	sensor    *adc.MCP3008
	log       *csvlog.Logger
	archive   *archive.Archive
	publisher *mqtt.RealPublisher
	tracker   *status.Tracker
	server    *web.Server
	chart     *tui.Program
}

// closers returns the release order: outer surfaces first, hardware last.
func (r *resources) closers() []io.Closer {
	var cs []io.Closer
	if r.chart != nil {
		cs = append(cs, r.chart)
	}
	if r.server != nil {
		cs = append(cs, r.server)
	}
	if r.publisher != nil {
		cs = append(cs, r.publisher)
	}
	if r.archive != nil {
		cs = append(cs, r.archive)
	}
	if r.log != nil {
		cs = append(cs, r.log)
	}
	if r.sensor != nil {
		cs = append(cs, r.sensor)
	}
	if r.hw != nil {
		cs = append(cs, r.hw)
	}
	return cs
}

func (r *resources) release() {
	for _, c := range r.closers() {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("release failed")
		}
	}
}

// errInterrupted ends startup when a signal arrives before the loop runs.
var errInterrupted = errors.New("interrupted during startup")

// pending reports a signal that has already arrived on sig, without waiting.
func pending(sig <-chan os.Signal) (os.Signal, bool) {
	select {
	case s := <-sig:
		return s, true
	default:
		return nil, false
	}
}

// acquire opens every handle. A signal seen between steps stops it with
// errInterrupted. On any failure everything already opened is released
// before returning.
func acquire(cfg *config.Config, sig <-chan os.Signal) (*resources, error) {
	res := &resources{}
	steps := []struct {
		name string
		open func() error
	}{
		{"init gpio", func() (err error) {
			res.hw, err = gpio.NewReal(cfg.GPIOChip, cfg.ButtonPin, cfg.FanPin)
			return err
		}},
		{"init adc", func() (err error) {
			res.sensor, err = adc.NewMCP3008(uint8(cfg.SPIChipSelect), cfg.SPISpeed)
			return err
		}},
		{"open sample log", func() (err error) {
			res.log, err = csvlog.Open(cfg.LogFile)
			return err
		}},
		{"open archive", func() (err error) {
			if cfg.Archive != "" {
				res.archive, err = archive.Open(cfg.Archive)
			}
			return err
		}},
		{"init mqtt", func() (err error) {
			if cfg.Broker != "" {
				res.publisher, err = mqtt.NewRealPublisher(cfg.Broker, cfg.MQTTTopic)
			}
			return err
		}},
	}

	for _, step := range steps {
		if s, ok := pending(sig); ok {
			res.release()
			return nil, fmt.Errorf("%w: %s before %s", errInterrupted, signalName(s), step.name)
		}
		if err := step.open(); err != nil {
			res.release()
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	if s, ok := pending(sig); ok {
		res.release()
		return nil, fmt.Errorf("%w: %s", errInterrupted, signalName(s))
	}
	return res, nil
}

func run(cfg *config.Config, useTUI bool) error {
	start := time.Now()

	// Signals are caught from here on so that a stop during startup still
	// releases what was acquired.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	res, err := acquire(cfg, sigCh)
	if errors.Is(err, errInterrupted) {
		logger.Info().Err(err).Msg("stopped during startup")
		return nil
	}
	if err != nil {
		return err
	}

	level, err := res.hw.Read()
	if err != nil {
		res.release()
		return fmt.Errorf("read button: %w", err)
	}

	deps := control.Deps{
		Button: res.hw,
		Fan:    res.hw,
		Sensor: res.sensor,
		Log:    res.log,
	}
	if res.archive != nil {
		deps.Recorder = res.archive
	}

	var publisher mqtt.Publisher
	if res.publisher != nil {
		publisher = res.publisher
		deps.Sinks = append(deps.Sinks, mqtt.NewSink(res.publisher))
	}

	// The tracker feeds both the status page and the snapshot carried by
	// MQTT lifecycle events.
	res.tracker = status.NewTracker(start, status.Config{
		IntervalMs:  cfg.Interval.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Threshold:   cfg.Threshold,
		MaxPoints:   cfg.MaxPoints,
		Channel:     cfg.ADCChannel,
		LogFile:     cfg.LogFile,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	})
	if res.publisher != nil {
		res.tracker.WatchConnection(res.publisher)
	}
	deps.Sinks = append(deps.Sinks, res.tracker)

	if cfg.HTTPAddr != "" {
		res.server = web.New(cfg.HTTPAddr, res.tracker)
		go func() {
			if err := res.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	var done <-chan struct{}
	if useTUI {
		res.chart = tui.NewProgram(tui.New(tui.Settings{
			Threshold: cfg.Threshold,
			MaxPoints: cfg.MaxPoints,
			Interval:  cfg.Interval,
		}, start), tea.WithAltScreen(), tea.WithoutSignalHandler())
		res.chart.Start()
		done = res.chart.Done()
		deps.Sinks = append(deps.Sinks, res.chart)
	}

	deps.Closers = res.closers()
	ctrl := control.New(control.Config{
		Channel:   cfg.ADCChannel,
		Threshold: cfg.Threshold,
		Debounce:  cfg.Debounce,
		MaxPoints: cfg.MaxPoints,
		MaxFaults: cfg.MaxFaults,
	}, deps, level, start)
	defer func() {
		logger.Info().Msg("cleaning up")
		if err := ctrl.Close(); err != nil {
			logger.Warn().Err(err).Msg("cleanup incomplete")
		}
		logger.Info().Msg("done")
	}()

	life := &lifecycle{
		pub:     publisher,
		tracker: res.tracker,
		beat:    logic.NewHeartbeat(cfg.Heartbeat, start),
	}
	life.publish(mqtt.EventStartup, "")

	logger.Info().
		Int("threshold", cfg.Threshold).
		Dur("interval", cfg.Interval).
		Dur("heartbeat", cfg.Heartbeat).
		Int("channel", cfg.ADCChannel).
		Str("log", cfg.LogFile).
		Msg("ready: press the button to start or pause sampling")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	reason, loopErr := runLoop(ctrl, life, time.Now, ticker.C, sigCh, done)

	life.publish(mqtt.EventShutdown, reason)
	return loopErr
}

// lifecycle publishes STARTUP, SHUTDOWN and periodic HEARTBEAT events, each
// carrying the tracker's status snapshot. A nil publisher disables it.
type lifecycle struct {
	pub     mqtt.Publisher
	tracker *status.Tracker
	beat    *logic.Heartbeat
}

func (l *lifecycle) publish(event, reason string) {
	if l == nil {
		return
	}
	l.send(l.tracker.Snapshot(), event, reason)
}

// heartbeat publishes a HEARTBEAT if one is due at now.
func (l *lifecycle) heartbeat(now time.Time) {
	if l == nil || !l.beat.Due(now) {
		return
	}
	snap := l.tracker.Snapshot()
	logger.Info().
		Str("mode", string(snap.Mode)).
		Dur("uptime", snap.Uptime().Truncate(time.Second)).
		Int("samples", snap.Samples).
		Int("faults", snap.Faults).
		Msg("heartbeat")
	l.send(snap, mqtt.EventHeartbeat, "")
}

func (l *lifecycle) send(snap status.Snapshot, event, reason string) {
	if l.pub == nil {
		return
	}
	publishSystem(l.pub, mqtt.SystemEvent{
		Timestamp: snap.Now,
		Event:     event,
		Reason:    reason,
		Mode:      snap.Mode,
		Threshold: snap.Config.Threshold,
		Retained:  event != mqtt.EventHeartbeat,
		Status:    status.FormatStatusEvent(snap, event, reason),
	})
}

func publishSystem(pub mqtt.Publisher, ev mqtt.SystemEvent) {
	if pub == nil {
		return
	}
	if err := pub.PublishSystem(ev); err != nil {
		logger.Warn().Err(err).Str("event", ev.Event).Msg("failed to publish system event")
		return
	}
	logger.Debug().Str("event", ev.Event).Msg("published system event")
}

// runLoop ticks ctrl until a signal arrives, done is closed or a fatal fault
// occurs. It returns the shutdown reason.
func runLoop(ctrl *control.Controller, life *lifecycle, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, done <-chan struct{}) (string, error) {
	for {
		select {
		case s := <-sig:
			logger.Info().Str("signal", s.String()).Msg("received signal, shutting down")
			return signalName(s), nil

		case <-done:
			logger.Info().Msg("chart closed, shutting down")
			return reasonWindowClosed, nil

		case <-tick:
			t := now()
			err := ctrl.Tick(t)
			if errors.Is(err, control.ErrLogWrite) || errors.Is(err, control.ErrTooManyFaults) {
				return reasonFault, err
			}
			// Transient faults were already handled by the controller.
			life.heartbeat(t)
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return reasonSIGINT
	case syscall.SIGTERM:
		return reasonSIGTERM
	default:
		return "UNKNOWN"
	}
}
