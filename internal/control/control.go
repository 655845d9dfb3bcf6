// Package control runs one sampling tick at a time: button, mode, sensor,
// fan, history, log and sinks. A Controller is the single owned context for
// all hardware and file handles.
package control

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sweeney/air-quality/internal/adc"
	"github.com/sweeney/air-quality/internal/gpio"
	"github.com/sweeney/air-quality/internal/history"
	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/logic"
)

var (
	// ErrLogWrite wraps a failure to commit a sample to the log.
	ErrLogWrite = errors.New("log write failed")

	// ErrTooManyFaults is returned once MaxFaults consecutive ticks fail.
	ErrTooManyFaults = errors.New("too many consecutive faults")
)

// SampleLog is the durable record of accepted samples.
type SampleLog interface {
	Append(s logic.Sample, at time.Time) error
}

// Recorder is an optional secondary store. Its failures are logged, never fatal.
type Recorder interface {
	Record(s logic.Sample, at time.Time) error
}

// Sink receives a Frame after every tick. Each sink gets its own copy of
// the window and sample.
type Sink interface {
	Emit(f logic.Frame)
}

// Config holds the fixed control parameters.
type Config struct {
	Channel   int
	Threshold int
	Debounce  time.Duration
	MaxPoints int
	MaxFaults int // 0 = unlimited
}

// Deps are the collaborators a Controller drives. Closers are released by
// Close after the fan has been forced off, in the order given.
type Deps struct {
	Button   gpio.Button
	Fan      gpio.Fan
	Sensor   adc.Reader
	Log      SampleLog
	Recorder Recorder
	Sinks    []Sink
	Closers  []io.Closer
}

// Controller owns the mode, debounce state and history for one run.
type Controller struct {
	cfg    Config
	deps   Deps
	toggle *logic.Toggle
	buffer *history.Buffer
	start  time.Time
	faults int

	closeOnce sync.Once
	closeErr  error
}

// New creates a Controller in PAUSED mode. initialLevel is the button level
// read at startup and start anchors Sample.Elapsed.
func New(cfg Config, deps Deps, initialLevel bool, start time.Time) *Controller {
	return &Controller{
		cfg:    cfg,
		deps:   deps,
		toggle: logic.NewToggle(cfg.Debounce, initialLevel),
		buffer: history.NewBuffer(cfg.MaxPoints),
		start:  start,
	}
}

// Mode returns the current run/pause mode.
func (c *Controller) Mode() logic.Mode {
	return c.toggle.Mode()
}

// Window returns a copy of the history, oldest first.
func (c *Controller) Window() []logic.Sample {
	return c.buffer.Window()
}

// Tick runs one control cycle at wall-clock time now.
//
// A returned error means the fan has already been commanded off. Errors
// wrapping ErrLogWrite or ErrTooManyFaults should end the loop; anything else
// is a transient fault and the next tick retries.
func (c *Controller) Tick(now time.Time) error {
	mode, toggled, sample, err := c.step(now)
	if err != nil {
		c.forceOff()
		c.faults++
		logger.Error().Err(err).Str("mode", string(mode)).Int("faults", c.faults).Msg("tick failed")
		if c.cfg.MaxFaults > 0 && c.faults >= c.cfg.MaxFaults && !errors.Is(err, ErrLogWrite) {
			err = fmt.Errorf("%w (%d): %w", ErrTooManyFaults, c.faults, err)
		}
	} else {
		c.faults = 0
	}

	c.emit(logic.Frame{
		Time:    now,
		Mode:    mode,
		Toggled: toggled,
		Sample:  sample,
		Window:  c.buffer.Window(),
		Err:     err,
	})
	return err
}

func (c *Controller) step(now time.Time) (logic.Mode, bool, *logic.Sample, error) {
	level, err := c.deps.Button.Read()
	if err != nil {
		return c.toggle.Mode(), false, nil, fmt.Errorf("read button: %w", err)
	}

	mode, toggled := c.toggle.Evaluate(level, now)
	if toggled {
		logger.Info().Str("mode", string(mode)).Msg("button pressed")
	}

	if mode == logic.ModePaused {
		if err := c.deps.Fan.Set(false); err != nil {
			return mode, toggled, nil, fmt.Errorf("set fan: %w", err)
		}
		return mode, toggled, nil, nil
	}

	reading, err := c.deps.Sensor.Read(c.cfg.Channel)
	if err != nil {
		return mode, toggled, nil, fmt.Errorf("read sensor: %w", err)
	}

	fanOn := logic.Decide(reading, mode, c.cfg.Threshold)
	if err := c.deps.Fan.Set(fanOn); err != nil {
		return mode, toggled, nil, fmt.Errorf("set fan: %w", err)
	}

	s := logic.Sample{
		Elapsed: now.Sub(c.start),
		Reading: reading,
		FanOn:   fanOn,
	}
	// Only samples the log has committed enter the history.
	if err := c.deps.Log.Append(s, now); err != nil {
		return mode, toggled, nil, fmt.Errorf("%w: %w", ErrLogWrite, err)
	}
	c.buffer.Append(s)

	if c.deps.Recorder != nil {
		if err := c.deps.Recorder.Record(s, now); err != nil {
			logger.Warn().Err(err).Msg("archive record failed")
		}
	}

	logger.Info().Int("reading", reading).Bool("fan", fanOn).Msg("sample")
	return mode, toggled, &s, nil
}

func (c *Controller) emit(f logic.Frame) {
	for _, sink := range c.deps.Sinks {
		g := f
		g.Window = append([]logic.Sample(nil), f.Window...)
		if f.Sample != nil {
			s := *f.Sample
			g.Sample = &s
		}
		sink.Emit(g)
	}
}

func (c *Controller) forceOff() {
	if err := c.deps.Fan.Set(false); err != nil {
		logger.Error().Err(err).Msg("failed to force fan off")
	}
}

// Close forces the fan off and releases every handle exactly once.
// Later calls return the first result.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if err := c.deps.Fan.Set(false); err != nil {
			errs = append(errs, fmt.Errorf("fan off: %w", err))
		}
		for _, cl := range c.deps.Closers {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
