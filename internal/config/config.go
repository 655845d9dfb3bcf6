// Package config loads the monitor configuration from flags, environment
// and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/air-quality/internal/adc"
	"github.com/sweeney/air-quality/internal/gpio"
	"github.com/sweeney/air-quality/internal/mqtt"
)

const (
	envPrefix  = "AIRQ"
	configName = "air-quality"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// UI modes.
const (
	UIAuto = "auto"
	UITUI  = "tui"
	UINone = "none"
)

// Config is the complete runtime configuration.
type Config struct {
	GPIOChip      string        `mapstructure:"gpio_chip"`
	FanPin        int           `mapstructure:"fan_pin"`
	ButtonPin     int           `mapstructure:"button_pin"`
	SPIChipSelect int           `mapstructure:"spi_chip_select"`
	SPISpeed      int           `mapstructure:"spi_speed"`
	ADCChannel    int           `mapstructure:"adc_channel"`
	Threshold     int           `mapstructure:"threshold"`
	Interval      time.Duration `mapstructure:"interval"`
	MaxPoints     int           `mapstructure:"max_points"`
	Debounce      time.Duration `mapstructure:"debounce"`
	LogFile       string        `mapstructure:"log_file"`
	MaxFaults     int           `mapstructure:"max_faults"`
	Broker        string        `mapstructure:"broker"`
	MQTTTopic     string        `mapstructure:"mqtt_topic"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
	HTTPAddr      string        `mapstructure:"http"`
	UI            string        `mapstructure:"ui"`
	Archive       string        `mapstructure:"archive"`
	LogLevel      string        `mapstructure:"log_level"`
	LogOutput     string        `mapstructure:"log_output"`
	ClearLog      bool          `mapstructure:"clear_log"`
	ConfigFile    string        `mapstructure:"config"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		GPIOChip:      gpio.DefaultChip,
		FanPin:        gpio.DefaultPinFan,
		ButtonPin:     gpio.DefaultPinButton,
		SPIChipSelect: adc.DefaultChipSelect,
		SPISpeed:      adc.DefaultSpeed,
		ADCChannel:    0,
		Threshold:     300,
		Interval:      500 * time.Millisecond,
		MaxPoints:     300,
		Debounce:      300 * time.Millisecond,
		LogFile:       "air_quality_log.csv",
		MaxFaults:     5,
		MQTTTopic:     mqtt.DefaultTopic,
		Heartbeat:     15 * time.Minute,
		UI:            UIAuto,
		LogLevel:      "info",
	}
}

func newFlagSet(d Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML config file")
	fs.String("gpio-chip", d.GPIOChip, "GPIO character device")
	fs.Int("fan-pin", d.FanPin, "BCM pin driving the fan MOSFET")
	fs.Int("button-pin", d.ButtonPin, "BCM pin of the run/pause button (wired to GND)")
	fs.Int("spi-chip-select", d.SPIChipSelect, "SPI0 chip select of the MCP3008")
	fs.Int("spi-speed", d.SPISpeed, "SPI clock in Hz")
	fs.Int("adc-channel", d.ADCChannel, "MCP3008 channel of the gas sensor (0-7)")
	fs.Int("threshold", d.Threshold, "Reading above which the fan runs (0-1023)")
	fs.Duration("interval", d.Interval, "Sampling interval")
	fs.Int("max-points", d.MaxPoints, "Samples kept for the live chart")
	fs.Duration("debounce", d.Debounce, "Button debounce window")
	fs.String("log-file", d.LogFile, "CSV sample log")
	fs.Int("max-faults", d.MaxFaults, "Consecutive faulted ticks before giving up (0 = never)")
	fs.String("broker", d.Broker, "MQTT broker address (empty to disable)")
	fs.String("mqtt-topic", d.MQTTTopic, "MQTT topic for samples")
	fs.Duration("heartbeat", d.Heartbeat, "MQTT heartbeat interval (0 to disable)")
	fs.String("http", d.HTTPAddr, "HTTP status address (empty to disable)")
	fs.String("ui", d.UI, "Live chart: auto, tui or none")
	fs.String("archive", d.Archive, "SQLite sample archive (empty to disable)")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("log-output", d.LogOutput, "Diagnostic log file while the terminal chart is shown")
	fs.Bool("clear-log", d.ClearLog, "Reset the CSV log to just its header and exit")
	return fs
}

// Load builds the configuration from args (without the program name).
// Precedence: flags, then AIRQ_* environment, then the config file, then defaults.
func Load(args []string) (*Config, error) {
	d := Default()
	fs := newFlagSet(d)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc/air-quality")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail on the first tick.
func (c *Config) Validate() error {
	switch {
	case c.ADCChannel < adc.MinChannel || c.ADCChannel > adc.MaxChannel:
		return fmt.Errorf("%w: adc_channel %d outside 0-7", ErrInvalid, c.ADCChannel)
	case c.Threshold < 0 || c.Threshold > 1023:
		return fmt.Errorf("%w: threshold %d outside 0-1023", ErrInvalid, c.Threshold)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalid, c.Interval)
	case c.MaxPoints <= 0:
		return fmt.Errorf("%w: max_points must be positive, got %d", ErrInvalid, c.MaxPoints)
	case c.Debounce < 0:
		return fmt.Errorf("%w: debounce must not be negative, got %v", ErrInvalid, c.Debounce)
	case c.Heartbeat < 0:
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalid, c.Heartbeat)
	case c.MaxFaults < 0:
		return fmt.Errorf("%w: max_faults must not be negative, got %d", ErrInvalid, c.MaxFaults)
	case c.LogFile == "":
		return fmt.Errorf("%w: log_file is required", ErrInvalid)
	case c.SPIChipSelect < 0 || c.SPIChipSelect > 1:
		return fmt.Errorf("%w: spi_chip_select %d outside 0-1", ErrInvalid, c.SPIChipSelect)
	}

	switch c.UI {
	case UIAuto, UITUI, UINone:
	default:
		return fmt.Errorf("%w: ui %q (want auto, tui or none)", ErrInvalid, c.UI)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}
