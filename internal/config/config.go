// Package config loads and saves the dimmer settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dimmer/internal/gpio"
	"github.com/sweeney/dimmer/internal/mathx"
	"github.com/sweeney/dimmer/internal/triac"
	"github.com/sweeney/dimmer/internal/waveform"
)

// Config represents the dimmer configuration.
type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Triac    TriacConfig    `yaml:"triac"`
	Waveform WaveformConfig `yaml:"waveform"`
	Levels   LevelsConfig   `yaml:"levels"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// GPIOConfig selects the zero-cross input and the triac gate output.
type GPIOConfig struct {
	Chip          string `yaml:"chip"`
	ZeroCrossPin  int    `yaml:"zero_cross_pin"`
	TriggerPin    int    `yaml:"trigger_pin"`
	ZeroCrossEdge string `yaml:"zero_cross_edge"` // rising, falling or both
	RTPriority    int    `yaml:"rt_priority"`     // SCHED_FIFO priority of the timer thread, 0 = normal scheduling
}

// TriacConfig contains the ignition parameters.
type TriacConfig struct {
	FiringMode   string `yaml:"firing_mode"` // timed or power
	PulseWidthUs uint32 `yaml:"pulse_width_us"`
}

// WaveformConfig contains the transition and effect parameters.
type WaveformConfig struct {
	Mode             string  `yaml:"mode"`
	Mode100PercentMs int     `yaml:"mode100_percent_ms"`
	Effect           string  `yaml:"effect"`
	EffectMagnitude  int     `yaml:"effect_magnitude"`
	EffectGain       float32 `yaml:"effect_gain"`
	EffectTimeMs     int     `yaml:"effect_time_ms"`
	ModeTickMs       int     `yaml:"mode_tick_ms"`
	EffectTickMs     int     `yaml:"effect_tick_ms"`
}

// LevelsConfig contains the preset levels in percent.
type LevelsConfig struct {
	Off     int `yaml:"off"`
	On      int `yaml:"on"`
	Lounge  int `yaml:"lounge"`
	Startup int `yaml:"startup"`
}

// MQTTConfig contains the broker connection and topic layout.
type MQTTConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MainTopic       string        `yaml:"main_topic"`
	QoS             byte          `yaml:"qos"`
	Retain          bool          `yaml:"retain"`
	PublishInterval time.Duration `yaml:"publish_interval"`
	Heartbeat       time.Duration `yaml:"heartbeat"`
	// EventDebounce is how long the light or mains state must hold before
	// an event is published.
	EventDebounce time.Duration `yaml:"event_debounce"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration matching a freshly flashed unit.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:          gpio.DefaultChip,
			ZeroCrossPin:  gpio.DefaultPinZeroCross,
			TriggerPin:    gpio.DefaultPinTrigger,
			ZeroCrossEdge: "rising",
			RTPriority:    50,
		},
		Triac: TriacConfig{
			FiringMode:   triac.Timed.String(),
			PulseWidthUs: triac.SafetyTimeUs,
		},
		Waveform: WaveformConfig{
			Mode:             waveform.Instant.String(),
			Mode100PercentMs: 2000,
			Effect:           waveform.EffectNone.String(),
			EffectMagnitude:  waveform.DefaultEffectMagnitude,
			EffectGain:       waveform.DefaultEffectGain,
			EffectTimeMs:     10000,
			ModeTickMs:       5,
			EffectTickMs:     20,
		},
		Levels: LevelsConfig{
			Off:     0,
			On:      100,
			Lounge:  30,
			Startup: 0,
		},
		MQTT: MQTTConfig{
			Enabled:         true,
			Broker:          "tcp://mqtt.broker.com:1883",
			ClientID:        "iotdimmer",
			MainTopic:       "myhome/iotdimmer",
			QoS:             1,
			PublishInterval: time.Second,
			Heartbeat:       15 * time.Minute,
			EventDebounce:   2 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the enumerated settings and clamps the numeric ones.
func (c *Config) Validate() error {
	var errs []error
	if _, err := gpio.ParseEdge(c.GPIO.ZeroCrossEdge); err != nil {
		errs = append(errs, err)
	}
	if _, err := triac.ParseFiringMode(c.Triac.FiringMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := waveform.ParseMode(c.Waveform.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := waveform.ParseEffect(c.Waveform.Effect); err != nil {
		errs = append(errs, err)
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d out of range", c.MQTT.QoS))
	}

	c.GPIO.RTPriority = mathx.Clamp(c.GPIO.RTPriority, 0, 99)
	c.Triac.PulseWidthUs = mathx.Clamp(c.Triac.PulseWidthUs, triac.SafetyTimeUs, triac.MaxPulseWidthUs)
	c.Waveform.EffectMagnitude = mathx.Clamp(c.Waveform.EffectMagnitude, 0, 100)
	c.Levels.Off = mathx.Clamp(c.Levels.Off, 0, 100)
	c.Levels.On = mathx.Clamp(c.Levels.On, 0, 100)
	c.Levels.Lounge = mathx.Clamp(c.Levels.Lounge, 0, 100)
	c.Levels.Startup = mathx.Clamp(c.Levels.Startup, 0, 100)

	return errors.Join(errs...)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.GPIO.ZeroCrossEdge == "" {
		c.GPIO.ZeroCrossEdge = def.GPIO.ZeroCrossEdge
	}

	if c.Triac.FiringMode == "" {
		c.Triac.FiringMode = def.Triac.FiringMode
	}
	if c.Triac.PulseWidthUs == 0 {
		c.Triac.PulseWidthUs = def.Triac.PulseWidthUs
	}

	if c.Waveform.Mode == "" {
		c.Waveform.Mode = def.Waveform.Mode
	}
	if c.Waveform.Mode100PercentMs <= 0 {
		c.Waveform.Mode100PercentMs = def.Waveform.Mode100PercentMs
	}
	if c.Waveform.Effect == "" {
		c.Waveform.Effect = def.Waveform.Effect
	}
	if c.Waveform.EffectTimeMs <= 0 {
		c.Waveform.EffectTimeMs = def.Waveform.EffectTimeMs
	}
	if c.Waveform.ModeTickMs <= 0 {
		c.Waveform.ModeTickMs = def.Waveform.ModeTickMs
	}
	if c.Waveform.EffectTickMs <= 0 {
		c.Waveform.EffectTickMs = def.Waveform.EffectTickMs
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.MainTopic == "" {
		c.MQTT.MainTopic = def.MQTT.MainTopic
	}
	if c.MQTT.PublishInterval <= 0 {
		c.MQTT.PublishInterval = def.MQTT.PublishInterval
	}
	if c.MQTT.EventDebounce < 0 {
		c.MQTT.EventDebounce = def.MQTT.EventDebounce
	}
}

// Edge returns the parsed zero-cross edge.
func (c GPIOConfig) Edge() gpio.Edge {
	e, _ := gpio.ParseEdge(c.ZeroCrossEdge)
	return e
}

// ControllerConfig returns the triac controller parameters.
func (c TriacConfig) ControllerConfig() triac.Config {
	m, err := triac.ParseFiringMode(c.FiringMode)
	if err != nil {
		m = triac.Timed
	}
	return triac.Config{FiringMode: m, PulseWidthUs: c.PulseWidthUs}
}

// EngineConfig returns the waveform engine parameters.
func (c WaveformConfig) EngineConfig() waveform.Config {
	mode, err := waveform.ParseMode(c.Mode)
	if err != nil {
		mode = waveform.Instant
	}
	kind, err := waveform.ParseEffect(c.Effect)
	if err != nil {
		kind = waveform.EffectNone
	}
	return waveform.Config{
		Mode:    mode,
		Mode100: time.Duration(c.Mode100PercentMs) * time.Millisecond,
		Effect: waveform.Effect{
			Kind:      kind,
			Magnitude: mathx.ClampPercent(c.EffectMagnitude),
			Gain:      c.EffectGain,
			Period:    time.Duration(c.EffectTimeMs) * time.Millisecond,
		},
		ModeTick:   time.Duration(c.ModeTickMs) * time.Millisecond,
		EffectTick: time.Duration(c.EffectTickMs) * time.Millisecond,
	}
}

// SetRuntime records settings changed while running so the next Save keeps
// them.
func (c *Config) SetRuntime(mode waveform.Mode, mode100 time.Duration, eff waveform.Effect, fm triac.FiringMode) {
	c.Waveform.Mode = mode.String()
	c.Waveform.Mode100PercentMs = int(mode100 / time.Millisecond)
	c.Waveform.Effect = eff.Kind.String()
	c.Waveform.EffectMagnitude = int(eff.Magnitude)
	c.Waveform.EffectGain = eff.Gain
	c.Waveform.EffectTimeMs = int(eff.Period / time.Millisecond)
	c.Triac.FiringMode = fm.String()
}
