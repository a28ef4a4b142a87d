// Package config loads and validates the controller configuration.
//
// A YAML file is decoded over Default(), checked against the embedded CUE
// schema, then cross-checked in Go for constraints the schema cannot express.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/racetimer/internal/gpio"
	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/store"
)

// Config is the full controller configuration.
type Config struct {
	HTTP  HTTPConfig   `yaml:"http" json:"http"`
	GPIO  GPIOConfig   `yaml:"gpio" json:"gpio"`
	Lanes []LaneConfig `yaml:"lanes" json:"lanes"`
	Race  RaceConfig   `yaml:"race" json:"race"`
	Log   LogConfig    `yaml:"log" json:"log"`
}

// HTTPConfig configures the query service.
type HTTPConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	CORSOrigin string `yaml:"cors_origin" json:"cors_origin"`
}

// GPIOConfig names the chip and the line offsets of the fixed inputs.
type GPIOConfig struct {
	Chip      string        `yaml:"chip" json:"chip"`
	Debounce  time.Duration `yaml:"debounce" json:"debounce"`
	HoldTime  time.Duration `yaml:"hold_time" json:"hold_time"`
	Release   int           `yaml:"release" json:"release"`
	Reset     int           `yaml:"reset" json:"reset"`
	Indicator int           `yaml:"indicator" json:"indicator"`
}

// LaneConfig is one finish sensor.
type LaneConfig struct {
	ID   int    `yaml:"id" json:"id"`
	Pin  int    `yaml:"pin" json:"pin"`
	Name string `yaml:"name" json:"name"`
}

// RaceConfig holds race rules.
type RaceConfig struct {
	LanesInUse       int    `yaml:"lanes_in_use" json:"lanes_in_use"`
	FinishValue      int    `yaml:"finish_value" json:"finish_value"`
	CompletionVisual string `yaml:"completion_visual" json:"completion_visual"`
}

// LogConfig selects the result log.
type LogConfig struct {
	Driver  string `yaml:"driver" json:"driver"`
	Path    string `yaml:"path" json:"path"`
	OnError string `yaml:"on_error" json:"on_error"`
}

// FakeChip is the chip name that selects the in-memory GPIO chip.
const FakeChip = "fake"

// Default returns the stock four-lane track wiring.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080", CORSOrigin: "*"},
		GPIO: GPIOConfig{
			Chip:      "gpiochip0",
			Debounce:  5 * time.Millisecond,
			HoldTime:  gpio.DefaultHoldTime,
			Release:   25,
			Reset:     17,
			Indicator: 4,
		},
		Lanes: []LaneConfig{
			{ID: 1, Pin: 18, Name: "Lane 1"},
			{ID: 2, Pin: 27, Name: "Lane 2"},
			{ID: 3, Pin: 22, Name: "Lane 3"},
			{ID: 4, Pin: 23, Name: "Lane 4"},
		},
		Race: RaceConfig{
			LanesInUse:       4,
			FinishValue:      0,
			CompletionVisual: string(race.CompleteSolidOff),
		},
		Log: LogConfig{
			Driver:  store.DriverFile,
			Path:    "race.log",
			OnError: "fatal",
		},
	}
}

// Load reads path, or returns the validated defaults when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		return &c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults, normalizes and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	c.normalize()

	if errs := Validate(&c); len(errs) > 0 {
		return nil, errs
	}
	return &c, nil
}

// normalize trims and NFC-normalizes lane names, filling blanks.
func (c *Config) normalize() {
	for i := range c.Lanes {
		name := norm.NFC.String(strings.TrimSpace(c.Lanes[i].Name))
		if name == "" {
			name = fmt.Sprintf("Lane %d", c.Lanes[i].ID)
		}
		c.Lanes[i].Name = name
	}
}

// LaneDefs returns the lanes for the race machine.
func (c *Config) LaneDefs() []race.LaneDef {
	defs := make([]race.LaneDef, len(c.Lanes))
	for i, l := range c.Lanes {
		defs[i] = race.LaneDef{ID: l.ID, Name: l.Name}
	}
	return defs
}

// Gateway returns the line layout for the GPIO gateway.
func (c *Config) Gateway() gpio.GatewayConfig {
	lanes := make([]gpio.LaneLine, len(c.Lanes))
	for i, l := range c.Lanes {
		lanes[i] = gpio.LaneLine{ID: l.ID, Offset: l.Pin}
	}
	return gpio.GatewayConfig{
		Release:   c.GPIO.Release,
		Reset:     c.GPIO.Reset,
		Indicator: c.GPIO.Indicator,
		Lanes:     lanes,
		Debounce:  c.GPIO.Debounce,
		HoldTime:  c.GPIO.HoldTime,
	}
}

// LogPolicy maps log.on_error to the machine policy.
func (c *Config) LogPolicy() race.LogFailurePolicy {
	if c.Log.OnError == "warn" {
		return race.LogFailWarn
	}
	return race.LogFailFatal
}

// CompletionVisual returns race.completion_visual.
func (c *Config) CompletionVisual() race.CompletionVisual {
	return race.CompletionVisual(c.Race.CompletionVisual)
}
