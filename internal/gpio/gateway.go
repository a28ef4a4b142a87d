package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/racetimer/internal/engine"
)

// LaneLine maps a lane id to its sensor line.
type LaneLine struct {
	ID     int
	Offset int
}

// GatewayConfig is the line layout of the track.
type GatewayConfig struct {
	Release   int
	Reset     int
	Indicator int
	Lanes     []LaneLine
	Debounce  time.Duration
	HoldTime  time.Duration // release gate only
}

// Sink receives gateway events. *engine.Engine satisfies it.
type Sink interface {
	Enqueue(ev engine.Event) bool
}

// Gateway owns the inputs and the indicator of one track.
type Gateway struct {
	chip    Chip
	cfg     GatewayConfig
	sink    Sink
	inputs  []Input
	buttons []*Button
	led     *LED
}

// NewGateway requests the indicator line. Inputs are not watched until Start,
// so the indicator can be handed to the race machine before events flow.
func NewGateway(chip Chip, cfg GatewayConfig) (*Gateway, error) {
	out, err := chip.Output(cfg.Indicator)
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}
	return &Gateway{chip: chip, cfg: cfg, led: NewLED(out)}, nil
}

// Start watches the release, reset and lane inputs and reports their edges
// to sink. On error, every line is released.
func (g *Gateway) Start(sink Sink) (err error) {
	if g.sink != nil {
		return errors.New("gateway already started")
	}
	g.sink = sink
	defer func() {
		if err != nil {
			_ = g.Close()
		}
	}()

	cfg := g.cfg
	if err := g.watchButton(engine.ChannelRelease, cfg.Release, cfg.Debounce, cfg.HoldTime); err != nil {
		return err
	}
	if err := g.watchButton(engine.ChannelReset, cfg.Reset, cfg.Debounce, 0); err != nil {
		return err
	}
	for _, lane := range cfg.Lanes {
		if err := g.watchSensor(engine.LaneChannel(lane.ID), lane.Offset, cfg.Debounce); err != nil {
			return err
		}
	}

	slog.Info("gateway ready",
		"release", cfg.Release, "reset", cfg.Reset, "indicator", cfg.Indicator, "lanes", len(cfg.Lanes))
	return nil
}

// Indicator returns the status light.
func (g *Gateway) Indicator() *LED {
	return g.led
}

// Close releases every line.
func (g *Gateway) Close() error {
	var errs []error
	for _, b := range g.buttons {
		b.Close()
	}
	for _, in := range g.inputs {
		errs = append(errs, in.Close())
	}
	if g.led != nil {
		errs = append(errs, g.led.Close())
	}
	g.inputs, g.buttons, g.led = nil, nil, nil
	return errors.Join(errs...)
}

func (g *Gateway) watchButton(ch engine.Channel, offset int, debounce, hold time.Duration) error {
	b := NewButton(hold, func(edge engine.Edge) {
		g.send(engine.Event{Channel: ch, Edge: edge})
	})
	in, err := g.chip.Watch(offset, debounce, b.Level)
	if err != nil {
		return fmt.Errorf("%s: %w", ch, err)
	}
	g.buttons = append(g.buttons, b)
	g.inputs = append(g.inputs, in)

	level, err := in.Value()
	if err != nil {
		return fmt.Errorf("%s: read initial level: %w", ch, err)
	}
	b.Init(level)
	return nil
}

func (g *Gateway) watchSensor(ch engine.Channel, offset int, debounce time.Duration) error {
	s := NewSensor(func(level int) {
		g.send(engine.Event{Channel: ch, Edge: engine.EdgeChanged, Value: level})
	})
	in, err := g.chip.Watch(offset, debounce, s.Level)
	if err != nil {
		return fmt.Errorf("%s: %w", ch, err)
	}
	g.inputs = append(g.inputs, in)

	level, err := in.Value()
	if err != nil {
		return fmt.Errorf("%s: read initial level: %w", ch, err)
	}
	s.Init(level)
	return nil
}

func (g *Gateway) send(ev engine.Event) {
	ev.At = time.Now()
	if !g.sink.Enqueue(ev) {
		slog.Debug("event dropped: sink closed", "channel", ev.Channel, "edge", ev.Edge)
	}
}
