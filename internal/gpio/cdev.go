//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "racetimer"

// CdevChip is a Chip backed by /dev/gpiochipN.
type CdevChip struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
func OpenChip(name string) (Chip, error) {
	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &CdevChip{chip: c}, nil
}

// Watch requests offset as an input with both-edge events.
func (c *CdevChip) Watch(offset int, debounce time.Duration, fn func(level int)) (Input, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			level := 0
			if evt.Type == gpiocdev.LineEventRisingEdge {
				level = 1
			}
			fn(level)
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	l, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %d: %w", offset, err)
	}
	c.track(l)
	return l, nil
}

// Output requests offset as an output, initially low.
func (c *CdevChip) Output(offset int) (Output, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	c.track(l)
	return l, nil
}

// Close releases every requested line, then the chip.
func (c *CdevChip) Close() error {
	c.mu.Lock()
	lines := c.lines
	c.lines = nil
	c.mu.Unlock()

	for _, l := range lines {
		_ = l.Close()
	}
	return c.chip.Close()
}

func (c *CdevChip) track(l *gpiocdev.Line) {
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
}
