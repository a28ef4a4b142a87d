package gpio

import (
	"fmt"
	"sync"
	"time"
)

// FakeChip is an in-memory Chip. Set drives inputs; callbacks run
// synchronously on the caller's goroutine.
type FakeChip struct {
	mu      sync.Mutex
	levels  map[int]int
	inputs  map[int]*fakeInput
	outputs map[int]*fakeOutput
	closed  bool
}

// NewFakeChip creates an empty fake chip.
func NewFakeChip() *FakeChip {
	return &FakeChip{
		levels:  make(map[int]int),
		inputs:  make(map[int]*fakeInput),
		outputs: make(map[int]*fakeOutput),
	}
}

func (c *FakeChip) Watch(offset int, _ time.Duration, fn func(level int)) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("chip closed")
	}
	if _, busy := c.inputs[offset]; busy {
		return nil, fmt.Errorf("line %d busy", offset)
	}
	in := &fakeInput{fn: fn, level: c.levels[offset]}
	c.inputs[offset] = in
	return in, nil
}

func (c *FakeChip) Output(offset int) (Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("chip closed")
	}
	if _, busy := c.outputs[offset]; busy {
		return nil, fmt.Errorf("line %d busy", offset)
	}
	out := &fakeOutput{}
	c.outputs[offset] = out
	return out, nil
}

func (c *FakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Set changes the level of input offset and invokes its watcher.
// Setting an unwatched line only records the level, which becomes the
// initial value once it is watched.
func (c *FakeChip) Set(offset, level int) {
	c.mu.Lock()
	c.levels[offset] = level
	in, ok := c.inputs[offset]
	c.mu.Unlock()
	if !ok {
		return
	}
	in.set(level)
}

// Level returns the current value of output offset.
func (c *FakeChip) Level(offset int) int {
	c.mu.Lock()
	out, ok := c.outputs[offset]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return out.get()
}

// Writes returns every value written to output offset, in order.
func (c *FakeChip) Writes(offset int) []int {
	c.mu.Lock()
	out, ok := c.outputs[offset]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	return append([]int(nil), out.writes...)
}

type fakeInput struct {
	mu     sync.Mutex
	level  int
	fn     func(level int)
	closed bool
}

func (in *fakeInput) set(level int) {
	in.mu.Lock()
	in.level = level
	fn, closed := in.fn, in.closed
	in.mu.Unlock()
	if !closed {
		fn(level)
	}
}

func (in *fakeInput) Value() (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.level, nil
}

func (in *fakeInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	return nil
}

type fakeOutput struct {
	mu     sync.Mutex
	level  int
	writes []int
}

func (o *fakeOutput) SetValue(v int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.level = v
	o.writes = append(o.writes, v)
	return nil
}

func (o *fakeOutput) get() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

func (o *fakeOutput) Close() error { return nil }
