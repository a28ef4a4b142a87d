package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/racetimer/internal/race"
)

// DefaultFinishValue is the lane sensor level that means "beam broken".
const DefaultFinishValue = 0

// ErrHandlerPanic wraps a panic recovered from a handler.
var ErrHandlerPanic = errors.New("event handler panicked")

// RaceMachine is the subset of *race.Machine the dispatcher drives.
type RaceMachine interface {
	OnReleaseOpened()
	OnReleaseHeld()
	OnReleaseClosed()
	OnLaneFinished(id int) error
	Reset() error
	LaneIDs() []int
}

// Handler applies one event.
type Handler func(ctx context.Context, ev Event) error

// Engine is the single-writer event loop between the gateway and the race
// machine.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Handle(): applies one event synchronously; do not mix with Run
type Engine struct {
	machine     RaceMachine
	handlers    map[Channel]Handler
	queue       *edgeQueue
	seq         sequence
	finishValue int
}

// Option configures an Engine.
type Option func(*Engine)

// WithFinishValue sets the lane sensor level that counts as a finish.
// Default: DefaultFinishValue.
func WithFinishValue(v int) Option {
	return func(e *Engine) { e.finishValue = v }
}

// New creates an engine and registers the dispatch table for the machine's
// release gate, reset button and lanes.
func New(m RaceMachine, opts ...Option) *Engine {
	e := &Engine{
		machine:     m,
		handlers:    make(map[Channel]Handler),
		queue:       newEdgeQueue(),
		finishValue: DefaultFinishValue,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.handlers[ChannelRelease] = e.handleRelease
	e.handlers[ChannelReset] = e.handleReset
	for _, id := range m.LaneIDs() {
		e.handlers[LaneChannel(id)] = e.laneHandler(id)
	}

	return e
}

// Channels returns the registered channels, sorted.
func (e *Engine) Channels() []Channel {
	out := make([]Channel, 0, len(e.handlers))
	for ch := range e.handlers {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enqueue stamps ev with the next sequence number (and the arrival time,
// if unset) and submits it to the Run loop. Returns false after Stop.
func (e *Engine) Enqueue(ev Event) bool {
	ev.Seq = e.seq.next()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	return e.queue.push(ev)
}

// QueueLen returns the number of events waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.depth()
}

// Run applies queued events one at a time until ctx is cancelled, Stop is
// called, or a fatal handler error occurs.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "channels", len(e.handlers))

	for {
		ev, ok := e.queue.pop()
		if ok {
			if err := e.Handle(ctx, ev); err != nil {
				if isFatal(err) {
					slog.Error("fatal event error", "event", ev.String(), "error", err)
					e.queue.close()
					return err
				}
				slog.Warn("event rejected", "event", ev.String(), "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.close()
			return ctx.Err()

		case <-e.queue.ready():
			// ready is closed by close; finish the backlog, then exit.
			if e.queue.drained() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue; Run returns once it is drained.
func (e *Engine) Stop() {
	e.queue.close()
}

// Handle applies one event through the dispatch table. Panics in handlers
// are recovered and returned as ErrHandlerPanic.
func (e *Engine) Handle(ctx context.Context, ev Event) (err error) {
	h, ok := e.handlers[ev.Channel]
	if !ok {
		return fmt.Errorf("no handler for channel %q", ev.Channel)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, ev.Channel, r)
		}
	}()

	slog.Debug("event", "seq", ev.Seq, "channel", ev.Channel, "edge", ev.Edge, "value", ev.Value)
	return h(ctx, ev)
}

func (e *Engine) handleRelease(_ context.Context, ev Event) error {
	switch ev.Edge {
	case EdgeOpened:
		e.machine.OnReleaseOpened()
	case EdgeHeld:
		e.machine.OnReleaseHeld()
	case EdgeClosed:
		e.machine.OnReleaseClosed()
	}
	return nil
}

func (e *Engine) handleReset(_ context.Context, ev Event) error {
	if ev.Edge != EdgeClosed {
		return nil
	}
	return e.machine.Reset()
}

// laneHandler binds a handler to one lane id.
func (e *Engine) laneHandler(id int) Handler {
	return func(_ context.Context, ev Event) error {
		if ev.Edge != EdgeChanged || ev.Value != e.finishValue {
			return nil
		}
		return e.machine.OnLaneFinished(id)
	}
}

func isFatal(err error) bool {
	return errors.Is(err, race.ErrLogWrite) || errors.Is(err, ErrHandlerPanic)
}
