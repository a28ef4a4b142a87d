package gpio

import (
	"sync"
	"time"

	"github.com/roach88/racetimer/internal/engine"
)

// DefaultHoldTime is how long a button must stay pressed to report held.
const DefaultHoldTime = time.Second

// Button turns raw levels into press edges. Level 1 is pressed.
//
// A press emits closed; the matching release emits opened. If the press
// lasts HoldTime, held is emitted once. A zero hold time disables held.
type Button struct {
	holdTime time.Duration
	emit     func(engine.Edge)

	mu      sync.Mutex
	pressed bool
	known   bool
	press   uint64 // incremented per press; stale hold timers compare it
	timer   *time.Timer
}

// NewButton creates a button that reports edges to emit.
func NewButton(holdTime time.Duration, emit func(engine.Edge)) *Button {
	return &Button{holdTime: holdTime, emit: emit}
}

// Init records the level read at startup without emitting.
func (b *Button) Init(level int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pressed = level == 1
	b.known = true
}

// Level feeds one raw level sample.
func (b *Button) Level(level int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pressed := level == 1
	if b.known && pressed == b.pressed {
		return
	}
	b.known = true
	b.pressed = pressed

	if !pressed {
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		b.emit(engine.EdgeOpened)
		return
	}

	b.press++
	b.emit(engine.EdgeClosed)
	if b.holdTime > 0 {
		press := b.press
		b.timer = time.AfterFunc(b.holdTime, func() { b.fireHold(press) })
	}
}

func (b *Button) fireHold(press uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pressed || b.press != press {
		return
	}
	b.timer = nil
	b.emit(engine.EdgeHeld)
}

// Close stops a pending hold timer.
func (b *Button) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
