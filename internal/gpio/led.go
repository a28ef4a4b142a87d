package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/racetimer/internal/race"
)

// LED drives an output line and implements race.Indicator.
//
// Blinking runs on its own goroutine. Any later command stops it; stop-blink
// leaves the line at whatever level the blink last wrote.
type LED struct {
	out Output

	mu    sync.Mutex
	level int
	stop  chan struct{} // non-nil while blinking
}

// NewLED wraps out. The line is assumed low.
func NewLED(out Output) *LED {
	return &LED{out: out}
}

// Apply executes one indicator command.
func (l *LED) Apply(cmd race.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch cmd.Kind {
	case race.CommandSolidOn:
		l.stopBlinkLocked()
		return l.setLocked(1)
	case race.CommandSolidOff:
		l.stopBlinkLocked()
		return l.setLocked(0)
	case race.CommandStopBlink:
		l.stopBlinkLocked()
		return nil
	case race.CommandToggle:
		l.stopBlinkLocked()
		return l.setLocked(1 - l.level)
	case race.CommandBlink:
		if cmd.Interval <= 0 {
			return fmt.Errorf("blink interval must be positive, got %s", cmd.Interval)
		}
		l.stopBlinkLocked()
		stop := make(chan struct{})
		l.stop = stop
		go l.blink(cmd.Interval, stop)
		return nil
	default:
		return fmt.Errorf("unsupported indicator command %s", cmd)
	}
}

// Level returns the last level written.
func (l *LED) Level() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Blinking reports whether a blink goroutine is active.
func (l *LED) Blinking() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop != nil
}

// Close stops blinking, turns the light off and releases the line.
func (l *LED) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopBlinkLocked()
	_ = l.setLocked(0)
	return l.out.Close()
}

func (l *LED) blink(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		select {
		case <-stop:
			// Stopped while we waited for the lock.
			l.mu.Unlock()
			return
		default:
		}
		_ = l.setLocked(1 - l.level)
		l.mu.Unlock()
	}
}

func (l *LED) stopBlinkLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

func (l *LED) setLocked(v int) error {
	if err := l.out.SetValue(v); err != nil {
		return fmt.Errorf("set indicator to %d: %w", v, err)
	}
	l.level = v
	return nil
}
