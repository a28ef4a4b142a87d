package gpio

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by OpenChip on platforms without a GPIO
// character device.
var ErrUnsupported = errors.New("gpio character device not supported on this platform")

// Input is a watched input line.
type Input interface {
	Value() (int, error)
	Close() error
}

// Output is a driven output line.
type Output interface {
	SetValue(v int) error
	Close() error
}

// Chip provides lines by offset.
//
// Watch callbacks may run on a goroutine owned by the chip; they must not block.
type Chip interface {
	Watch(offset int, debounce time.Duration, fn func(level int)) (Input, error)
	Output(offset int) (Output, error)
	Close() error
}
