package gpio

import "sync"

// Sensor is a digital input that reports level changes. Repeated samples
// of the same level are dropped.
type Sensor struct {
	emit func(level int)

	mu    sync.Mutex
	level int
	known bool
}

// NewSensor creates a sensor that reports new levels to emit.
func NewSensor(emit func(level int)) *Sensor {
	return &Sensor{emit: emit}
}

// Init records the level read at startup without emitting.
func (s *Sensor) Init(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	s.known = true
}

// Level feeds one raw level sample.
func (s *Sensor) Level(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.known && level == s.level {
		return
	}
	s.level = level
	s.known = true
	s.emit(level)
}
