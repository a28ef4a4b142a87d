package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/racetimer/internal/race"
)

// RecordingIndicator records every command it receives.
type RecordingIndicator struct {
	mu       sync.Mutex
	commands []race.Command
	fail     bool
}

// NewRecordingIndicator creates an empty recorder.
func NewRecordingIndicator() *RecordingIndicator {
	return &RecordingIndicator{}
}

// Apply implements race.Indicator.
func (r *RecordingIndicator) Apply(cmd race.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if r.fail {
		return errors.New("indicator unavailable")
	}
	return nil
}

// FailNext makes every later Apply return an error (after recording).
func (r *RecordingIndicator) FailNext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = true
}

// Commands returns a copy of the recorded commands.
func (r *RecordingIndicator) Commands() []race.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]race.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Last returns the most recent command, or false if none was recorded.
func (r *RecordingIndicator) Last() (race.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return race.Command{}, false
	}
	return r.commands[len(r.commands)-1], true
}

// Clear forgets all recorded commands.
func (r *RecordingIndicator) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
