package testutil

import (
	"errors"
	"strings"
	"sync"
)

// ErrLogUnavailable is returned by a MemoryLog after FailWrites.
var ErrLogUnavailable = errors.New("log unavailable")

// MemoryLog is an in-memory result log. Lines are stored without a
// timestamp prefix.
type MemoryLog struct {
	mu    sync.Mutex
	lines []string
	fail  bool
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append implements race.ResultLog.
func (l *MemoryLog) Append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return ErrLogUnavailable
	}
	l.lines = append(l.lines, line)
	return nil
}

// LastMatching returns the newest line containing tag.
func (l *MemoryLog) LastMatching(tag string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.lines) - 1; i >= 0; i-- {
		if strings.Contains(l.lines[i], tag) {
			return l.lines[i], true, nil
		}
	}
	return "", false, nil
}

// Tail returns up to n newest lines, oldest first.
func (l *MemoryLog) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.lines) || n <= 0 {
		n = len(l.lines)
	}
	out := make([]string, n)
	copy(out, l.lines[len(l.lines)-n:])
	return out, nil
}

// Close is a no-op.
func (l *MemoryLog) Close() error { return nil }

// FailWrites makes every later Append fail.
func (l *MemoryLog) FailWrites() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = true
}

// Lines returns a copy of all appended lines.
func (l *MemoryLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}
