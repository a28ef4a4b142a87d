package store

import (
	"fmt"
	"time"
)

// Log is the result log contract.
type Log interface {
	// Append writes payload as a new timestamped line.
	Append(payload string) error
	// LastMatching returns the newest full line containing tag.
	LastMatching(tag string) (line string, found bool, err error)
	// Tail returns up to n newest lines, oldest first. n <= 0 returns all lines.
	Tail(n int) ([]string, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Option configures a log.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source for line timestamps. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens a log with the named driver at path, creating it if needed.
func Open(driver, path string, opts ...Option) (Log, error) {
	switch driver {
	case DriverFile, "":
		return OpenFile(path, opts...)
	case DriverSQLite:
		return OpenSQLite(path, opts...)
	default:
		return nil, fmt.Errorf("unknown log driver %q (want %q or %q)", driver, DriverFile, DriverSQLite)
	}
}
