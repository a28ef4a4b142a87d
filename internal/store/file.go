package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileLog is the text-file driver.
type FileLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
	opts options
}

// OpenFile opens (or creates) an append-only text log at path.
func OpenFile(path string, opts ...Option) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	return &FileLog{path: path, f: f, opts: buildOptions(opts)}, nil
}

// Append writes one line and syncs it to disk.
func (l *FileLog) Append(payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return fmt.Errorf("append %s: log closed", l.path)
	}
	line := FormatLine(l.opts.now(), payload) + "\n"
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}
	return nil
}

// LastMatching scans the file and keeps the newest line containing tag.
func (l *FileLog) LastMatching(tag string) (string, bool, error) {
	var last string
	found := false
	err := l.scan(func(line string) {
		if strings.Contains(line, tag) {
			last, found = line, true
		}
	})
	if err != nil {
		return "", false, err
	}
	return last, found, nil
}

// Tail returns up to n newest lines.
func (l *FileLog) Tail(n int) ([]string, error) {
	var lines []string
	err := l.scan(func(line string) {
		lines = append(lines, line)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	})
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// Close closes the file. Further appends fail.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// scan reads the file through a separate read-only handle, holding the
// mutex so no half-written line is observed.
func (l *FileLog) scan(fn func(line string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("read result log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			fn(line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read result log: %w", err)
	}
	return nil
}
