package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// stepClock returns a time source that starts at a fixed local time and
// moves forward one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 10, 14, 18, 4, 5, 123_000_000, time.Local)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Second)
		return now
	}
}

// openTestLogs returns one log per driver, closed on cleanup.
func openTestLogs(t *testing.T) map[string]Log {
	t.Helper()
	dir := t.TempDir()

	file, err := Open(DriverFile, filepath.Join(dir, "race.log"), WithClock(stepClock()))
	if err != nil {
		t.Fatalf("Open(file) failed: %v", err)
	}
	db, err := Open(DriverSQLite, filepath.Join(dir, "race.db"), WithClock(stepClock()))
	if err != nil {
		t.Fatalf("Open(sqlite) failed: %v", err)
	}
	t.Cleanup(func() {
		file.Close()
		db.Close()
	})
	return map[string]Log{DriverFile: file, DriverSQLite: db}
}
