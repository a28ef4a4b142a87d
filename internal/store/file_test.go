package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestFileLog_LayoutOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.log")
	l, err := OpenFile(path, WithClock(stepClock()))
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	if err := l.Append("RESET LANES=4"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := l.Append("multi\nline"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "2026-10-14 18:04:05.123 - RESET LANES=4\n" +
		"2026-10-14 18:04:06.123 - multi line\n"
	if string(data) != want {
		t.Errorf("file contents = %q, want %q", data, want)
	}
}

func TestFileLog_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.log")
	if err := os.WriteFile(path, []byte("2026-01-01 00:00:00.000 - RESET LANES=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer l.Close()
	if err := l.Append("RESET LANES=2"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	lines, err := l.Tail(0)
	if err != nil {
		t.Fatalf("Tail() failed: %v", err)
	}
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "RESET LANES=2") {
		t.Errorf("lines = %q", lines)
	}
}

func TestFileLog_AppendAfterClose(t *testing.T) {
	l, err := OpenFile(filepath.Join(t.TempDir(), "race.log"))
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := l.Append("RESET LANES=4"); err == nil {
		t.Error("expected error appending to closed log")
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestFileLog_ConcurrentAppends(t *testing.T) {
	l, err := OpenFile(filepath.Join(t.TempDir(), "race.log"))
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Append(`{"status":"COMPLETE"}`); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	lines, err := l.Tail(0)
	if err != nil {
		t.Fatalf("Tail() failed: %v", err)
	}
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if Payload(line) != `{"status":"COMPLETE"}` {
			t.Errorf("torn line %q", line)
		}
	}
}

func TestOpenFile_BadPath(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing", "dir", "race.log")); err == nil {
		t.Error("expected error for missing directory")
	}
}
