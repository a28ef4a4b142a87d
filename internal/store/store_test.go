package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		if err := s.Append("RESET LANES=4"); err != nil {
			t.Fatalf("Append() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	lines, err := s.Tail(0)
	if err != nil {
		t.Fatalf("Tail() failed: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("got %d lines after reopen, want 3", len(lines))
	}
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"user_version": "1",
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpen_DefaultsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.log")
	l, err := Open("", path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, ok := l.(*FileLog); !ok {
		t.Errorf("Open(\"\") returned %T, want *FileLog", l)
	}
}

func TestLog_AppendAndTail(t *testing.T) {
	for name, l := range openTestLogs(t) {
		t.Run(name, func(t *testing.T) {
			payloads := []string{"RESET LANES=4", `{"status":"COMPLETE"}`, "RESET LANES=2"}
			for _, p := range payloads {
				if err := l.Append(p); err != nil {
					t.Fatalf("Append(%q) failed: %v", p, err)
				}
			}

			lines, err := l.Tail(2)
			if err != nil {
				t.Fatalf("Tail() failed: %v", err)
			}
			want := []string{
				"2026-10-14 18:04:06.123 - " + payloads[1],
				"2026-10-14 18:04:07.123 - " + payloads[2],
			}
			if len(lines) != len(want) {
				t.Fatalf("Tail(2) = %q, want %q", lines, want)
			}
			for i := range want {
				if lines[i] != want[i] {
					t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
				}
			}

			all, err := l.Tail(0)
			if err != nil {
				t.Fatalf("Tail(0) failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("Tail(0) returned %d lines, want 3", len(all))
			}
		})
	}
}

func TestLog_LastMatching(t *testing.T) {
	for name, l := range openTestLogs(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := l.LastMatching(`"status":`); err != nil || found {
				t.Fatalf("empty log: found=%v err=%v", found, err)
			}

			for _, p := range []string{
				`{"status":"COMPLETE","raceId":"a"}`,
				`{"status":"COMPLETE","raceId":"b"}`,
				"RESET LANES=4",
			} {
				if err := l.Append(p); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			line, found, err := l.LastMatching(`"status":`)
			if err != nil {
				t.Fatalf("LastMatching failed: %v", err)
			}
			if !found {
				t.Fatal("expected a match")
			}
			if got := Payload(line); got != `{"status":"COMPLETE","raceId":"b"}` {
				t.Errorf("payload = %q", got)
			}

			if _, found, _ := l.LastMatching("NO SUCH TAG"); found {
				t.Error("unexpected match for missing tag")
			}
		})
	}
}

func TestLog_EmptyTail(t *testing.T) {
	for name, l := range openTestLogs(t) {
		t.Run(name, func(t *testing.T) {
			lines, err := l.Tail(5)
			if err != nil {
				t.Fatalf("Tail() failed: %v", err)
			}
			if lines == nil || len(lines) != 0 {
				t.Errorf("Tail() on empty log = %#v, want empty slice", lines)
			}
		})
	}
}
