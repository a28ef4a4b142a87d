package store

import (
	"strings"
	"time"
)

// TimeLayout is the timestamp prefix of every log line.
const TimeLayout = "2006-01-02 15:04:05.000"

// Separator splits the timestamp from the payload.
const Separator = " - "

// FormatLine renders one log line. Newlines in payload are replaced by
// spaces so an entry always occupies exactly one line.
func FormatLine(at time.Time, payload string) string {
	payload = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(payload)
	return at.Format(TimeLayout) + Separator + payload
}

// ParseLine splits a stored line into its timestamp and payload.
// ok is false if the line has no separator or an unreadable timestamp.
func ParseLine(line string) (at time.Time, payload string, ok bool) {
	stamp, payload, found := strings.Cut(line, Separator)
	if !found {
		return time.Time{}, "", false
	}
	at, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	return at, payload, true
}

// Payload returns the payload part of a line, or the whole line if it has
// no timestamp prefix.
func Payload(line string) string {
	if _, p, ok := ParseLine(line); ok {
		return p
	}
	return line
}
