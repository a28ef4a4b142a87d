// Package store provides the append-only result log.
//
// Every entry is one UTF-8 text line:
//
//	2026-10-14 18:04:05.123 - RESET LANES=4
//	2026-10-14 18:04:09.870 - {"status":"COMPLETE",...}
//
// A human-readable local timestamp, the " - " separator, then a free-form
// payload written by the race machine. There is no schema versioning of
// payloads.
//
// Two drivers share that line format:
//   - file: a plain text file opened O_APPEND; the log you can tail
//   - sqlite: one row per line in a WAL-mode SQLite database, for an
//     indexed "last matching line" lookup on long-running installations
//
// Lines are never updated or deleted. Append is safe for concurrent use.
package store
