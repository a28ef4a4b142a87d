// Package engine delivers gateway events to the race machine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Gateway callbacks run on whatever goroutine the GPIO driver uses. They
// only Enqueue; one Run goroutine dequeues in FIFO order and applies each
// event through the dispatch table. Events are never reordered or
// coalesced. Duplicate finish edges for a lane reach the machine and are
// collapsed there by its at-most-once rule.
//
// Dispatch Table:
// Channels ("release", "reset", "lane:N") map to handlers registered once
// in New. Each lane handler captures its own lane id; no handler reads a
// shared loop variable.
//
// Error Handling:
// A handler error wrapping race.ErrLogWrite, or a handler panic, is fatal
// and ends Run with that error. Any other handler error (unknown lane,
// unknown channel) is logged and processing continues.
package engine
