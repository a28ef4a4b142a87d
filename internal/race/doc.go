// Package race implements the race-timing state machine.
//
// A Machine owns one RaceState and moves it through three phases:
//
//	WAIT --release opened--> RACING --last lane finished--> COMPLETE
//	  ^                                                        |
//	  +------------------------- reset ------------------------+
//
// Reset is accepted in every phase. Every operation runs under a single
// mutex, so gateway events and query-service commands are applied in a
// total order. Indicator commands and result-log lines are produced inside
// that critical section; a log line always describes the transition that
// produced it, never a later state.
//
// INVARIANTS (checked by the tests after every operation):
//   - WAIT implies no start time, zero lanes completed, no lane finished
//   - RACING implies a start time and fewer finished lanes than lanes in use
//   - COMPLETE implies a start time and finished lanes == lanes in use
//   - a lane has an elapsed time if and only if it has a finish time
//   - a lane's finish time is written at most once per race cycle
//
// The machine never touches hardware. Indicator commands go to an
// Indicator, log lines go to a ResultLog, and time comes from a Clock;
// all three are injected.
package race
