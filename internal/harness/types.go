package harness

import "github.com/roach88/racetimer/internal/race"

// Trace entry kinds.
const (
	KindEdge      = "edge"
	KindOp        = "op"
	KindIndicator = "indicator"
	KindLog       = "log"
	KindError     = "error"
)

// TraceEvent is one entry of a run: an input, or an effect it caused.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	At     int64  `json:"at"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists inputs and effects in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the machine snapshot after the last step.
	Final race.Snapshot `json:"final"`

	// Log holds the result-log payloads written during the run.
	Log []string `json:"log"`

	// Indicator holds every indicator command, in order.
	Indicator []string `json:"indicator"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Log:       []string{},
		Indicator: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(at int64, kind, detail string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    int64(len(r.Trace) + 1),
		At:     at,
		Kind:   kind,
		Detail: detail,
	})
}
