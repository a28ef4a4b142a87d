package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/racetimer/internal/engine"
	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/testutil"
)

// Harness holds the deterministic collaborators of one run.
type Harness struct {
	clock   *testutil.ManualClock
	machine *race.Machine
	engine  *engine.Engine
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh machine, so scenarios are isolated. An error is
// returned only if the machine cannot be built; step and assertion failures
// are reported in the Result.
func Run(s *Scenario) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewManualClock(0),
		result: NewResult(),
	}

	m, err := race.New(race.DefaultLanes(s.Lanes), s.LanesInUse,
		race.WithClock(h.clock),
		race.WithIndicator(traceIndicator{h}),
		race.WithResultLog(traceLog{h}),
		race.WithIDGenerator(race.NewFixedGenerator(s.RaceIDs...)),
		race.WithCompletionVisual(race.CompletionVisual(s.CompletionVisual)),
	)
	if err != nil {
		return nil, fmt.Errorf("build machine: %w", err)
	}
	h.machine = m
	h.engine = engine.New(m)

	ctx := context.Background()
	for i, step := range s.Steps {
		if step.At != nil {
			h.clock.Set(*step.At)
		}
		err := h.apply(ctx, step)
		if err != nil {
			h.result.addTrace(h.now(), KindError, err.Error())
		}
		h.checkStepError(i, step, err)
	}

	h.result.Final = m.Snapshot()
	if err := race.CheckInvariants(h.result.Final); err != nil {
		h.result.AddError(fmt.Sprintf("invariants violated: %v", err))
	}

	for i, a := range s.Assertions {
		if err := evaluate(h.result, a); err != nil {
			h.result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return h.result, nil
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	if step.Op == "" {
		ev := engine.Event{
			Channel: engine.Channel(step.Channel),
			Edge:    engine.Edge(step.Edge),
			Value:   step.Value,
			At:      h.clock.Now(),
		}
		detail := step.Channel + " " + step.Edge
		if ev.Edge == engine.EdgeChanged {
			detail = fmt.Sprintf("%s=%d", detail, step.Value)
		}
		h.result.addTrace(h.now(), KindEdge, detail)
		return h.engine.Handle(ctx, ev)
	}

	switch step.Op {
	case OpReset:
		if step.Lanes > 0 {
			h.result.addTrace(h.now(), KindOp, fmt.Sprintf("reset lanes=%d", step.Lanes))
			return h.machine.ResetWithLanes(step.Lanes)
		}
		h.result.addTrace(h.now(), KindOp, "reset")
		return h.machine.Reset()
	case OpSetLanes:
		h.result.addTrace(h.now(), KindOp, fmt.Sprintf("set_lanes %d", step.Lanes))
		return h.machine.SetLanesInUse(step.Lanes)
	case OpToggle:
		h.result.addTrace(h.now(), KindOp, "toggle")
		h.machine.ToggleIndicator()
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) checkStepError(i int, step Step, err error) {
	switch {
	case step.ExpectError == "" && err != nil:
		h.result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case step.ExpectError != "" && err == nil:
		h.result.AddError(fmt.Sprintf("steps[%d]: expected error containing %q, got none", i, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		h.result.AddError(fmt.Sprintf("steps[%d]: expected error containing %q, got %v", i, step.ExpectError, err))
	}
}

func (h *Harness) now() int64 {
	return h.clock.Now().UnixMilli()
}

// traceIndicator records indicator commands into the trace.
type traceIndicator struct{ h *Harness }

func (t traceIndicator) Apply(cmd race.Command) error {
	t.h.result.Indicator = append(t.h.result.Indicator, cmd.String())
	t.h.result.addTrace(t.h.now(), KindIndicator, cmd.String())
	return nil
}

// traceLog records result-log payloads into the trace.
type traceLog struct{ h *Harness }

func (t traceLog) Append(payload string) error {
	if payload == "" {
		return errors.New("empty payload")
	}
	t.h.result.Log = append(t.h.result.Log, payload)
	t.h.result.addTrace(t.h.now(), KindLog, payload)
	return nil
}
