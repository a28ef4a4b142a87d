package harness

import (
	"fmt"
	"math"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluate checks one assertion against a finished run.
func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertStatus:
		if string(r.Final.Status) != a.Status {
			return &AssertionError{Type: a.Type, Expected: a.Status, Actual: string(r.Final.Status)}
		}

	case AssertLane:
		return assertLane(r, a)

	case AssertLanesCompleted:
		if r.Final.LanesCompleted != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprint(*a.Count),
				Actual:   fmt.Sprint(r.Final.LanesCompleted),
			}
		}

	case AssertLogCount:
		if len(r.Log) != *a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(len(r.Log))}
		}

	case AssertLogLast:
		if len(r.Log) == 0 {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("line containing %q", a.Contains), Actual: "empty log"}
		}
		if last := r.Log[len(r.Log)-1]; !strings.Contains(last, a.Contains) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("line containing %q", a.Contains), Actual: last}
		}

	case AssertIndicatorLast:
		if len(r.Indicator) == 0 {
			return &AssertionError{Type: a.Type, Expected: a.Command, Actual: "no commands"}
		}
		if last := r.Indicator[len(r.Indicator)-1]; last != a.Command {
			return &AssertionError{Type: a.Type, Expected: a.Command, Actual: last}
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertLane(r *Result, a Assertion) error {
	lane, ok := r.Final.Lane(a.Lane)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("lane %d", a.Lane), Actual: "no such lane"}
	}

	finished := lane.FinishTime != nil
	if a.Finished != nil && *a.Finished != finished {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("lane %d finished=%t", a.Lane, *a.Finished),
			Actual:   fmt.Sprintf("finished=%t", finished),
		}
	}

	if a.Elapsed != nil {
		if lane.ElapsedSeconds == nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("lane %d elapsed %gs", a.Lane, *a.Elapsed),
				Actual:   "no finish",
			}
		}
		if math.Abs(*lane.ElapsedSeconds-*a.Elapsed) > 1e-9 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("lane %d elapsed %gs", a.Lane, *a.Elapsed),
				Actual:   fmt.Sprintf("%gs", *lane.ElapsedSeconds),
			}
		}
	}
	return nil
}
