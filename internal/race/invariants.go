package race

import (
	"errors"
	"fmt"
	"math"
)

// CheckInvariants verifies the state invariants on a snapshot and returns
// every violation found, joined.
func CheckInvariants(s Snapshot) error {
	var errs []error

	finished := 0
	for _, l := range s.Lanes {
		if (l.FinishTime == nil) != (l.ElapsedSeconds == nil) {
			errs = append(errs, fmt.Errorf("lane %d: finish time and elapsed seconds disagree", l.Lane))
			continue
		}
		if l.FinishTime == nil {
			continue
		}
		finished++
		if s.StartTime == nil {
			errs = append(errs, fmt.Errorf("lane %d: finished without a start time", l.Lane))
			continue
		}
		want := elapsedSeconds(*s.StartTime, *l.FinishTime)
		if math.Abs(*l.ElapsedSeconds-want) > 1e-9 {
			errs = append(errs, fmt.Errorf("lane %d: elapsed %v, want %v", l.Lane, *l.ElapsedSeconds, want))
		}
	}

	if finished != s.LanesCompleted {
		errs = append(errs, fmt.Errorf("lanes completed %d, but %d lanes finished", s.LanesCompleted, finished))
	}

	switch s.Status {
	case StatusWaiting:
		if s.StartTime != nil {
			errs = append(errs, errors.New("WAIT with a start time"))
		}
		if s.LanesCompleted != 0 {
			errs = append(errs, fmt.Errorf("WAIT with %d lanes completed", s.LanesCompleted))
		}
	case StatusRacing:
		if s.StartTime == nil {
			errs = append(errs, errors.New("RACING without a start time"))
		}
		if s.LanesCompleted >= s.LanesInUse {
			errs = append(errs, fmt.Errorf("RACING with %d of %d lanes completed", s.LanesCompleted, s.LanesInUse))
		}
	case StatusComplete:
		if s.StartTime == nil {
			errs = append(errs, errors.New("COMPLETE without a start time"))
		}
		if s.LanesCompleted != s.LanesInUse {
			errs = append(errs, fmt.Errorf("COMPLETE with %d of %d lanes completed", s.LanesCompleted, s.LanesInUse))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown status %q", s.Status))
	}

	return errors.Join(errs...)
}
