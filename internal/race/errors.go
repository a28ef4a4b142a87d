package race

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLaneCount is returned when lanes-in-use is not in 1..len(lanes).
	ErrInvalidLaneCount = errors.New("invalid lane count")

	// ErrLogWrite wraps a result-log append failure. Under LogFailFatal the
	// machine state has already changed when this is returned; the caller is
	// expected to stop the process.
	ErrLogWrite = errors.New("result log write failed")
)

// LaneError reports a lane id that does not identify a configured lane.
type LaneError struct {
	Lane  int
	Lanes int
}

func (e *LaneError) Error() string {
	return fmt.Sprintf("unknown lane %d (configured lanes: 1..%d)", e.Lane, e.Lanes)
}

// IsLaneError returns true if err is or wraps a *LaneError.
func IsLaneError(err error) bool {
	var le *LaneError
	return errors.As(err, &le)
}
