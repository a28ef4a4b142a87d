package race

import "fmt"

// Status is the race phase. The string values are the wire format used in
// snapshots and result-log lines.
type Status string

const (
	StatusWaiting  Status = "WAIT"
	StatusRacing   Status = "RACING"
	StatusComplete Status = "COMPLETE"
)

// LaneDef is the immutable definition of one physical lane.
// ID matches the physical sensor index and is stable for the process lifetime.
type LaneDef struct {
	ID   int
	Name string
}

// Lane holds one lane's timing result for the current race cycle.
// FinishTime is written at most once per cycle; Elapsed is set together with it.
type Lane struct {
	LaneDef
	FinishTime *int64   // unix milliseconds
	Elapsed    *float64 // seconds since start
}

func (l Lane) finished() bool {
	return l.FinishTime != nil
}

// LaneResult is the value projection of a Lane.
type LaneResult struct {
	Lane           int      `json:"lane"`
	Name           string   `json:"name,omitempty"`
	FinishTime     *int64   `json:"finishTime"`
	ElapsedSeconds *float64 `json:"elapsedSeconds"`
}

// Snapshot is a read-only copy of the race state. It holds only value data
// and can be serialized without any filtering.
type Snapshot struct {
	Status         Status       `json:"status"`
	RaceID         string       `json:"raceId,omitempty"`
	StartTime      *int64       `json:"startTime"`
	LanesInUse     int          `json:"lanesInUse"`
	LanesCompleted int          `json:"lanesCompleted"`
	Lanes          []LaneResult `json:"lanes"`
}

// Lane returns the result for lane id, or false if the snapshot has no such lane.
func (s Snapshot) Lane(id int) (LaneResult, bool) {
	for _, l := range s.Lanes {
		if l.Lane == id {
			return l, true
		}
	}
	return LaneResult{}, false
}

// DefaultLanes returns n lanes named "Lane 1".."Lane n".
func DefaultLanes(n int) []LaneDef {
	defs := make([]LaneDef, n)
	for i := range defs {
		defs[i] = LaneDef{ID: i + 1, Name: fmt.Sprintf("Lane %d", i+1)}
	}
	return defs
}

func elapsedSeconds(start, finish int64) float64 {
	return float64(finish-start) / 1000
}
