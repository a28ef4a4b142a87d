package race

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ResultLog receives one fully formed payload per reset and per completed race.
// The sink adds its own timestamp prefix.
type ResultLog interface {
	Append(line string) error
}

// LogFailurePolicy decides what a failed result-log append does.
type LogFailurePolicy int

const (
	// LogFailFatal returns ErrLogWrite from the operation that wrote the line.
	LogFailFatal LogFailurePolicy = iota
	// LogFailWarn logs a warning and carries on.
	LogFailWarn
)

// Machine is the race state machine.
//
// Thread-safety: every exported method takes the same mutex, so operations
// are applied one at a time in a total order. Indicator and result-log calls
// are made while the mutex is held.
type Machine struct {
	mu sync.Mutex

	clock     Clock
	indicator Indicator
	log       ResultLog
	ids       IDGenerator
	policy    LogFailurePolicy
	visual    CompletionVisual

	status         Status
	raceID         string
	startTime      *int64
	lanes          []Lane
	index          map[int]int // lane id -> position in lanes
	lanesCompleted int
	lanesInUse     int // configured for future cycles
	raceLanes      int // captured when the current cycle started
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithIndicator sets the status light. Default: NopIndicator.
func WithIndicator(ind Indicator) Option {
	return func(m *Machine) { m.indicator = ind }
}

// WithResultLog sets the result-log sink. Default: none.
func WithResultLog(l ResultLog) Option {
	return func(m *Machine) { m.log = l }
}

// WithIDGenerator sets the race id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Machine) { m.ids = g }
}

// WithLogFailurePolicy sets the reaction to a failed log append. Default: LogFailFatal.
func WithLogFailurePolicy(p LogFailurePolicy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithCompletionVisual sets the indicator state for a completed race. Default: solid-off.
func WithCompletionVisual(v CompletionVisual) Option {
	return func(m *Machine) { m.visual = v }
}

// New creates a machine in WAIT for the given lanes.
//
// Lane ids must be unique and positive. lanesInUse must be in 1..len(lanes).
// New does not drive the indicator or write to the log. The caller applies
// IndicatorFor(StatusWaiting, ...) for the startup indicator state.
func New(lanes []LaneDef, lanesInUse int, opts ...Option) (*Machine, error) {
	if len(lanes) == 0 {
		return nil, errors.New("no lanes configured")
	}

	m := &Machine{
		clock:     SystemClock{},
		indicator: NopIndicator{},
		ids:       UUIDv7Generator{},
		policy:    LogFailFatal,
		visual:    CompleteSolidOff,
		status:    StatusWaiting,
		lanes:     make([]Lane, len(lanes)),
		index:     make(map[int]int, len(lanes)),
	}

	for i, def := range lanes {
		if def.ID < 1 {
			return nil, fmt.Errorf("lane id %d: must be positive", def.ID)
		}
		if _, dup := m.index[def.ID]; dup {
			return nil, fmt.Errorf("duplicate lane id %d", def.ID)
		}
		m.index[def.ID] = i
		m.lanes[i] = Lane{LaneDef: def}
	}

	if err := m.checkLaneCount(lanesInUse); err != nil {
		return nil, err
	}
	m.lanesInUse = lanesInUse
	m.raceLanes = lanesInUse

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// OnReleaseOpened starts the race clock. Only the first open edge of a cycle
// counts; later edges (gate bounce, re-trigger) are ignored until Reset.
func (m *Machine) OnReleaseOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusWaiting || m.startTime != nil {
		slog.Debug("release opened ignored", "status", m.status)
		return
	}

	now := m.clock.Now().UnixMilli()
	m.startTime = &now
	m.status = StatusRacing
	m.raceLanes = m.lanesInUse
	m.raceID = m.ids.Generate()

	slog.Info("race started", "race_id", m.raceID, "lanes_in_use", m.raceLanes)
	m.indicate(Blink(RacingBlinkInterval))
}

// OnReleaseHeld is the reload signal. It stops the blink and never resets
// state: a result under review survives until an explicit Reset.
func (m *Machine) OnReleaseHeld() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.indicate(StopBlink)
}

// OnReleaseClosed lights the ready indicator when the gate is closed on an
// idle track.
func (m *Machine) OnReleaseClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusWaiting {
		return
	}
	slog.Info("waiting to start")
	m.indicate(SolidOn)
}

// OnLaneFinished records the finish of lane id.
//
// A lane records at most one finish per cycle; repeated edges are no-ops.
// Finish edges outside RACING are ignored. The finish that brings the count
// to the cycle's lanes-in-use completes the race and writes the snapshot to
// the result log.
//
// Returns a *LaneError for an id that is not configured, or ErrLogWrite
// under LogFailFatal if the completion line could not be written.
func (m *Machine) OnLaneFinished(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.index[id]
	if !ok {
		return &LaneError{Lane: id, Lanes: len(m.lanes)}
	}

	if m.status != StatusRacing {
		slog.Debug("finish ignored", "lane", id, "status", m.status)
		return nil
	}

	lane := &m.lanes[idx]
	if lane.finished() {
		slog.Debug("duplicate finish ignored", "lane", id)
		return nil
	}

	now := m.clock.Now().UnixMilli()
	elapsed := elapsedSeconds(*m.startTime, now)
	lane.FinishTime = &now
	lane.Elapsed = &elapsed
	m.lanesCompleted++

	slog.Info("lane finished", "lane", id, "elapsed_seconds", elapsed, "lanes_completed", m.lanesCompleted)

	if m.lanesCompleted != m.raceLanes || m.status == StatusComplete {
		return nil
	}

	m.status = StatusComplete
	slog.Info("race complete", "race_id", m.raceID)
	m.indicate(StopBlink)
	m.indicate(m.visual.command())

	payload, err := SnapshotPayload(m.snapshotLocked())
	if err != nil {
		return fmt.Errorf("encode completion snapshot: %w", err)
	}
	return m.record(payload)
}

// Reset returns the machine to WAIT from any state, clears all results,
// lights the indicator and writes a reset line to the result log.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resetLocked()
}

// SetLanesInUse stores n for future race cycles. A race already running
// completes against the lane count it started with.
func (m *Machine) SetLanesInUse(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLaneCount(n); err != nil {
		return err
	}
	m.lanesInUse = n
	if m.status == StatusWaiting {
		m.raceLanes = n
	}
	slog.Info("lanes in use changed", "lanes_in_use", n)
	return nil
}

// ResetWithLanes sets lanes-in-use and resets in one step, so the reset line
// records the lane count of the cycle it opens.
func (m *Machine) ResetWithLanes(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLaneCount(n); err != nil {
		return err
	}
	m.lanesInUse = n
	return m.resetLocked()
}

// ToggleIndicator flips the status light without touching race state.
func (m *Machine) ToggleIndicator() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.indicate(Toggle)
}

// LanesInUse returns the configured lane count for future cycles.
func (m *Machine) LanesInUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lanesInUse
}

// LaneIDs returns the configured lane ids in order.
func (m *Machine) LaneIDs() []int {
	ids := make([]int, len(m.lanes))
	for i, l := range m.lanes {
		ids[i] = l.ID
	}
	return ids
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

func (m *Machine) resetLocked() error {
	m.status = StatusWaiting
	m.raceID = ""
	m.startTime = nil
	for i := range m.lanes {
		m.lanes[i].FinishTime = nil
		m.lanes[i].Elapsed = nil
	}
	m.lanesCompleted = 0
	m.raceLanes = m.lanesInUse

	slog.Info("race reset", "lanes_in_use", m.lanesInUse)
	m.indicate(SolidOn)
	return m.record(ResetPayload(m.lanesInUse))
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:         m.status,
		RaceID:         m.raceID,
		StartTime:      copyInt64(m.startTime),
		LanesInUse:     m.raceLanes,
		LanesCompleted: m.lanesCompleted,
		Lanes:          make([]LaneResult, len(m.lanes)),
	}
	for i, l := range m.lanes {
		s.Lanes[i] = LaneResult{
			Lane:           l.ID,
			Name:           l.Name,
			FinishTime:     copyInt64(l.FinishTime),
			ElapsedSeconds: copyFloat64(l.Elapsed),
		}
	}
	return s
}

func (m *Machine) checkLaneCount(n int) error {
	if n < 1 || n > len(m.lanes) {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidLaneCount, n, len(m.lanes))
	}
	return nil
}

// indicate applies cmd. Indicator faults belong to the gateway and never
// fail a race transition.
func (m *Machine) indicate(cmd Command) {
	if err := m.indicator.Apply(cmd); err != nil {
		slog.Warn("indicator command failed", "command", cmd.String(), "error", err)
	}
}

func (m *Machine) record(payload string) error {
	if m.log == nil {
		return nil
	}
	if err := m.log.Append(payload); err != nil {
		if m.policy == LogFailWarn {
			slog.Warn("result log write failed", "payload", payload, "error", err)
			return nil
		}
		return fmt.Errorf("%w: %w", ErrLogWrite, err)
	}
	return nil
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
