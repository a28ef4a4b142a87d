package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/testutil"
)

func setupMachine(t *testing.T, lanes, inUse int) (*race.Machine, *testutil.ManualClock, *testutil.MemoryLog) {
	t.Helper()
	clock := testutil.NewManualClock(0)
	log := testutil.NewMemoryLog()
	m, err := race.New(race.DefaultLanes(lanes), inUse,
		race.WithClock(clock),
		race.WithResultLog(log),
		race.WithIDGenerator(race.NewFixedGenerator("race-1")),
	)
	require.NoError(t, err)
	return m, clock, log
}

func finish(id int) Event {
	return Event{Channel: LaneChannel(id), Edge: EdgeChanged, Value: DefaultFinishValue}
}

func TestEngine_DispatchTable(t *testing.T) {
	m, _, _ := setupMachine(t, 3, 3)
	e := New(m)

	assert.Equal(t, []Channel{"lane:1", "lane:2", "lane:3", ChannelRelease, ChannelReset}, e.Channels())
}

func TestEngine_LaneHandlersBoundToOwnLane(t *testing.T) {
	m, clock, _ := setupMachine(t, 4, 4)
	e := New(m)
	ctx := context.Background()

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelRelease, Edge: EdgeOpened}))
	for id := 1; id <= 4; id++ {
		clock.Set(int64(id * 1000))
		require.NoError(t, e.Handle(ctx, finish(id)))
	}

	s := m.Snapshot()
	for id := 1; id <= 4; id++ {
		l, ok := s.Lane(id)
		require.True(t, ok)
		require.NotNil(t, l.FinishTime, "lane %d", id)
		assert.Equal(t, int64(id*1000), *l.FinishTime, "lane %d got another lane's edge", id)
	}
}

func TestEngine_IdleLevelIsNotAFinish(t *testing.T) {
	m, _, _ := setupMachine(t, 2, 2)
	e := New(m)
	ctx := context.Background()

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelRelease, Edge: EdgeOpened}))
	require.NoError(t, e.Handle(ctx, Event{Channel: LaneChannel(1), Edge: EdgeChanged, Value: 1}))

	assert.Equal(t, 0, m.Snapshot().LanesCompleted)
}

func TestEngine_CustomFinishValue(t *testing.T) {
	m, _, _ := setupMachine(t, 1, 1)
	e := New(m, WithFinishValue(1))
	ctx := context.Background()

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelRelease, Edge: EdgeOpened}))
	require.NoError(t, e.Handle(ctx, Event{Channel: LaneChannel(1), Edge: EdgeChanged, Value: 0}))
	assert.Equal(t, race.StatusRacing, m.Snapshot().Status)

	require.NoError(t, e.Handle(ctx, Event{Channel: LaneChannel(1), Edge: EdgeChanged, Value: 1}))
	assert.Equal(t, race.StatusComplete, m.Snapshot().Status)
}

func TestEngine_ReleaseAndResetEdges(t *testing.T) {
	m, _, log := setupMachine(t, 1, 1)
	e := New(m)
	ctx := context.Background()

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelRelease, Edge: EdgeOpened}))
	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelRelease, Edge: EdgeHeld}))
	assert.Equal(t, race.StatusRacing, m.Snapshot().Status, "hold must not reset")

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelReset, Edge: EdgeOpened}))
	assert.Equal(t, race.StatusRacing, m.Snapshot().Status, "reset fires on press only")

	require.NoError(t, e.Handle(ctx, Event{Channel: ChannelReset, Edge: EdgeClosed}))
	assert.Equal(t, race.StatusWaiting, m.Snapshot().Status)
	assert.Equal(t, []string{"RESET LANES=1"}, log.Lines())
}

func TestEngine_UnknownChannel(t *testing.T) {
	m, _, _ := setupMachine(t, 1, 1)
	e := New(m)

	err := e.Handle(context.Background(), Event{Channel: LaneChannel(9), Edge: EdgeChanged})
	assert.Error(t, err)
}

func TestEngine_RunAppliesInOrder(t *testing.T) {
	m, clock, _ := setupMachine(t, 2, 2)
	e := New(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// The clock is frozen, so ordering shows up only in which edges count:
	// finishes before the open edge are ignored.
	clock.Set(500)
	require.True(t, e.Enqueue(finish(1)))
	require.True(t, e.Enqueue(Event{Channel: ChannelRelease, Edge: EdgeOpened}))
	require.True(t, e.Enqueue(finish(1)))
	require.True(t, e.Enqueue(finish(1)))
	require.True(t, e.Enqueue(finish(2)))

	require.Eventually(t, func() bool {
		return m.Snapshot().Status == race.StatusComplete
	}, time.Second, 5*time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, 2, s.LanesCompleted)

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.False(t, e.Enqueue(finish(1)), "enqueue after stop must fail")
}

func TestEngine_RunStopsOnContextCancel(t *testing.T) {
	m, _, _ := setupMachine(t, 1, 1)
	e := New(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngine_RunContinuesAfterNonFatalError(t *testing.T) {
	m, _, _ := setupMachine(t, 1, 1)
	e := New(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	e.Enqueue(Event{Channel: "bogus", Edge: EdgeOpened})
	e.Enqueue(Event{Channel: ChannelRelease, Edge: EdgeOpened})

	require.Eventually(t, func() bool {
		return m.Snapshot().Status == race.StatusRacing
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_RunExitsOnLogFailure(t *testing.T) {
	m, _, log := setupMachine(t, 1, 1)
	log.FailWrites()
	e := New(m)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Enqueue(Event{Channel: ChannelReset, Edge: EdgeClosed})

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, race.ErrLogWrite))
	case <-time.After(time.Second):
		t.Fatal("Run should stop on a fatal log error")
	}
}

type panickyMachine struct{ RaceMachine }

func (panickyMachine) OnReleaseOpened() { panic("gpio exploded") }
func (panickyMachine) LaneIDs() []int  { return nil }

func TestEngine_HandlerPanicIsFatal(t *testing.T) {
	e := New(panickyMachine{})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.Enqueue(Event{Channel: ChannelRelease, Edge: EdgeOpened})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrHandlerPanic)
		assert.Contains(t, err.Error(), "gpio exploded")
	case <-time.After(time.Second):
		t.Fatal("Run should stop on a handler panic")
	}
}

func TestEngine_EnqueueStampsSeq(t *testing.T) {
	m, _, _ := setupMachine(t, 1, 1)
	e := New(m)

	e.Enqueue(finish(1))
	e.Enqueue(finish(1))
	assert.Equal(t, 2, e.QueueLen())

	first, _ := e.queue.pop()
	second, _ := e.queue.pop()
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.At.IsZero())
}
