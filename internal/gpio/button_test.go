package gpio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetimer/internal/engine"
)

type edgeRecorder struct {
	mu    sync.Mutex
	edges []engine.Edge
}

func (r *edgeRecorder) emit(e engine.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, e)
}

func (r *edgeRecorder) get() []engine.Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Edge(nil), r.edges...)
}

func TestButton_PressRelease(t *testing.T) {
	rec := &edgeRecorder{}
	b := NewButton(0, rec.emit)
	b.Init(0)

	b.Level(1)
	b.Level(1) // bounce at the same level
	b.Level(0)

	assert.Equal(t, []engine.Edge{engine.EdgeClosed, engine.EdgeOpened}, rec.get())
}

func TestButton_FirstSampleWithoutInitEmits(t *testing.T) {
	rec := &edgeRecorder{}
	b := NewButton(0, rec.emit)

	b.Level(0)
	assert.Equal(t, []engine.Edge{engine.EdgeOpened}, rec.get())
}

func TestButton_HeldAfterHoldTime(t *testing.T) {
	rec := &edgeRecorder{}
	b := NewButton(20*time.Millisecond, rec.emit)
	defer b.Close()
	b.Init(0)

	b.Level(1)
	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []engine.Edge{engine.EdgeClosed, engine.EdgeHeld}, rec.get())

	b.Level(0)
	assert.Equal(t, []engine.Edge{engine.EdgeClosed, engine.EdgeHeld, engine.EdgeOpened}, rec.get())
}

func TestButton_ShortPressIsNotHeld(t *testing.T) {
	rec := &edgeRecorder{}
	b := NewButton(50*time.Millisecond, rec.emit)
	defer b.Close()
	b.Init(0)

	b.Level(1)
	b.Level(0)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []engine.Edge{engine.EdgeClosed, engine.EdgeOpened}, rec.get())
}

func TestButton_StaleHoldTimerIgnored(t *testing.T) {
	rec := &edgeRecorder{}
	b := NewButton(time.Hour, rec.emit)
	b.Init(0)

	b.Level(1)
	b.Level(0)
	b.fireHold(1) // timer from the finished press

	assert.NotContains(t, rec.get(), engine.EdgeHeld)
}

func TestSensor_OnlyChanges(t *testing.T) {
	var levels []int
	s := NewSensor(func(l int) { levels = append(levels, l) })
	s.Init(1)

	s.Level(1)
	s.Level(0)
	s.Level(0)
	s.Level(1)

	assert.Equal(t, []int{0, 1}, levels)
}
