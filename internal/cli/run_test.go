package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetimer/internal/engine"
	"github.com/roach88/racetimer/internal/gpio"
	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/testutil"
)

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if v != nil {
		require.NoError(t, json.Unmarshal(body, v), string(body))
	}
	return resp.StatusCode
}

func TestRunController_RaceEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "race:\n  lanes_in_use: 2\n")

	chip := gpio.NewFakeChip()
	for _, pin := range []int{18, 27, 22, 23} {
		chip.Set(pin, 1) // beams unbroken
	}

	ready := make(chan string, 1)
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfgPath},
		Chip:        chip,
		IDs:         race.NewFixedGenerator("race-e2e"),
		OnReady:     func(addr string) { ready <- addr },
	}

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runController(opts, cmd) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("controller exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not become ready")
	}
	base := "http://" + addr

	assert.Equal(t, 1, chip.Level(4), "indicator solid while waiting")

	chip.Set(25, 1) // gate loaded
	chip.Set(25, 0) // gate released
	chip.Set(18, 0) // lane 1 finishes
	chip.Set(27, 0) // lane 2 finishes

	var snap race.Snapshot
	require.Eventually(t, func() bool {
		getJSON(t, base+"/get/state", &snap)
		return snap.Status == race.StatusComplete
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "race-e2e", snap.RaceID)
	assert.Equal(t, 2, snap.LanesCompleted)

	var prev race.Snapshot
	assert.Equal(t, http.StatusOK, getJSON(t, base+"/get/previous-state", &prev))
	assert.Equal(t, "race-e2e", prev.RaceID)

	var sent map[string]bool
	assert.Equal(t, http.StatusOK, getJSON(t, base+"/set/reset", &sent))
	assert.True(t, sent["command_sent"])

	getJSON(t, base+"/get/state", &snap)
	assert.Equal(t, race.StatusWaiting, snap.Status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}

	assert.Contains(t, buf.String(), "Race controller started")

	data, err := os.ReadFile(filepath.Join(dir, "race.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"raceId":"race-e2e"`)
	assert.True(t, strings.HasSuffix(lines[1], " - RESET LANES=2"))
}

func TestRunController_BadConfig(t *testing.T) {
	opts := &RunOptions{RootOptions: &RootOptions{Format: "text", Config: "/nonexistent.yaml"}}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)

	err := runController(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunController_BadLogDriver(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "racetimer.yaml")
	// The schema rejects unknown drivers before the log is opened.
	require.NoError(t, os.WriteFile(cfgPath, []byte("gpio:\n  chip: fake\nlog:\n  driver: tape\n"), 0o644))

	opts := &RunOptions{RootOptions: &RootOptions{Format: "text", Config: cfgPath}}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)

	err := runController(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHoldFault_LatchesFaultBlink(t *testing.T) {
	ind := testutil.NewRecordingIndicator()
	latch := &faultLatch{inner: ind}

	m, err := race.New(race.DefaultLanes(1), 1, race.WithIndicator(latch))
	require.NoError(t, err)
	eng := engine.New(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- holdFault(ctx, eng, latch, race.ErrLogWrite) }()

	require.Eventually(t, latch.Latched, time.Second, 5*time.Millisecond)

	// Transitions after the fault cannot replace the pattern.
	require.NoError(t, m.Reset())
	last, ok := ind.Last()
	require.True(t, ok)
	assert.Equal(t, race.Blink(race.FaultBlinkInterval), last)
	assert.False(t, eng.Enqueue(engine.Event{Channel: engine.ChannelReset, Edge: engine.EdgeClosed}))

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.ErrorIs(t, err, race.ErrLogWrite)
	case <-time.After(time.Second):
		t.Fatal("holdFault did not return after cancel")
	}
}

func TestFaultLatch_ForwardsUntilLatched(t *testing.T) {
	ind := testutil.NewRecordingIndicator()
	latch := &faultLatch{inner: ind}

	require.NoError(t, latch.Apply(race.SolidOn))
	require.NoError(t, latch.Latch(race.Blink(race.FaultBlinkInterval)))
	require.NoError(t, latch.Latch(race.SolidOff))
	require.NoError(t, latch.Apply(race.SolidOff))

	assert.Equal(t, []race.Command{race.SolidOn, race.Blink(race.FaultBlinkInterval)}, ind.Commands())
}
