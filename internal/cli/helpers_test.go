package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/store"
)

// writeConfig writes a config using the fake chip and a log under dir.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	body := fmt.Sprintf(`http:
  addr: "127.0.0.1:0"
gpio:
  chip: fake
log:
  path: %q
%s`, filepath.Join(dir, "race.log"), extra)
	path := filepath.Join(dir, "racetimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// seedLog writes a reset line and one completed race to dir/race.log.
func seedLog(t *testing.T, dir string) race.Snapshot {
	t.Helper()
	l, err := store.OpenFile(filepath.Join(dir, "race.log"))
	require.NoError(t, err)
	defer l.Close()

	start, f1, f2 := int64(1000), int64(3500), int64(4250)
	e1, e2 := 2.5, 3.25
	snap := race.Snapshot{
		Status:         race.StatusComplete,
		RaceID:         "race-0001",
		StartTime:      &start,
		LanesInUse:     2,
		LanesCompleted: 2,
		Lanes: []race.LaneResult{
			{Lane: 1, Name: "Lane 1", FinishTime: &f1, ElapsedSeconds: &e1},
			{Lane: 2, Name: "Lane 2", FinishTime: &f2, ElapsedSeconds: &e2},
		},
	}
	payload, err := race.SnapshotPayload(snap)
	require.NoError(t, err)

	require.NoError(t, l.Append(race.ResetPayload(2)))
	require.NoError(t, l.Append(payload))
	require.NoError(t, l.Append(race.ResetPayload(2)))
	return snap
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
