package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetPayload(t *testing.T) {
	assert.Equal(t, "RESET LANES=4", ResetPayload(4))
	assert.True(t, IsResetPayload(ResetPayload(2)))
	assert.False(t, IsResetPayload(`{"status":"COMPLETE"}`))
	assert.NotContains(t, ResetPayload(3), StatusTag)
}

func TestSnapshotPayload_CarriesStatusTag(t *testing.T) {
	start := int64(10)
	payload, err := SnapshotPayload(Snapshot{Status: StatusComplete, StartTime: &start, LanesInUse: 1})
	require.NoError(t, err)
	assert.Contains(t, payload, StatusTag)
	assert.NotContains(t, payload, "\n")
}

func TestParseSnapshotPayload_Invalid(t *testing.T) {
	_, err := ParseSnapshotPayload("RESET LANES=4")
	assert.Error(t, err)
}

func TestCheckInvariants_DetectsViolations(t *testing.T) {
	start := int64(0)
	finish := int64(1000)
	wrong := 9.0
	right := 1.0

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"wait with start", Snapshot{Status: StatusWaiting, StartTime: &start, LanesInUse: 1}},
		{"racing without start", Snapshot{Status: StatusRacing, LanesInUse: 1}},
		{"racing at full count", Snapshot{Status: StatusRacing, StartTime: &start, LanesInUse: 1, LanesCompleted: 1,
			Lanes: []LaneResult{{Lane: 1, FinishTime: &finish, ElapsedSeconds: &right}}}},
		{"complete short", Snapshot{Status: StatusComplete, StartTime: &start, LanesInUse: 2}},
		{"elapsed without finish", Snapshot{Status: StatusRacing, StartTime: &start, LanesInUse: 2,
			Lanes: []LaneResult{{Lane: 1, ElapsedSeconds: &right}}}},
		{"wrong elapsed", Snapshot{Status: StatusRacing, StartTime: &start, LanesInUse: 2, LanesCompleted: 1,
			Lanes: []LaneResult{{Lane: 1, FinishTime: &finish, ElapsedSeconds: &wrong}}}},
		{"count mismatch", Snapshot{Status: StatusRacing, StartTime: &start, LanesInUse: 2, LanesCompleted: 1}},
		{"unknown status", Snapshot{Status: "LIMBO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, CheckInvariants(tt.snap))
		})
	}
}
