package race

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusTag marks result-log lines that carry a serialized snapshot.
// Reset lines never contain it.
const StatusTag = `"status":`

const resetPrefix = "RESET LANES="

// ResetPayload is the result-log payload for a reset.
func ResetPayload(lanesInUse int) string {
	return fmt.Sprintf("%s%d", resetPrefix, lanesInUse)
}

// IsResetPayload reports whether payload was written by a reset.
func IsResetPayload(payload string) bool {
	return strings.HasPrefix(payload, resetPrefix)
}

// SnapshotPayload is the result-log payload for a completed race: the
// snapshot as single-line JSON.
func SnapshotPayload(s Snapshot) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseSnapshotPayload decodes a payload written by SnapshotPayload.
func ParseSnapshotPayload(payload string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return s, nil
}
