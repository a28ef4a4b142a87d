package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenSuffix is the extension of golden trace files.
const GoldenSuffix = ".golden"

// TraceSnapshot is the golden-file form of a run: the scenario name and its
// trace, nothing run-specific like wall-clock time.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// MarshalTrace renders r's trace as indented JSON without a trailing newline.
func MarshalTrace(name string, r *Result) ([]byte, error) {
	return json.MarshalIndent(TraceSnapshot{ScenarioName: name, Trace: r.Trace}, "", "  ")
}

// GoldenPath is where the golden trace of scenario name lives under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+GoldenSuffix)
}

// RunWithGolden runs s and compares its trace with
// testdata/golden/<s.Name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// A mismatch fails t through goldie; the returned error covers only run
// and marshal failures.
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}
	trace, err := MarshalTrace(s.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, s.Name, trace)
	return result, nil
}
