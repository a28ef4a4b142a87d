package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/racetimer/internal/engine"
	"github.com/roach88/racetimer/internal/race"
)

// Scenario is one recorded track session.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Lanes is the number of configured lanes. Default: 4.
	Lanes int `yaml:"lanes,omitempty"`

	// LanesInUse is the initial lanes-in-use. Default: Lanes.
	LanesInUse int `yaml:"lanes_in_use,omitempty"`

	// CompletionVisual is "solid-off" (default) or "solid-on".
	CompletionVisual string `yaml:"completion_visual,omitempty"`

	// RaceIDs are handed out to successive races. Default: race-0001.
	RaceIDs []string `yaml:"race_ids,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state, the log and the indicator.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a gateway edge (Channel + Edge) or an operator action (Op).
type Step struct {
	// At sets the clock, in milliseconds, before the step. Omitted keeps the
	// previous time.
	At *int64 `yaml:"at,omitempty"`

	Channel string `yaml:"channel,omitempty"`
	Edge    string `yaml:"edge,omitempty"`
	Value   int    `yaml:"value,omitempty"`

	// Op is one of reset, set_lanes, toggle.
	Op    string `yaml:"op,omitempty"`
	Lanes int    `yaml:"lanes,omitempty"`

	// ExpectError is a substring the step's error must contain. Empty means
	// the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Operator actions.
const (
	OpReset    = "reset"
	OpSetLanes = "set_lanes"
	OpToggle   = "toggle"
)

// Assertion validates one aspect of the outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Status is the expected race status (status).
	Status string `yaml:"status,omitempty"`

	// Lane is the lane id (lane).
	Lane int `yaml:"lane,omitempty"`
	// Finished is whether the lane has a finish time (lane).
	Finished *bool `yaml:"finished,omitempty"`
	// Elapsed is the expected elapsed seconds (lane).
	Elapsed *float64 `yaml:"elapsed,omitempty"`

	// Count is the expected number (lanes_completed, log_count).
	Count *int `yaml:"count,omitempty"`

	// Contains is a substring of the newest log line (log_last).
	Contains string `yaml:"contains,omitempty"`

	// Command is the expected last indicator command (indicator_last).
	Command string `yaml:"command,omitempty"`
}

// Assertion types.
const (
	AssertStatus         = "status"
	AssertLane           = "lane"
	AssertLanesCompleted = "lanes_completed"
	AssertLogCount       = "log_count"
	AssertLogLast        = "log_last"
	AssertIndicatorLast  = "indicator_last"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML and fills defaults.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s.Lanes == 0 {
		s.Lanes = 4
	}
	if s.LanesInUse == 0 {
		s.LanesInUse = s.Lanes
	}
	if s.CompletionVisual == "" {
		s.CompletionVisual = string(race.CompleteSolidOff)
	}
	if len(s.RaceIDs) == 0 {
		s.RaceIDs = []string{"race-0001"}
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	switch race.CompletionVisual(s.CompletionVisual) {
	case race.CompleteSolidOff, race.CompleteSolidOn:
	default:
		return fmt.Errorf("completion_visual %q: want solid-off or solid-on", s.CompletionVisual)
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	isEdge := step.Channel != "" || step.Edge != ""
	isOp := step.Op != ""

	switch {
	case isEdge && isOp:
		return fmt.Errorf("step has both an edge and an op")
	case isEdge:
		if step.Channel == "" || step.Edge == "" {
			return fmt.Errorf("edge step needs channel and edge")
		}
		switch engine.Edge(step.Edge) {
		case engine.EdgeOpened, engine.EdgeClosed, engine.EdgeHeld, engine.EdgeChanged:
		default:
			return fmt.Errorf("unknown edge %q", step.Edge)
		}
	case isOp:
		switch step.Op {
		case OpReset, OpToggle:
		case OpSetLanes:
			if step.Lanes == 0 {
				return fmt.Errorf("set_lanes needs lanes")
			}
		default:
			return fmt.Errorf("unknown op %q", step.Op)
		}
	default:
		return fmt.Errorf("step needs channel/edge or op")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("status assertion needs status")
		}
	case AssertLane:
		if a.Lane == 0 {
			return fmt.Errorf("lane assertion needs lane")
		}
	case AssertLanesCompleted, AssertLogCount:
		if a.Count == nil {
			return fmt.Errorf("%s assertion needs count", a.Type)
		}
	case AssertLogLast:
		if a.Contains == "" {
			return fmt.Errorf("log_last assertion needs contains")
		}
	case AssertIndicatorLast:
		if a.Command == "" {
			return fmt.Errorf("indicator_last assertion needs command")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
