// Package harness replays recorded track sessions against the race machine.
//
// A scenario is a YAML file listing gateway edges and operator actions at
// fixed clock times, plus assertions on the final state. Run drives a real
// race.Machine through the engine dispatch table with a manual clock, an
// in-memory result log and a recording indicator, so every run is
// deterministic. The resulting trace interleaves inputs with the indicator
// commands and log lines they caused, and can be compared against golden
// files with RunWithGolden.
package harness
