package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/racetimer/internal/config"
	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/store"
)

// NewPreviousCommand creates the previous command.
func NewPreviousCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "previous",
		Short: "Show the last completed race",
		Long: `Show the last completed race recorded in the result log.

Reads the newest snapshot line from the configured log. This is the same
result /get/previous-state serves, and it survives restarts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrevious(rootOpts, cmd)
		},
	}
	return cmd
}

func runPrevious(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	l, err := openLog(cfg)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeLogOpen, "failed to open result log", err)
	}
	defer l.Close()

	line, found, err := l.LastMatching(race.StatusTag)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeLogRead, "failed to read result log", err)
	}
	if !found {
		return out.Fail(ExitFailure, ErrCodeNoResult, "no completed race in result log", nil)
	}

	at, payload, ok := store.ParseLine(line)
	if !ok {
		payload = line
	}
	snap, err := race.ParseSnapshotPayload(payload)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeCorruptEntry, "last result is unreadable", err)
	}

	if isJSON(opts) {
		return out.Success(snap)
	}

	text := formatSnapshot(snap)
	if ok {
		text = fmt.Sprintf("Recorded %s\n%s", at.Format(store.TimeLayout), text)
	}
	return out.Success(text)
}

// formatSnapshot renders a snapshot as a small table.
func formatSnapshot(s race.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Race %s: %s (%d of %d lanes finished)\n", orDash(s.RaceID), s.Status, s.LanesCompleted, s.LanesInUse)
	for _, l := range s.Lanes {
		elapsed := "-"
		if l.ElapsedSeconds != nil {
			elapsed = fmt.Sprintf("%.3fs", *l.ElapsedSeconds)
		}
		fmt.Fprintf(&b, "  %2d  %-16s %s\n", l.Lane, l.Name, elapsed)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
