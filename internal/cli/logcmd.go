package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/racetimer/internal/config"
	"github.com/roach88/racetimer/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Lines int
}

// LogEntry is one result-log line split into its parts.
type LogEntry struct {
	At      string `json:"at,omitempty"`
	Payload string `json:"payload"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the newest result-log lines",
		Long: `Print the newest lines of the result log, oldest first.

Example:
  racetimer log -n 20
  racetimer log --lines 0 --format json   # whole log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 10, "number of lines (0 = all)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	l, err := openLog(cfg)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeLogOpen, "failed to open result log", err)
	}
	defer l.Close()

	lines, err := l.Tail(opts.Lines)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeLogRead, "failed to read result log", err)
	}

	if !isJSON(opts.RootOptions) {
		if len(lines) == 0 {
			return out.Success("(result log is empty)")
		}
		return out.Success(strings.Join(lines, "\n"))
	}

	entries := make([]LogEntry, len(lines))
	for i, line := range lines {
		if at, payload, ok := store.ParseLine(line); ok {
			entries[i] = LogEntry{At: at.Format(store.TimeLayout), Payload: payload}
		} else {
			entries[i] = LogEntry{Payload: line}
		}
	}
	return out.Success(entries)
}
