package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/racetimer/internal/config"
	"github.com/roach88/racetimer/internal/engine"
	"github.com/roach88/racetimer/internal/gpio"
	"github.com/roach88/racetimer/internal/race"
)

// DiagOptions holds flags for the diag command.
type DiagOptions struct {
	*RootOptions
	Duration time.Duration // 0 runs until signalled

	// Chip overrides the configured GPIO chip (for testing).
	Chip gpio.Chip
	// OnReady is called once inputs are watched (for testing).
	OnReady func()
}

// NewDiagCommand creates the diag command.
func NewDiagCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiagOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Exercise the track wiring",
		Long: `Exercise the track wiring without running races.

Blinks the status light every 300ms and prints every edge seen on the
release gate, reset button and lane sensors. No result log is written.

Example:
  racetimer diag
  racetimer diag --duration 30s --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiag(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 = until Ctrl-C)")

	return cmd
}

// EdgeReport is one edge printed by diag.
type EdgeReport struct {
	Seq     int64  `json:"seq"`
	Channel string `json:"channel"`
	Edge    string `json:"edge"`
	Value   *int   `json:"value,omitempty"`
	At      string `json:"at"`
}

// edgePrinter is a gpio.Sink that prints edges instead of dispatching them.
type edgePrinter struct {
	mu     sync.Mutex
	out    *OutputFormatter
	seq    int64
	closed bool
}

func (p *edgePrinter) Enqueue(ev engine.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.seq++
	ev.Seq = p.seq

	slog.Info("edge", "seq", ev.Seq, "channel", ev.Channel, "edge", ev.Edge, "value", ev.Value)

	report := EdgeReport{
		Seq:     ev.Seq,
		Channel: string(ev.Channel),
		Edge:    string(ev.Edge),
		At:      ev.At.Format(time.RFC3339Nano),
	}
	if ev.Edge == engine.EdgeChanged {
		v := ev.Value
		report.Value = &v
	}
	if err := p.out.Success(textOr(p.out, report, ev.String())); err != nil {
		slog.Warn("print edge", "error", err)
	}
	return true
}

func (p *edgePrinter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func runDiag(opts *DiagOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	chip := opts.Chip
	if chip == nil {
		chip, err = openChip(cfg.GPIO.Chip)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to open gpio chip", err)
		}
		defer chip.Close()
	}

	gw, err := gpio.NewGateway(chip, cfg.Gateway())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to set up gateway", err)
	}
	defer gw.Close()

	printer := &edgePrinter{out: out}
	defer printer.close()
	if err := gw.Start(printer); err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to watch inputs", err)
	}
	if err := gw.Indicator().Apply(race.Blink(race.DiagBlinkInterval)); err != nil {
		slog.Warn("indicator command failed", "error", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	if !isJSON(opts.RootOptions) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Diagnostics running. Trigger the gate, reset button and lane sensors. Press Ctrl-C to stop.")
	}
	if opts.OnReady != nil {
		opts.OnReady()
	}

	<-ctx.Done()
	slog.Info("diagnostics stopped")
	return nil
}

// textOr returns the JSON form for JSON output and text otherwise.
func textOr(f *OutputFormatter, v interface{}, text string) interface{} {
	if f.Format == "json" {
		return v
	}
	return text
}

