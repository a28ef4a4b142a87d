package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/racetimer/internal/api"
	"github.com/roach88/racetimer/internal/config"
	"github.com/roach88/racetimer/internal/engine"
	"github.com/roach88/racetimer/internal/gpio"
	"github.com/roach88/racetimer/internal/race"
)

// shutdownTimeout bounds the HTTP server drain on exit.
const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Addr  string // overrides http.addr
	Watch bool   // reload lanes_in_use when the config file changes

	// Chip overrides the configured GPIO chip (for testing).
	Chip gpio.Chip
	// IDs overrides the race id generator (for testing).
	IDs race.IDGenerator
	// OnReady is called with the HTTP listen address once serving (for testing).
	OnReady func(addr string)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the race controller",
		Long: `Run the race controller.

Opens the result log and the GPIO chip, starts the single-writer event loop
and serves the query API. The status light is solid while waiting, blinks
while racing and goes to the completion state when every lane in use has
finished.

If the result log cannot be written the controller stops processing, blinks
the light rapidly and waits for SIGINT/SIGTERM, then exits with code 1.

Example:
  racetimer run --config /etc/racetimer.yaml
  racetimer run --addr :9000 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (overrides http.addr)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "apply race.lanes_in_use changes from the config file without restart")

	return cmd
}

func runController(opts *RunOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	slog.Info("opening result log", "driver", cfg.Log.Driver, "path", cfg.Log.Path)
	resultLog, err := openLog(cfg)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeLogOpen, "failed to open result log", err)
	}
	defer func() {
		if closeErr := resultLog.Close(); closeErr != nil {
			slog.Error("error closing result log", "error", closeErr)
		}
	}()

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

	latch := &faultLatch{inner: gw.Indicator()}

	machineOpts := []race.Option{
		race.WithIndicator(latch),
		race.WithResultLog(resultLog),
		race.WithLogFailurePolicy(cfg.LogPolicy()),
		race.WithCompletionVisual(cfg.CompletionVisual()),
	}
	if opts.IDs != nil {
		machineOpts = append(machineOpts, race.WithIDGenerator(opts.IDs))
	}
	machine, err := race.New(cfg.LaneDefs(), cfg.Race.LanesInUse, machineOpts...)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInvalid, "invalid race setup", err)
	}

	eng := engine.New(machine, engine.WithFinishValue(cfg.Race.FinishValue))
	if err := gw.Start(eng); err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to watch inputs", err)
	}
	if err := latch.Apply(race.IndicatorFor(race.StatusWaiting, cfg.CompletionVisual())); err != nil {
		slog.Warn("indicator command failed", "error", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	faults := make(chan error, 1)
	reportFault := func(err error) {
		select {
		case faults <- err:
		default:
		}
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to listen", err)
	}
	srv := &http.Server{
		Handler: api.New(machine, resultLog,
			api.WithCORSOrigin(cfg.HTTP.CORSOrigin),
			api.WithFatalHandler(reportFault),
		).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := eng.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			reportFault(err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("http listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if opts.Watch && opts.Config != "" {
		g.Go(func() error {
			return config.Watch(gctx, opts.Config, config.DefaultWatchDebounce, func(c *config.Config) {
				if err := machine.SetLanesInUse(c.Race.LanesInUse); err != nil {
					slog.Warn("lanes_in_use change rejected", "lanes_in_use", c.Race.LanesInUse, "error", err)
				}
			})
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-faults:
			return holdFault(gctx, eng, latch, err)
		}
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Race controller started on %s. Press Ctrl-C to stop.\n", ln.Addr())
	if opts.OnReady != nil {
		opts.OnReady(ln.Addr().String())
	}

	if err := g.Wait(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return out.Fail(exitErr.Code, ErrCodeGeneric, exitErr.Message, exitErr.Err)
		}
		return out.Fail(ExitFailure, ErrCodeGeneric, "controller error", err)
	}

	slog.Info("controller stopped gracefully")
	return nil
}

// holdFault stops event processing, shows the fault pattern and waits for
// shutdown. It always returns an ExitError so the process exits non-zero.
func holdFault(ctx context.Context, eng *engine.Engine, latch *faultLatch, fault error) error {
	slog.Error("fatal fault: holding until signalled", "error", fault)
	eng.Stop()
	if err := latch.Latch(race.Blink(race.FaultBlinkInterval)); err != nil {
		slog.Warn("fault indicator failed", "error", err)
	}
	<-ctx.Done()
	return WrapExitError(ExitFailure, "controller fault", fault)
}
