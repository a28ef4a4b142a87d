package cli

import (
	"fmt"
	"sync"

	"github.com/roach88/racetimer/internal/config"
	"github.com/roach88/racetimer/internal/gpio"
	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/store"
)

// openChip opens the configured GPIO chip, or an in-memory one for "fake".
func openChip(name string) (gpio.Chip, error) {
	if name == config.FakeChip {
		return gpio.NewFakeChip(), nil
	}
	return gpio.OpenChip(name)
}

// openLog opens the configured result log.
func openLog(cfg *config.Config) (store.Log, error) {
	l, err := store.Open(cfg.Log.Driver, cfg.Log.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s log %s: %w", cfg.Log.Driver, cfg.Log.Path, err)
	}
	return l, nil
}

// faultLatch forwards indicator commands until it is latched. Once latched
// only the fault pattern is shown; later race transitions cannot replace it.
type faultLatch struct {
	mu      sync.Mutex
	inner   race.Indicator
	latched bool
}

func (f *faultLatch) Apply(cmd race.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latched {
		return nil
	}
	return f.inner.Apply(cmd)
}

// Latch shows cmd and ignores every later command. Only the first call has
// an effect.
func (f *faultLatch) Latch(cmd race.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latched {
		return nil
	}
	f.latched = true
	return f.inner.Apply(cmd)
}

func (f *faultLatch) Latched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latched
}
