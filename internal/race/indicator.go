package race

import (
	"fmt"
	"time"
)

// Indicator blink intervals.
const (
	RacingBlinkInterval = 500 * time.Millisecond
	DiagBlinkInterval   = 300 * time.Millisecond
	FaultBlinkInterval  = 100 * time.Millisecond
)

// CommandKind identifies an indicator command.
type CommandKind int

const (
	CommandSolidOn CommandKind = iota + 1
	CommandSolidOff
	CommandBlink
	CommandStopBlink
	CommandToggle
)

// Command is a request to the status indicator. Interval is only meaningful
// for CommandBlink.
type Command struct {
	Kind     CommandKind
	Interval time.Duration
}

var (
	SolidOn   = Command{Kind: CommandSolidOn}
	SolidOff  = Command{Kind: CommandSolidOff}
	StopBlink = Command{Kind: CommandStopBlink}
	Toggle    = Command{Kind: CommandToggle}
)

// Blink returns a blink command with the given half-period.
func Blink(interval time.Duration) Command {
	return Command{Kind: CommandBlink, Interval: interval}
}

func (c Command) String() string {
	switch c.Kind {
	case CommandSolidOn:
		return "solid-on"
	case CommandSolidOff:
		return "solid-off"
	case CommandBlink:
		return fmt.Sprintf("blink(%s)", c.Interval)
	case CommandStopBlink:
		return "stop-blink"
	case CommandToggle:
		return "toggle"
	default:
		return fmt.Sprintf("command(%d)", int(c.Kind))
	}
}

// Indicator is the status light driven by the machine.
type Indicator interface {
	Apply(cmd Command) error
}

// CompletionVisual selects what the indicator shows once a race completes.
type CompletionVisual string

const (
	CompleteSolidOff CompletionVisual = "solid-off"
	CompleteSolidOn  CompletionVisual = "solid-on"
)

func (v CompletionVisual) command() Command {
	if v == CompleteSolidOn {
		return SolidOn
	}
	return SolidOff
}

// IndicatorFor returns the steady indicator state for a race status.
// The hold signal (stop-blink) is a transient override on top of this.
func IndicatorFor(status Status, visual CompletionVisual) Command {
	switch status {
	case StatusRacing:
		return Blink(RacingBlinkInterval)
	case StatusComplete:
		return visual.command()
	default:
		return SolidOn
	}
}

// NopIndicator discards every command.
type NopIndicator struct{}

func (NopIndicator) Apply(Command) error { return nil }
