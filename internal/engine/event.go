package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Edge is the kind of transition reported by a gateway input.
type Edge string

const (
	// EdgeOpened: button released / gate opened.
	EdgeOpened Edge = "opened"
	// EdgeClosed: button pressed / gate closed.
	EdgeClosed Edge = "closed"
	// EdgeHeld: button kept pressed past its hold time.
	EdgeHeld Edge = "held"
	// EdgeChanged: sensor level changed; Event.Value is the new level.
	EdgeChanged Edge = "changed"
)

// Channel names a gateway input.
type Channel string

const (
	ChannelRelease Channel = "release"
	ChannelReset   Channel = "reset"
)

const lanePrefix = "lane:"

// LaneChannel returns the channel of lane id's finish sensor.
func LaneChannel(id int) Channel {
	return Channel(lanePrefix + strconv.Itoa(id))
}

// LaneID returns the lane id of a lane channel.
func (c Channel) LaneID() (int, bool) {
	s, ok := strings.CutPrefix(string(c), lanePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Event is one edge from the gateway.
type Event struct {
	Seq     int64 // assigned by Enqueue
	Channel Channel
	Edge    Edge
	Value   int // sensor level for EdgeChanged
	At      time.Time
}

func (e Event) String() string {
	if e.Edge == EdgeChanged {
		return fmt.Sprintf("#%d %s %s=%d", e.Seq, e.Channel, e.Edge, e.Value)
	}
	return fmt.Sprintf("#%d %s %s", e.Seq, e.Channel, e.Edge)
}
