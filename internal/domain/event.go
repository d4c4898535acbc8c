package domain

import (
	"fmt"
	"time"
)

type EventKind int

const (
	EventDeparted EventKind = iota + 1
	EventReleased
	EventCorrectionApplied
	EventWaited
	EventDeferred
	EventDelivered
	EventReturned
)

func (k EventKind) String() string {
	switch k {
	case EventDeparted:
		return "departed"
	case EventReleased:
		return "package-released"
	case EventCorrectionApplied:
		return "correction-applied"
	case EventWaited:
		return "waited"
	case EventDeferred:
		return "deferred"
	case EventDelivered:
		return "delivered"
	case EventReturned:
		return "returned-to-hub"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Represents a tagged entry in a truck's activity log.
// Released and CorrectionApplied events are also scheduled ahead of time and
// consumed by the simulator as simulated time advances.
type Event struct {
	Kind      EventKind
	At        time.Time
	TruckID   int
	PackageID int
	Location  int
	Detail    string
}

func (e Event) String() string {
	s := fmt.Sprintf("%s truck=%d %s", e.At.Format("15:04:05"), e.TruckID, e.Kind)
	if e.PackageID != 0 {
		s += fmt.Sprintf(" package=%d", e.PackageID)
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}
