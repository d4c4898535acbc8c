package domain

import "fmt"

// Lifecycle state of a package.
//
//	AtHub ──> EnRoute ──> Delivered
//
// The zero value is AtHub so freshly loaded records start at the hub.
type Status int

const (
	AtHub Status = iota
	EnRoute
	Delivered
)

func (s Status) String() string {
	switch s {
	case AtHub:
		return "At Hub"
	case EnRoute:
		return "En Route"
	case Delivered:
		return "Delivered"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Validate reports whether s is one of the known lifecycle states.
func (s Status) Validate() error {
	if s < AtHub || s > Delivered {
		return fmt.Errorf("status %d: %w", int(s), ErrInvalidTransition)
	}
	return nil
}

// CanTransition reports whether moving from s to next follows the lifecycle.
func (s Status) CanTransition(next Status) bool {
	return (s == AtHub && next == EnRoute) || (s == EnRoute && next == Delivered)
}
