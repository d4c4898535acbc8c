package domain

import (
	"fmt"
	"time"
)

// Replacement address that becomes known at a fixed time of day.
type Correction struct {
	At       time.Time
	Address  string
	Location int
	Applied  bool
}

// Represents a single delivery unit handled by the system.
// A Package resolves its address to a location index in the distance matrix
// and carries the constraints that drive assignment (deadline, truck affinity,
// group, delayed availability, pending correction).
// Load and delivery timestamps are populated during simulation and are the
// source of truth for status replay.
type Package struct {
	PackageID int
	Address   string
	City      string
	Zip       string
	Location  int
	Deadline  *time.Time
	Weight    int
	Note      string

	TruckAffinity int
	GroupID       int
	AvailableAt   time.Time
	Correction    *Correction

	OriginalAddress  string
	OriginalLocation int

	Status      Status
	TruckID     int
	Trip        int
	LoadedAt    *time.Time
	DeliveredAt *time.Time
	Late        bool
}

// DeadlineBound reports whether the package must arrive before end of day.
func (p *Package) DeadlineBound(endOfDay time.Time) bool {
	return p.Deadline != nil && p.Deadline.Before(endOfDay)
}

// Return the deadline, or endOfDay when the package has none.
func (p *Package) DeadlineOr(endOfDay time.Time) time.Time {
	if p.Deadline == nil {
		return endOfDay
	}
	return *p.Deadline
}

func (p *Package) AvailableBy(t time.Time) bool {
	return !p.AvailableAt.After(t)
}

func (p *Package) CorrectionPending() bool {
	return p.Correction != nil && !p.Correction.Applied
}

// PlannedLocation is where the package will actually be delivered: the
// corrected location when a correction is still pending, otherwise its current one.
func (p *Package) PlannedLocation() int {
	if p.CorrectionPending() {
		return p.Correction.Location
	}
	return p.Location
}

// Mark the package as placed on a departing truck.
func (p *Package) MarkLoaded(truckID int, trip int, at time.Time) error {
	if !p.Status.CanTransition(EnRoute) {
		return fmt.Errorf("load package %d: %s -> %s: %w", p.PackageID, p.Status, EnRoute, ErrInvalidTransition)
	}

	p.Status = EnRoute
	p.TruckID = truckID
	p.Trip = trip
	p.LoadedAt = &at
	return nil
}

// Mark the package delivered at the simulated arrival time.
// Late is set when the arrival falls after the deadline.
func (p *Package) MarkDelivered(at time.Time) error {
	if !p.Status.CanTransition(Delivered) {
		return fmt.Errorf("deliver package %d: %s -> %s: %w", p.PackageID, p.Status, Delivered, ErrInvalidTransition)
	}
	if p.LoadedAt != nil && at.Before(*p.LoadedAt) {
		return fmt.Errorf("deliver package %d: delivery %s precedes load %s: %w",
			p.PackageID, at.Format(time.TimeOnly), p.LoadedAt.Format(time.TimeOnly), ErrInvalidTransition)
	}

	p.Status = Delivered
	p.DeliveredAt = &at
	p.Late = p.Deadline != nil && at.After(*p.Deadline)
	return nil
}

// Readdress replaces the delivery address in place.
// A package is readdressed at most once and never after delivery.
func (p *Package) Readdress(address string, location int, at time.Time) error {
	if p.Status == Delivered {
		return fmt.Errorf("readdress package %d: %w", p.PackageID, ErrAlreadyDelivered)
	}
	if p.Correction != nil && p.Correction.Applied {
		return fmt.Errorf("readdress package %d: %w", p.PackageID, ErrCorrectionApplied)
	}

	p.OriginalAddress = p.Address
	p.OriginalLocation = p.Location
	p.Address = address
	p.Location = location

	if p.Correction == nil {
		p.Correction = &Correction{At: at}
	}
	p.Correction.Address = address
	p.Correction.Location = location
	p.Correction.Applied = true
	return nil
}

// Status replayed from recorded timestamps.
func (p *Package) StatusAt(t time.Time) Status {
	if p.LoadedAt == nil || t.Before(*p.LoadedAt) {
		return AtHub
	}
	if p.DeliveredAt == nil || t.Before(*p.DeliveredAt) {
		return EnRoute
	}
	return Delivered
}

// Address the package was bound for at time t.
func (p *Package) AddressAt(t time.Time) string {
	if p.Correction != nil && p.Correction.Applied && t.Before(p.Correction.At) {
		return p.OriginalAddress
	}
	return p.Address
}

// Clone returns a deep copy so separate runs never share mutable records.
func (p *Package) Clone() *Package {
	c := *p
	if p.Deadline != nil {
		d := *p.Deadline
		c.Deadline = &d
	}
	if p.Correction != nil {
		corr := *p.Correction
		c.Correction = &corr
	}
	if p.LoadedAt != nil {
		l := *p.LoadedAt
		c.LoadedAt = &l
	}
	if p.DeliveredAt != nil {
		d := *p.DeliveredAt
		c.DeliveredAt = &d
	}
	return &c
}
