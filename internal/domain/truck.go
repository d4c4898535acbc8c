package domain

import (
	"fmt"
	"time"
)

// Delivery truck aggregate holding the current load, odometer and trip history.
type Truck struct {
	TruckID     int
	Capacity    int
	MaxTrips    int
	HubLocation int
	Location    int
	DepartAt    time.Time
	ReadyAt     time.Time
	Odometer    float64
	Packages    []*Package
	Trips       []*Trip
	Retired     bool
}

func NewTruck(id int, capacity int, maxTrips int, hub int, departAt time.Time) *Truck {
	return &Truck{
		TruckID:     id,
		Capacity:    capacity,
		MaxTrips:    maxTrips,
		HubLocation: hub,
		Location:    hub,
		DepartAt:    departAt,
		ReadyAt:     departAt,
	}
}

// Load a single package onto the truck.
func (t *Truck) Load(pkg *Package) error {
	if len(t.Packages) >= t.Capacity {
		return fmt.Errorf("load truck: truck %d is at full capacity (capacity=%d): %w", t.TruckID, t.Capacity, ErrCapacityExceeded)
	}
	t.Packages = append(t.Packages, pkg)
	return nil
}

// Load multiple packages onto the truck.
func (t *Truck) LoadMultiple(pkgs []*Package) error {
	for _, pkg := range pkgs {
		if err := t.Load(pkg); err != nil {
			return err
		}
	}

	return nil
}

// Unload all packages from the truck.
func (t *Truck) Clear() {
	t.Packages = nil
}

// Number of trips the truck may still start.
func (t *Truck) TripsLeft() int {
	left := t.MaxTrips - len(t.Trips)
	if left < 0 || t.Retired {
		return 0
	}
	return left
}

// Advance the truck to a location, adding the leg to the odometer.
func (t *Truck) Drive(to int, miles float64) {
	t.Odometer += miles
	t.Location = to
}

// Record a finished trip. The truck is back at the hub and empty.
func (t *Truck) ApplyTrip(trip *Trip) error {
	if trip.TruckID != t.TruckID {
		return fmt.Errorf("apply trip: trip belongs to truck %d, not %d", trip.TruckID, t.TruckID)
	}
	if t.TripsLeft() == 0 {
		return fmt.Errorf("apply trip: truck %d has no trips left (max=%d)", t.TruckID, t.MaxTrips)
	}

	t.Trips = append(t.Trips, trip)
	t.ReadyAt = trip.ReturnAt
	t.Location = t.HubLocation
	t.Clear()
	return nil
}
