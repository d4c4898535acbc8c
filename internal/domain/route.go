package domain

import (
	"slices"
	"time"
)

// Represents the visiting order for one truck trip.
// Stops are package ids in delivery order. Deferred stops wait on a pending
// address correction and are visited after every regular stop.
// The return leg to the hub is implicit.
type Route struct {
	TruckID  int
	Trip     int
	DepartAt time.Time
	Start    int
	Stops    []int
	Deferred []int
}

// Full visiting order, regular stops first.
func (r *Route) Sequence() []int {
	seq := make([]int, 0, len(r.Stops)+len(r.Deferred))
	seq = append(seq, r.Stops...)
	return append(seq, r.Deferred...)
}

func (r *Route) Len() int { return len(r.Stops) + len(r.Deferred) }

func (r *Route) Clone() *Route {
	c := *r
	c.Stops = slices.Clone(r.Stops)
	c.Deferred = slices.Clone(r.Deferred)
	return &c
}

// Represents a delivery made during simulation.
type RouteStop struct {
	PackageID int
	Location  int
	Address   string
	ArriveAt  time.Time
	Miles     float64
	Late      bool
}

// Represents one executed load/route/return cycle of a truck.
type Trip struct {
	TruckID    int
	Number     int
	DepartAt   time.Time
	ReturnAt   time.Time
	PackageIDs []int
	Route      *Route
	Stops      []RouteStop
	Miles      float64
	Events     []Event
}

// Output of a complete planning and simulation run.
type RunResult struct {
	RunID      string
	ServiceDay time.Time
	Trucks     []*Truck
	Packages   []*Package
	TotalMiles float64
	Warnings   []FeasibilityWarning
}

// Return the package with the given id from the run snapshot.
func (r *RunResult) Package(id int) (*Package, bool) {
	i, ok := slices.BinarySearchFunc(r.Packages, id, func(p *Package, id int) int {
		return p.PackageID - id
	})
	if !ok {
		return nil, false
	}
	return r.Packages[i], true
}
