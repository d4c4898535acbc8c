package services

import (
	"cmp"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/events"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/ports"
	"fmt"
	"math"
	"slices"
	"time"
)

// Load is one truck trip's cargo in loading priority order.
type Load struct {
	TruckID    int
	Trip       int
	DepartAt   time.Time
	PackageIDs []int
	Events     []domain.Event
}

// loadUnit is a package or a whole group; units are never split.
type loadUnit struct {
	ids         []int
	affinity    int
	deadline    time.Time
	bound       bool
	grouped     bool
	availableAt time.Time
}

func (u loadUnit) minID() int { return u.ids[0] }

// TruckLoader fills truck trips from the packages still at the hub.
type TruckLoader struct {
	dir      ports.PackageDirectory
	oracle   ports.DistanceOracle
	cls      *Classification
	queue    *events.Queue
	endOfDay time.Time
	log      logger.Logger
}

func NewTruckLoader(
	dir ports.PackageDirectory,
	oracle ports.DistanceOracle,
	cls *Classification,
	queue *events.Queue,
	endOfDay time.Time,
	log logger.Logger,
) *TruckLoader {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &TruckLoader{dir: dir, oracle: oracle, cls: cls, queue: queue, endOfDay: endOfDay, log: log}
}

// Ids of packages still at the hub, ascending.
func (l *TruckLoader) Pending() []int {
	var ids []int
	for _, p := range l.dir.All() {
		if p.Status == domain.AtHub {
			ids = append(ids, p.PackageID)
		}
	}
	return ids
}

// NextRelease returns the earliest time after t at which a package the truck
// may carry becomes available.
func (l *TruckLoader) NextRelease(truck *domain.Truck, t time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, u := range l.units() {
		if u.affinity != 0 && u.affinity != truck.TruckID {
			continue
		}
		if u.availableAt.After(t) && (!found || u.availableAt.Before(next)) {
			next = u.availableAt
			found = true
		}
	}
	return next, found
}

// NextLoad selects cargo for the truck's next trip departing at departAt and
// moves it En Route. remainingTrips counts trips still available across the
// fleet, this one included, and drives load balancing. A nil load means no
// package is currently eligible for the truck.
//
// Priority: deadline-bound or truck-restricted units (deadline, then id), then
// groups, then proximity fill. A unit that does not fit waits for a later trip.
// On its last trip a truck with restricted packages still to be released takes
// only urgent units, leaving groups and fill to the rest of the fleet.
func (l *TruckLoader) NextLoad(truck *domain.Truck, departAt time.Time, remainingTrips int) (*Load, error) {
	units := l.units()
	pending := 0
	for _, u := range units {
		pending += len(u.ids)
	}
	hold := truck.TripsLeft() == 1 && l.restrictedLater(units, truck.TruckID, departAt)

	var urgent, groups, fill []loadUnit
	for _, u := range units {
		if u.affinity != 0 && u.affinity != truck.TruckID {
			continue
		}
		if u.availableAt.After(departAt) {
			continue
		}
		switch {
		case u.bound || u.affinity == truck.TruckID:
			urgent = append(urgent, u)
		case u.grouped:
			groups = append(groups, u)
		default:
			fill = append(fill, u)
		}
	}

	slices.SortStableFunc(urgent, func(a, b loadUnit) int {
		if c := a.deadline.Compare(b.deadline); c != 0 {
			return c
		}
		return cmp.Compare(a.minID(), b.minID())
	})

	capacity := truck.Capacity - len(truck.Packages)
	var selected []int
	take := func(u loadUnit) bool {
		if len(u.ids) > capacity-len(selected) {
			l.log.Debugf("truck %d: unit %v does not fit (%d free), deferred", truck.TruckID, u.ids, capacity-len(selected))
			return false
		}
		selected = append(selected, u.ids...)
		return true
	}

	for _, u := range urgent {
		take(u)
	}
	if hold {
		l.log.Debugf("truck %d: last trip held for restricted packages released after %s",
			truck.TruckID, departAt.Format("15:04"))
		groups, fill = nil, nil
	}
	for _, u := range groups {
		take(u)
	}

	target := balanceTarget(pending, capacity, remainingTrips)
	chosen := make([]bool, len(fill))
	for len(selected) < target {
		best := -1
		bestDist := math.Inf(1)
		for i, u := range fill {
			if chosen[i] {
				continue
			}
			d := l.nearestTo(selected, truck.HubLocation, u.ids[0])
			if d < bestDist || (d == bestDist && best >= 0 && u.minID() < fill[best].minID()) {
				best = i
				bestDist = d
			}
		}
		if best < 0 {
			break
		}
		chosen[best] = true
		if !take(fill[best]) {
			break
		}
	}

	if len(selected) == 0 {
		return nil, nil
	}

	load := &Load{
		TruckID:    truck.TruckID,
		Trip:       len(truck.Trips) + 1,
		DepartAt:   departAt,
		PackageIDs: selected,
	}
	if err := l.apply(truck, load); err != nil {
		return nil, err
	}

	l.log.Infof("truck %d trip %d loads %d packages at %s: %v",
		truck.TruckID, load.Trip, len(selected), departAt.Format("15:04"), selected)
	return load, nil
}

// apply moves the selected packages onto the truck: corrections and releases
// due by departure fire first, then each package goes En Route.
func (l *TruckLoader) apply(truck *domain.Truck, load *Load) error {
	for _, ev := range l.queue.Due(load.DepartAt, load.PackageIDs...) {
		ev.TruckID = truck.TruckID
		if ev.Kind == domain.EventCorrectionApplied {
			if err := l.dir.SetAddress(ev.PackageID, ev.Detail, ev.Location, ev.At); err != nil {
				return fmt.Errorf("load truck %d: %w", truck.TruckID, err)
			}
		}
		load.Events = append(load.Events, ev)
	}

	pkgs := make([]*domain.Package, 0, len(load.PackageIDs))
	for _, id := range load.PackageIDs {
		if err := l.dir.Assign(id, truck.TruckID, load.Trip); err != nil {
			return fmt.Errorf("load truck %d: %w", truck.TruckID, err)
		}
		if err := l.dir.SetStatus(id, domain.EnRoute, load.DepartAt); err != nil {
			return fmt.Errorf("load truck %d: %w", truck.TruckID, err)
		}
		p, err := l.dir.Get(id)
		if err != nil {
			return fmt.Errorf("load truck %d: %w", truck.TruckID, err)
		}
		pkgs = append(pkgs, p)
	}
	return truck.LoadMultiple(pkgs)
}

// restrictedLater reports whether a unit bound to truckID becomes available
// after t and before end of service.
func (l *TruckLoader) restrictedLater(units []loadUnit, truckID int, t time.Time) bool {
	for _, u := range units {
		if u.affinity == truckID && u.availableAt.After(t) && u.availableAt.Before(l.endOfDay) {
			return true
		}
	}
	return false
}

// units groups the packages still at the hub into loading units.
func (l *TruckLoader) units() []loadUnit {
	var units []loadUnit
	byGroup := map[int]int{}

	for _, p := range l.dir.All() {
		if p.Status != domain.AtHub {
			continue
		}

		idx := -1
		if g, ok := l.cls.GroupOf(p); ok {
			if i, seen := byGroup[g.ID]; seen {
				idx = i
			} else {
				units = append(units, loadUnit{grouped: true, affinity: g.Affinity, deadline: l.endOfDay})
				idx = len(units) - 1
				byGroup[g.ID] = idx
			}
		} else {
			units = append(units, loadUnit{affinity: p.TruckAffinity, deadline: l.endOfDay})
			idx = len(units) - 1
		}

		u := &units[idx]
		u.ids = append(u.ids, p.PackageID)
		if p.DeadlineBound(l.endOfDay) {
			u.bound = true
			if p.Deadline.Before(u.deadline) {
				u.deadline = *p.Deadline
			}
		}
		if p.AvailableAt.After(u.availableAt) {
			u.availableAt = p.AvailableAt
		}
	}
	return units
}

// Distance from a package to the closest location already on the load, or the hub.
func (l *TruckLoader) nearestTo(selected []int, hub int, id int) float64 {
	p, err := l.dir.Get(id)
	if err != nil {
		return math.Inf(1)
	}
	loc := p.PlannedLocation()
	best := l.oracle.Distance(hub, loc)
	for _, sid := range selected {
		s, err := l.dir.Get(sid)
		if err != nil {
			continue
		}
		if d := l.oracle.Distance(s.PlannedLocation(), loc); d < best {
			best = d
		}
	}
	return best
}

// balanceTarget spreads the remaining packages over as few trips as capacity
// allows, evenly.
func balanceTarget(pending int, capacity int, remainingTrips int) int {
	if capacity <= 0 {
		return 0
	}
	needed := (pending + capacity - 1) / capacity
	trips := min(max(remainingTrips, 1), max(needed, 1))
	return min(capacity, (pending+trips-1)/trips)
}
