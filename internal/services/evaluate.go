package services

import (
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/ports"
	"time"
)

const distanceEpsilon = 1e-9

type stopInfo struct {
	location int
	deadline time.Time
	bound    bool
	group    int
}

// routeEval scores visiting orders for one truck trip under the time model.
type routeEval struct {
	oracle   ports.DistanceOracle
	model    TimeModel
	start    int
	departAt time.Time
	info     map[int]stopInfo
}

func newRouteEval(oracle ports.DistanceOracle, model TimeModel, start int, departAt time.Time, pkgs []*domain.Package) *routeEval {
	info := make(map[int]stopInfo, len(pkgs))
	for _, p := range pkgs {
		info[p.PackageID] = stopInfo{
			location: p.PlannedLocation(),
			deadline: p.DeadlineOr(model.EndOfDay),
			bound:    p.DeadlineBound(model.EndOfDay),
			group:    p.GroupID,
		}
	}
	return &routeEval{oracle: oracle, model: model, start: start, departAt: departAt, info: info}
}

func (e *routeEval) loc(id int) int { return e.info[id].location }

// Closed route length: start, every stop in order, back to start.
func (e *routeEval) distance(seq []int) float64 {
	total := 0.0
	cur := e.start
	for _, id := range seq {
		next := e.loc(id)
		total += e.oracle.Distance(cur, next)
		cur = next
	}
	return total + e.oracle.Distance(cur, e.start)
}

// Deadline-bound stops that arrive after their deadline.
func (e *routeEval) late(seq []int) map[int]bool {
	late := map[int]bool{}
	t := e.departAt
	cur := e.start
	for _, id := range seq {
		s := e.info[id]
		t = t.Add(e.model.Travel(e.oracle.Distance(cur, s.location)))
		cur = s.location
		if s.bound && t.After(s.deadline) {
			late[id] = true
		}
	}
	return late
}

// keepsOnTime reports whether every stop on time before is still on time.
func keepsOnTime(candidate map[int]bool, before map[int]bool) bool {
	for id := range candidate {
		if !before[id] {
			return false
		}
	}
	return true
}

// Largest distance in stops between members of each group.
func (e *routeEval) spans(seq []int) map[int]int {
	first := map[int]int{}
	spans := map[int]int{}
	for pos, id := range seq {
		g := e.info[id].group
		if g == 0 {
			continue
		}
		if f, ok := first[g]; ok {
			spans[g] = pos - f
		} else {
			first[g] = pos
			spans[g] = 0
		}
	}
	return spans
}

// groupsIntact reports whether no group spreads past the allowed span, or past
// the span it already had in the current order.
func (e *routeEval) groupsIntact(candidate []int, current []int, maxSpan int) bool {
	if maxSpan <= 0 {
		return true
	}

	sizes := map[int]int{}
	for _, id := range candidate {
		if g := e.info[id].group; g != 0 {
			sizes[g]++
		}
	}

	before := e.spans(current)
	for g, span := range e.spans(candidate) {
		limit := max(maxSpan, sizes[g]-1, before[g])
		if span > limit {
			return false
		}
	}
	return true
}

// RouteDistance returns the closed length of a route including the hub return leg.
func RouteDistance(oracle ports.DistanceOracle, route *domain.Route, pkgs []*domain.Package) float64 {
	e := newRouteEval(oracle, TimeModel{}, route.Start, route.DepartAt, pkgs)
	return e.distance(route.Sequence())
}
