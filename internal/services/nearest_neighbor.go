package services

import (
	"cmp"
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// RouteInput is the cargo of one truck trip.
type RouteInput struct {
	TruckID  int
	Trip     int
	Start    int
	DepartAt time.Time
	Packages []*domain.Package
	// Maximum stops between members of a group; 0 disables the limit.
	MaxGroupSpan int
}

// Plan a delivery route using a greedy nearest-neighbor algorithm.
//
// Each step moves to the closest unvisited stop, lowest package id first on
// ties. Two rules override the greedy choice: a group whose members are
// already being visited is finished before it spreads past MaxGroupSpan, and
// when the nearest stop would make a reachable deadline unreachable, the
// earliest-deadline stop that keeps every deadline reachable is taken instead.
// Packages waiting on an address correction are visited last.
// The return leg to the hub is not part of the route.
func NearestNeighborRoute(
	ctx context.Context,
	in RouteInput,
	oracle ports.DistanceOracle,
	model TimeModel,
) (route *domain.Route, err error) {
	defer obs.Time(ctx, "nearest_neighbor_route")(&err)

	if oracle == nil {
		return nil, errors.New("plan route: distance oracle must not be nil")
	}
	n := oracle.Size()
	if in.Start < 0 || in.Start >= n {
		return nil, fmt.Errorf("plan route: start location %d outside matrix of %d", in.Start, n)
	}

	route = &domain.Route{
		TruckID:  in.TruckID,
		Trip:     in.Trip,
		DepartAt: in.DepartAt,
		Start:    in.Start,
		Stops:    []int{},
	}

	var regular, deferred []*domain.Package
	for _, p := range in.Packages {
		if loc := p.PlannedLocation(); loc < 0 || loc >= n {
			return nil, fmt.Errorf("plan route: package_id=%d location %d outside matrix of %d", p.PackageID, loc, n)
		}
		if p.CorrectionPending() {
			deferred = append(deferred, p)
		} else {
			regular = append(regular, p)
		}
	}

	slices.SortFunc(regular, func(a, b *domain.Package) int { return cmp.Compare(a.PackageID, b.PackageID) })
	slices.SortFunc(deferred, func(a, b *domain.Package) int {
		if c := a.Correction.At.Compare(b.Correction.At); c != 0 {
			return c
		}
		return cmp.Compare(a.PackageID, b.PackageID)
	})
	for _, p := range deferred {
		route.Deferred = append(route.Deferred, p.PackageID)
	}

	nn := &nnState{
		oracle:    oracle,
		model:     model,
		current:   in.Start,
		now:       in.DepartAt,
		remaining: regular,
		maxSpan:   in.MaxGroupSpan,
		groupLeft: map[int]int{},
		groupFrom: map[int]int{},
	}
	for _, p := range regular {
		if p.GroupID != 0 {
			nn.groupLeft[p.GroupID]++
		}
	}
	groupSize := make(map[int]int, len(nn.groupLeft))
	for g, c := range nn.groupLeft {
		groupSize[g] = c
	}
	nn.groupSize = groupSize

	for len(nn.remaining) > 0 {
		next := nn.forcedGroupStop(len(route.Stops))
		if next < 0 {
			next = nn.nearest(nn.remaining)
			if !nn.keepsDeadlines(next) {
				next = nn.rescue(next)
			}
		}
		route.Stops = append(route.Stops, nn.visit(next, len(route.Stops)))
	}

	return route, nil
}

type nnState struct {
	oracle    ports.DistanceOracle
	model     TimeModel
	current   int
	now       time.Time
	remaining []*domain.Package
	maxSpan   int
	groupSize map[int]int
	groupLeft map[int]int
	groupFrom map[int]int
}

func (s *nnState) arrival(from int, at time.Time, p *domain.Package) time.Time {
	return at.Add(s.model.Travel(s.oracle.Distance(from, p.PlannedLocation())))
}

func (s *nnState) deadline(p *domain.Package) time.Time {
	return p.DeadlineOr(s.model.EndOfDay)
}

// Index in remaining of the closest stop; lowest id wins ties.
func (s *nnState) nearest(candidates []*domain.Package) int {
	best := -1
	minDistance := math.Inf(1)
	for i, p := range candidates {
		d := s.oracle.Distance(s.current, p.PlannedLocation())
		// Tie-breaker ensures deterministic ordering when distances are equal.
		if best < 0 || d < minDistance || (d == minDistance && p.PackageID < candidates[best].PackageID) {
			minDistance = d
			best = i
		}
	}
	return best
}

// keepsDeadlines reports whether going to remaining[i] next leaves every
// currently reachable deadline reachable by a direct drive.
func (s *nnState) keepsDeadlines(i int) bool {
	cand := s.remaining[i]
	at := s.arrival(s.current, s.now, cand)

	for j, p := range s.remaining {
		if j == i || !p.DeadlineBound(s.model.EndOfDay) {
			continue
		}
		if s.arrival(s.current, s.now, p).After(s.deadline(p)) {
			// Already out of reach from here.
			continue
		}
		if s.arrival(cand.PlannedLocation(), at, p).After(s.deadline(p)) {
			return false
		}
	}
	return true
}

// rescue picks the earliest-deadline stop that keeps all deadlines reachable,
// else the earliest-deadline stop still reachable itself, else fallback.
func (s *nnState) rescue(fallback int) int {
	var bound []int
	for i, p := range s.remaining {
		if p.DeadlineBound(s.model.EndOfDay) {
			bound = append(bound, i)
		}
	}
	slices.SortStableFunc(bound, func(a, b int) int {
		return s.deadline(s.remaining[a]).Compare(s.deadline(s.remaining[b]))
	})

	for _, i := range bound {
		if s.keepsDeadlines(i) {
			return i
		}
	}
	for _, i := range bound {
		p := s.remaining[i]
		if !s.arrival(s.current, s.now, p).After(s.deadline(p)) {
			return i
		}
	}
	return fallback
}

// forcedGroupStop returns the nearest member of a partly visited group that
// would otherwise spread past the span limit, or -1.
func (s *nnState) forcedGroupStop(pos int) int {
	if s.maxSpan <= 0 {
		return -1
	}

	forced := 0
	from := math.MaxInt
	for g, left := range s.groupLeft {
		first, open := s.groupFrom[g]
		if !open || left == 0 {
			continue
		}
		limit := max(s.maxSpan, s.groupSize[g]-1)
		if pos+left-first > limit && (first < from || (first == from && g < forced)) {
			forced = g
			from = first
		}
	}
	if forced == 0 {
		return -1
	}

	var members []*domain.Package
	var index []int
	for i, p := range s.remaining {
		if p.GroupID == forced {
			members = append(members, p)
			index = append(index, i)
		}
	}
	return index[s.nearest(members)]
}

// visit removes remaining[i], advances the clock and returns its package id.
func (s *nnState) visit(i int, pos int) int {
	p := s.remaining[i]
	s.now = s.arrival(s.current, s.now, p)
	s.current = p.PlannedLocation()
	s.remaining = slices.Delete(s.remaining, i, i+1)

	if p.GroupID != 0 {
		if _, open := s.groupFrom[p.GroupID]; !open {
			s.groupFrom[p.GroupID] = pos
		}
		s.groupLeft[p.GroupID]--
	}
	return p.PackageID
}
