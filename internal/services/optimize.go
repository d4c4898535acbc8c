package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"slices"
)

// MaxPermutationStops caps the permutation pass; 6 stops is 720 orders.
const MaxPermutationStops = 6

type OptimizerConfig struct {
	MaxTwoOptPasses     int
	MaxPermutationStops int
	MaxGroupSpan        int
}

// RouteOptimizer refines nearest-neighbor routes.
// Neither pass drops or adds a stop, and neither makes an on-time deadline late.
// 2-opt only accepts shorter routes. The permutation pass may lengthen a route
// when that leaves fewer deadline stops late.
type RouteOptimizer struct {
	cfg     OptimizerConfig
	oracle  ports.DistanceOracle
	model   TimeModel
	metrics MetricsSink
	log     logger.Logger
}

func NewRouteOptimizer(cfg OptimizerConfig, oracle ports.DistanceOracle, model TimeModel, metrics MetricsSink, log logger.Logger) *RouteOptimizer {
	if cfg.MaxTwoOptPasses <= 0 {
		cfg.MaxTwoOptPasses = 100
	}
	if cfg.MaxPermutationStops <= 0 || cfg.MaxPermutationStops > MaxPermutationStops {
		cfg.MaxPermutationStops = MaxPermutationStops
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &RouteOptimizer{cfg: cfg, oracle: oracle, model: model, metrics: metrics, log: log}
}

// Optimize alternates 2-opt and the permutation pass until neither changes
// the route, so optimizing its result again is a no-op. Both passes always
// run, whether or not deadlines are already met. Every accepted change leaves
// fewer late stops or a shorter route, so the loop ends; MaxTwoOptPasses
// bounds the rounds as well.
func (o *RouteOptimizer) Optimize(ctx context.Context, route *domain.Route, pkgs []*domain.Package) (out *domain.Route, err error) {
	defer obs.Time(ctx, "optimize_route")(&err)

	ev := newRouteEval(o.oracle, o.model, route.Start, route.DepartAt, pkgs)
	before := ev.distance(route.Sequence())

	out = route.Clone()
	var twoOptSaved, permSaved float64
	rounds := 0
	for rounds < o.cfg.MaxTwoOptPasses {
		rounds++
		start := ev.distance(out.Sequence())

		next := o.TwoOpt(out, pkgs)
		mid := ev.distance(next.Sequence())
		next = o.Permute(next, pkgs)
		end := ev.distance(next.Sequence())

		twoOptSaved += start - mid
		permSaved += mid - end

		changed := !slices.Equal(next.Stops, out.Stops)
		out = next
		if !changed {
			break
		}
	}
	o.metrics.RecordOptimization("two_opt", twoOptSaved)
	o.metrics.RecordOptimization("permutation", permSaved)

	o.log.Debugw("route optimized", map[string]any{
		"truck":       route.TruckID,
		"trip":        route.Trip,
		"rounds":      rounds,
		"nn_miles":    before,
		"final_miles": ev.distance(out.Sequence()),
		"late_stops":  len(ev.late(out.Sequence())),
	})
	return out, nil
}

// TwoOpt reverses segments of the regular stops while that strictly shortens
// the closed route, up to MaxTwoOptPasses full sweeps. A reversal is rejected
// when it would make an on-time deadline stop late or spread a group.
// Deferred stops stay at the tail.
func (o *RouteOptimizer) TwoOpt(route *domain.Route, pkgs []*domain.Package) *domain.Route {
	out := route.Clone()
	n := len(out.Stops)
	if n < 2 {
		return out
	}

	ev := newRouteEval(o.oracle, o.model, route.Start, route.DepartAt, pkgs)
	full := func(stops []int) []int { return append(slices.Clone(stops), out.Deferred...) }

	tail := route.Start
	if len(out.Deferred) > 0 {
		tail = ev.loc(out.Deferred[0])
	}
	locAt := func(stops []int, i int) int {
		switch {
		case i < 0:
			return route.Start
		case i >= n:
			return tail
		default:
			return ev.loc(stops[i])
		}
	}

	late := ev.late(full(out.Stops))
	for pass := 0; pass < o.cfg.MaxTwoOptPasses; pass++ {
		improved := false

		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				a, b := locAt(out.Stops, i-1), locAt(out.Stops, i)
				c, e := locAt(out.Stops, k), locAt(out.Stops, k+1)
				delta := o.oracle.Distance(a, c) + o.oracle.Distance(b, e) -
					o.oracle.Distance(a, b) - o.oracle.Distance(c, e)
				if delta >= -distanceEpsilon {
					continue
				}

				candidate := slices.Clone(out.Stops)
				slices.Reverse(candidate[i : k+1])

				candLate := ev.late(full(candidate))
				if !keepsOnTime(candLate, late) {
					continue
				}
				if !ev.groupsIntact(candidate, out.Stops, o.cfg.MaxGroupSpan) {
					continue
				}

				out.Stops = candidate
				late = candLate
				improved = true
			}
		}

		if !improved {
			break
		}
	}

	return out
}

// Permute tries every order of the deadline-bound regular stops within the
// positions they occupy, other stops fixed. It is skipped when fewer than two
// or more than MaxPermutationStops such stops exist. A candidate must keep
// every on-time stop on time; it wins with fewer late stops, or as many and a
// strictly shorter route.
func (o *RouteOptimizer) Permute(route *domain.Route, pkgs []*domain.Package) *domain.Route {
	out := route.Clone()
	ev := newRouteEval(o.oracle, o.model, route.Start, route.DepartAt, pkgs)

	var positions, subset []int
	for pos, id := range out.Stops {
		if ev.info[id].bound {
			positions = append(positions, pos)
			subset = append(subset, id)
		}
	}
	if len(subset) < 2 || len(subset) > o.cfg.MaxPermutationStops {
		return out
	}

	full := func(stops []int) []int { return append(slices.Clone(stops), out.Deferred...) }

	inputLate := ev.late(full(out.Stops))
	best := out.Stops
	bestLate := len(inputLate)
	bestDist := ev.distance(full(best))

	perm := slices.Clone(subset)
	slices.Sort(perm)
	for {
		candidate := slices.Clone(out.Stops)
		for i, pos := range positions {
			candidate[pos] = perm[i]
		}

		candLate := ev.late(full(candidate))
		if keepsOnTime(candLate, inputLate) && ev.groupsIntact(candidate, out.Stops, o.cfg.MaxGroupSpan) {
			d := ev.distance(full(candidate))
			if len(candLate) < bestLate || (len(candLate) == bestLate && d < bestDist-distanceEpsilon) {
				best, bestLate, bestDist = candidate, len(candLate), d
			}
		}

		if !nextPermutation(perm) {
			break
		}
	}

	out.Stops = best
	return out
}

// nextPermutation rearranges p into its lexicographic successor and reports
// whether one existed.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	slices.Reverse(p[i+1:])
	return true
}
