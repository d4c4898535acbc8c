package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/events"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TruckSpec is one entry of the vehicle registry.
type TruckSpec struct {
	TruckID  int
	Capacity int
	Trips    int
	DepartAt time.Time
}

type PlanDeliveriesRequest struct {
	Fleet          []TruckSpec
	HubLocation    int
	Model          TimeModel
	CorrectionWait time.Duration
	Optimizer      OptimizerConfig
	Metrics        MetricsSink
	Logger         logger.Logger
}

// PlanDeliveries classifies, loads, routes, optimizes and simulates every
// package in the directory, one truck trip at a time.
//
// Trips run in order of truck readiness (earliest first, then truck id) and
// each finishes, hub return included, before the next is loaded. The run
// aborts on configuration errors and when packages remain once every truck is
// out of trips; late deliveries are only flagged.
func PlanDeliveries(
	ctx context.Context,
	req PlanDeliveriesRequest,
	dir ports.PackageDirectory,
	oracle ports.DistanceOracle,
) (res *domain.RunResult, err error) {
	defer obs.Time(ctx, "plan_deliveries")(&err)

	if len(req.Fleet) == 0 {
		return nil, errors.New("plan deliveries: fleet must not be empty")
	}
	if dir == nil || oracle == nil {
		return nil, errors.New("plan deliveries: directory and distance oracle are required")
	}
	if req.Model.SpeedMPH <= 0 {
		return nil, fmt.Errorf("plan deliveries: speed must be positive, got %v", req.Model.SpeedMPH)
	}
	if req.HubLocation < 0 || req.HubLocation >= oracle.Size() {
		return nil, fmt.Errorf("plan deliveries: hub location %d outside matrix of %d", req.HubLocation, oracle.Size())
	}

	log := req.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	metrics := req.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}

	trucks := make([]*domain.Truck, 0, len(req.Fleet))
	firstDeparture := req.Fleet[0].DepartAt
	for _, ts := range req.Fleet {
		trucks = append(trucks, domain.NewTruck(ts.TruckID, ts.Capacity, ts.Trips, req.HubLocation, ts.DepartAt))
		if ts.DepartAt.Before(firstDeparture) {
			firstDeparture = ts.DepartAt
		}
	}

	pkgs := dir.All()
	for _, p := range pkgs {
		if p.Status != domain.AtHub {
			return nil, domain.NewConfigError("plan deliveries", "package_id=%d starts %s, want %s", p.PackageID, p.Status, domain.AtHub)
		}
		if loc := p.PlannedLocation(); loc < 0 || loc >= oracle.Size() {
			return nil, domain.NewConfigError("plan deliveries", "package_id=%d location %d outside matrix of %d", p.PackageID, loc, oracle.Size())
		}
	}

	cls, err := Classify(pkgs, firstDeparture, req.Model.EndOfDay)
	if err != nil {
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}
	if err := validateFleet(cls, trucks); err != nil {
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}
	log.Infof("classified %d packages: deadline=%d restricted=%d groups=%d delayed=%d corrections=%d unconstrained=%d",
		len(pkgs), len(cls.DeadlineBound), countRestricted(cls), len(cls.Groups), len(cls.Delayed),
		len(cls.CorrectionPending), len(cls.Unconstrained))

	queue := events.FromPackages(pkgs, firstDeparture)
	loader := NewTruckLoader(dir, oracle, cls, queue, req.Model.EndOfDay, log)
	optimizer := NewRouteOptimizer(req.Optimizer, oracle, req.Model, metrics, log)
	simulator := NewSimulator(dir, oracle, req.Model, queue, req.CorrectionWait, metrics, log)

	for len(loader.Pending()) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("plan deliveries: %w", err)
		}

		truck := nextTruck(trucks)
		if truck == nil {
			return nil, fmt.Errorf("plan deliveries: %w", domain.NewUnplacedError(loader.Pending()))
		}

		departAt := truck.ReadyAt
		if !departAt.Before(req.Model.EndOfDay) {
			log.Infof("truck %d ready at %s, after end of service", truck.TruckID, departAt.Format("15:04"))
			truck.Retired = true
			continue
		}

		load, err := loader.NextLoad(truck, departAt, remainingTrips(trucks))
		if err != nil {
			return nil, fmt.Errorf("plan deliveries: %w", err)
		}
		if load == nil {
			if next, ok := loader.NextRelease(truck, departAt); ok {
				log.Infof("truck %d waits at hub until %s for delayed packages", truck.TruckID, next.Format("15:04"))
				truck.ReadyAt = next
				continue
			}
			truck.Retired = true
			continue
		}

		route, err := NearestNeighborRoute(ctx, RouteInput{
			TruckID:      truck.TruckID,
			Trip:         load.Trip,
			Start:        truck.HubLocation,
			DepartAt:     departAt,
			Packages:     truck.Packages,
			MaxGroupSpan: req.Optimizer.MaxGroupSpan,
		}, oracle, req.Model)
		if err != nil {
			return nil, fmt.Errorf("plan deliveries: plan nearest neighbor route: %w", err)
		}

		route, err = optimizer.Optimize(ctx, route, truck.Packages)
		if err != nil {
			return nil, fmt.Errorf("plan deliveries: optimize route: %w", err)
		}

		trip, err := simulator.RunTrip(ctx, truck, route, load)
		if err != nil {
			return nil, fmt.Errorf("plan deliveries: %w", err)
		}
		if err := truck.ApplyTrip(trip); err != nil {
			return nil, fmt.Errorf("plan deliveries: %w", err)
		}
		metrics.RecordTrip(truck.TruckID, trip.Miles, truck.Odometer)
	}

	y, m, d := firstDeparture.Date()
	res = &domain.RunResult{
		RunID:      uuid.NewString(),
		ServiceDay: time.Date(y, m, d, 0, 0, 0, 0, firstDeparture.Location()),
		Trucks:     trucks,
		Packages:   dir.All(),
	}
	for _, t := range trucks {
		res.TotalMiles += t.Odometer
	}
	for _, p := range res.Packages {
		if p.Late && p.Deadline != nil && p.DeliveredAt != nil {
			res.Warnings = append(res.Warnings, domain.FeasibilityWarning{
				PackageID:   p.PackageID,
				TruckID:     p.TruckID,
				Deadline:    *p.Deadline,
				DeliveredAt: *p.DeliveredAt,
			})
		}
	}
	metrics.RecordRun(res.TotalMiles, len(res.Warnings))

	log.Infof("run %s: %d packages, %.1f miles, %d feasibility warnings",
		res.RunID, len(res.Packages), res.TotalMiles, len(res.Warnings))
	return res, nil
}

// Truck that can leave the hub soonest; nil when every truck is done.
func nextTruck(trucks []*domain.Truck) *domain.Truck {
	var next *domain.Truck
	for _, t := range trucks {
		if t.TripsLeft() == 0 {
			continue
		}
		if next == nil || t.ReadyAt.Before(next.ReadyAt) ||
			(t.ReadyAt.Equal(next.ReadyAt) && t.TruckID < next.TruckID) {
			next = t
		}
	}
	return next
}

func remainingTrips(trucks []*domain.Truck) int {
	n := 0
	for _, t := range trucks {
		n += t.TripsLeft()
	}
	return n
}

func countRestricted(cls *Classification) int {
	n := 0
	for _, ids := range cls.TruckRestricted {
		n += len(ids)
	}
	return n
}
