package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/events"
	"delivery-route-engine/internal/platform/logger"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"fmt"
	"slices"
	"time"
)

// Simulator drives a truck along its route in simulated time.
type Simulator struct {
	dir            ports.PackageDirectory
	oracle         ports.DistanceOracle
	model          TimeModel
	queue          *events.Queue
	correctionWait time.Duration
	metrics        MetricsSink
	log            logger.Logger
}

func NewSimulator(
	dir ports.PackageDirectory,
	oracle ports.DistanceOracle,
	model TimeModel,
	queue *events.Queue,
	correctionWait time.Duration,
	metrics MetricsSink,
	log logger.Logger,
) *Simulator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Simulator{
		dir:            dir,
		oracle:         oracle,
		model:          model,
		queue:          queue,
		correctionWait: correctionWait,
		metrics:        metrics,
		log:            log,
	}
}

// RunTrip delivers every stop of the route, then drives back to the hub.
//
// Before each stop, events due for packages still on board are applied.
// A stop still waiting on its address correction either waits for it (when
// the wait is within the correction window or nothing else is left) or moves
// once to the end of the route. The truck's odometer includes the return leg.
func (s *Simulator) RunTrip(ctx context.Context, truck *domain.Truck, route *domain.Route, load *Load) (trip *domain.Trip, err error) {
	defer obs.Time(ctx, "simulate_trip")(&err)

	if truck.Location != truck.HubLocation {
		return nil, fmt.Errorf("simulate trip: truck %d is not at the hub", truck.TruckID)
	}

	trip = &domain.Trip{
		TruckID:  truck.TruckID,
		Number:   route.Trip,
		DepartAt: route.DepartAt,
		Route:    route.Clone(),
	}
	if load != nil {
		trip.PackageIDs = slices.Clone(load.PackageIDs)
		trip.Events = append(trip.Events, load.Events...)
	}

	startOdometer := truck.Odometer
	now := route.DepartAt
	queue := route.Sequence()
	onBoard := make(map[int]bool, len(queue))
	for _, id := range queue {
		onBoard[id] = true
	}
	moved := map[int]bool{}

	s.record(trip, domain.Event{Kind: domain.EventDeparted, At: now, Location: truck.Location,
		Detail: fmt.Sprintf("trip=%d packages=%d", trip.Number, len(queue))})

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if err := s.advance(trip, onBoard, now); err != nil {
			return nil, err
		}

		p, err := s.dir.Get(id)
		if err != nil {
			return nil, fmt.Errorf("simulate trip: %w", err)
		}
		if p.Status != domain.EnRoute || p.TruckID != truck.TruckID {
			return nil, fmt.Errorf("simulate trip: package %d is %s on truck %d, not on truck %d",
				id, p.Status, p.TruckID, truck.TruckID)
		}

		if ev, ok := s.queue.Next(id, domain.EventCorrectionApplied); ok && ev.At.After(now) {
			wait := ev.At.Sub(now)
			if wait > s.correctionWait && len(queue) > 0 && !moved[id] {
				moved[id] = true
				queue = append(queue, id)
				s.record(trip, domain.Event{Kind: domain.EventDeferred, At: now, PackageID: id,
					Detail: fmt.Sprintf("correction due %s", ev.At.Format("15:04"))})
				continue
			}

			s.record(trip, domain.Event{Kind: domain.EventWaited, At: now, PackageID: id,
				Detail: fmt.Sprintf("%s for address correction", wait)})
			now = ev.At
			if err := s.advance(trip, onBoard, now); err != nil {
				return nil, err
			}
		}

		miles := s.oracle.Distance(truck.Location, p.Location)
		now = now.Add(s.model.Travel(miles))
		truck.Drive(p.Location, miles)

		if err := s.dir.SetStatus(id, domain.Delivered, now); err != nil {
			return nil, fmt.Errorf("simulate trip: %w", err)
		}
		delete(onBoard, id)

		trip.Stops = append(trip.Stops, domain.RouteStop{
			PackageID: id,
			Location:  p.Location,
			Address:   p.Address,
			ArriveAt:  now,
			Miles:     miles,
			Late:      p.Late,
		})
		s.record(trip, domain.Event{Kind: domain.EventDelivered, At: now, PackageID: id, Location: p.Location, Detail: p.Address})
		s.metrics.RecordDelivery(truck.TruckID, p.Late)

		if p.Late {
			s.log.Warnf("feasibility warning: package %d delivered %s after deadline %s by truck %d",
				id, now.Format("15:04:05"), p.Deadline.Format("15:04"), truck.TruckID)
		}
	}

	back := s.oracle.Distance(truck.Location, truck.HubLocation)
	now = now.Add(s.model.Travel(back))
	truck.Drive(truck.HubLocation, back)
	s.record(trip, domain.Event{Kind: domain.EventReturned, At: now, Location: truck.HubLocation,
		Detail: fmt.Sprintf("odometer=%.1f", truck.Odometer)})

	trip.ReturnAt = now
	trip.Miles = truck.Odometer - startOdometer

	s.log.Infof("truck %d trip %d: %d stops, %.1f miles, back at %s",
		truck.TruckID, trip.Number, len(trip.Stops), trip.Miles, now.Format("15:04"))
	return trip, nil
}

// advance applies events due by now for packages still on board.
// A correction reaching an already delivered package is dropped.
func (s *Simulator) advance(trip *domain.Trip, onBoard map[int]bool, now time.Time) error {
	ids := make([]int, 0, len(onBoard))
	for id := range onBoard {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, ev := range s.queue.Due(now, ids...) {
		if ev.Kind == domain.EventCorrectionApplied {
			p, err := s.dir.Get(ev.PackageID)
			if err != nil {
				return fmt.Errorf("simulate trip: %w", err)
			}
			if p.Status == domain.Delivered {
				s.log.Debugf("correction for package %d dropped: already delivered", ev.PackageID)
				continue
			}
			if err := s.dir.SetAddress(ev.PackageID, ev.Detail, ev.Location, ev.At); err != nil {
				return fmt.Errorf("simulate trip: %w", err)
			}
		}
		s.record(trip, ev)
	}
	return nil
}

func (s *Simulator) record(trip *domain.Trip, ev domain.Event) {
	ev.TruckID = trip.TruckID
	trip.Events = append(trip.Events, ev)
}
