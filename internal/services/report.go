package services

import (
	"delivery-route-engine/internal/domain"
	"time"
)

// Report summarizes a run as seen at a given time of day.
type Report struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	At            time.Time       `json:"at" yaml:"at"`
	TotalMiles    float64         `json:"total_miles" yaml:"total_miles"`
	MileageTarget float64         `json:"mileage_target" yaml:"mileage_target"`
	WithinTarget  bool            `json:"within_target" yaml:"within_target"`
	Trucks        []TruckSummary  `json:"trucks" yaml:"trucks"`
	Deadlines     DeadlineSummary `json:"deadlines" yaml:"deadlines"`
	Checks        ConstraintCheck `json:"checks" yaml:"checks"`
	Packages      []PackageStatus `json:"packages" yaml:"packages"`
}

type TruckSummary struct {
	TruckID  int           `json:"truck_id" yaml:"truck_id"`
	Trips    []TripSummary `json:"trips" yaml:"trips"`
	Odometer float64       `json:"odometer" yaml:"odometer"`
}

type TripSummary struct {
	Number   int       `json:"number" yaml:"number"`
	DepartAt time.Time `json:"depart_at" yaml:"depart_at"`
	ReturnAt time.Time `json:"return_at" yaml:"return_at"`
	Miles    float64   `json:"miles" yaml:"miles"`
	Route    []int     `json:"route" yaml:"route"`
	Log      []string  `json:"log" yaml:"log"`
}

type DeadlineSummary struct {
	Total    int      `json:"total" yaml:"total"`
	OnTime   int      `json:"on_time" yaml:"on_time"`
	Late     int      `json:"late" yaml:"late"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type ConstraintCheck struct {
	AllDelivered      bool `json:"all_delivered" yaml:"all_delivered"`
	GroupsTogether    bool `json:"groups_together" yaml:"groups_together"`
	AffinityRespected bool `json:"affinity_respected" yaml:"affinity_respected"`
	CapacityRespected bool `json:"capacity_respected" yaml:"capacity_respected"`
}

type PackageStatus struct {
	PackageID   int        `json:"package_id" yaml:"package_id"`
	Address     string     `json:"address" yaml:"address"`
	Deadline    *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	TruckID     int        `json:"truck_id,omitempty" yaml:"truck_id,omitempty"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty" yaml:"loaded_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" yaml:"delivered_at,omitempty"`
	Late        bool       `json:"late" yaml:"late"`
}

// BuildReport replays the run at time at: package statuses and addresses are
// derived from recorded load and delivery timestamps.
func BuildReport(res *domain.RunResult, at time.Time, mileageTarget float64) *Report {
	r := &Report{
		RunID:         res.RunID,
		At:            at,
		TotalMiles:    res.TotalMiles,
		MileageTarget: mileageTarget,
		WithinTarget:  mileageTarget <= 0 || res.TotalMiles < mileageTarget,
		Checks: ConstraintCheck{
			AllDelivered:      true,
			GroupsTogether:    true,
			AffinityRespected: true,
			CapacityRespected: true,
		},
	}

	for _, t := range res.Trucks {
		ts := TruckSummary{TruckID: t.TruckID, Odometer: t.Odometer}
		for _, trip := range t.Trips {
			if len(trip.PackageIDs) > t.Capacity {
				r.Checks.CapacityRespected = false
			}
			summary := TripSummary{
				Number:   trip.Number,
				DepartAt: trip.DepartAt,
				ReturnAt: trip.ReturnAt,
				Miles:    trip.Miles,
			}
			if trip.Route != nil {
				summary.Route = trip.Route.Sequence()
			}
			for _, ev := range trip.Events {
				summary.Log = append(summary.Log, ev.String())
			}
			ts.Trips = append(ts.Trips, summary)
		}
		r.Trucks = append(r.Trucks, ts)
	}

	type placement struct{ truck, trip int }
	groups := map[int]placement{}
	for _, p := range res.Packages {
		if p.Status != domain.Delivered {
			r.Checks.AllDelivered = false
		}
		if p.TruckAffinity != 0 && p.TruckID != 0 && p.TruckAffinity != p.TruckID {
			r.Checks.AffinityRespected = false
		}
		if p.GroupID != 0 {
			where := placement{p.TruckID, p.Trip}
			if prev, ok := groups[p.GroupID]; ok && prev != where {
				r.Checks.GroupsTogether = false
			}
			groups[p.GroupID] = where
		}

		if p.Deadline != nil {
			r.Deadlines.Total++
			if p.Late {
				r.Deadlines.Late++
			} else if p.Status == domain.Delivered {
				r.Deadlines.OnTime++
			}
		}

		status := p.StatusAt(at)
		ps := PackageStatus{
			PackageID: p.PackageID,
			Address:   p.AddressAt(at),
			Deadline:  p.Deadline,
			Status:    status.String(),
		}
		if status != domain.AtHub {
			ps.TruckID = p.TruckID
			ps.LoadedAt = p.LoadedAt
		}
		if status == domain.Delivered {
			ps.DeliveredAt = p.DeliveredAt
			ps.Late = p.Late
		}
		r.Packages = append(r.Packages, ps)
	}

	for _, w := range res.Warnings {
		r.Deadlines.Warnings = append(r.Deadlines.Warnings, w.String())
	}
	return r
}
