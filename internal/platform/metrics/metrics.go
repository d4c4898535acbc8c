package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder publishes planning and simulation results as Prometheus metrics.
type Recorder struct {
	runs       prometheus.Counter
	trips      *prometheus.CounterVec
	miles      *prometheus.CounterVec
	odometer   *prometheus.GaugeVec
	deliveries *prometheus.CounterVec
	savings    *prometheus.HistogramVec
	runMiles   prometheus.Gauge
	warnings   prometheus.Gauge
}

// NewRecorder registers the delivery metrics on reg.
// A nil registerer defaults to the global Prometheus registerer; collectors
// already registered by an earlier Recorder are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_runs_total",
			Help: "Completed planning and simulation runs",
		}),
		trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_trips_total",
			Help: "Truck trips simulated",
		}, []string{"truck_id"}),
		miles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_miles_total",
			Help: "Miles driven including hub return legs",
		}, []string{"truck_id"}),
		odometer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "delivery_truck_odometer_miles",
			Help: "Odometer of each truck at the end of its latest trip",
		}, []string{"truck_id"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_packages_delivered_total",
			Help: "Packages delivered, split by deadline outcome",
		}, []string{"truck_id", "late"}),
		savings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "delivery_optimizer_savings_miles",
			Help:    "Route distance removed by each optimizer pass",
			Buckets: []float64{0, 0.5, 1, 2, 5, 10, 20, 50},
		}, []string{"pass"}),
		runMiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_run_total_miles",
			Help: "Total fleet mileage of the latest run",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_run_feasibility_warnings",
			Help: "Late deliveries flagged in the latest run",
		}),
	}

	var err error
	if r.runs, err = register(reg, r.runs); err != nil {
		return nil, err
	}
	if r.trips, err = register(reg, r.trips); err != nil {
		return nil, err
	}
	if r.miles, err = register(reg, r.miles); err != nil {
		return nil, err
	}
	if r.odometer, err = register(reg, r.odometer); err != nil {
		return nil, err
	}
	if r.deliveries, err = register(reg, r.deliveries); err != nil {
		return nil, err
	}
	if r.savings, err = register(reg, r.savings); err != nil {
		return nil, err
	}
	if r.runMiles, err = register(reg, r.runMiles); err != nil {
		return nil, err
	}
	if r.warnings, err = register(reg, r.warnings); err != nil {
		return nil, err
	}

	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTrip counts a finished trip and its mileage.
func (r *Recorder) RecordTrip(truckID int, tripMiles float64, odometer float64) {
	id := strconv.Itoa(truckID)
	r.trips.WithLabelValues(id).Inc()
	r.miles.WithLabelValues(id).Add(tripMiles)
	r.odometer.WithLabelValues(id).Set(odometer)
}

func (r *Recorder) RecordDelivery(truckID int, late bool) {
	r.deliveries.WithLabelValues(strconv.Itoa(truckID), strconv.FormatBool(late)).Inc()
}

// RecordOptimization observes the distance a pass removed from a route.
func (r *Recorder) RecordOptimization(pass string, saved float64) {
	if saved < 0 {
		saved = 0
	}
	r.savings.WithLabelValues(pass).Observe(saved)
}

func (r *Recorder) RecordRun(totalMiles float64, warnings int) {
	r.runs.Inc()
	r.runMiles.Set(totalMiles)
	r.warnings.Set(float64(warnings))
}
