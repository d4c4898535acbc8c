package services

import (
	"time"
)

// TimeModel converts distance to elapsed driving time at a fixed average speed.
// EndOfDay bounds deadline checks; packages without a deadline are due then.
type TimeModel struct {
	SpeedMPH float64
	EndOfDay time.Time
}

func (m TimeModel) Travel(miles float64) time.Duration {
	if m.SpeedMPH <= 0 || miles <= 0 {
		return 0
	}
	return time.Duration(miles / m.SpeedMPH * float64(time.Hour))
}

// MetricsSink receives run statistics. platform/metrics.Recorder implements it.
type MetricsSink interface {
	RecordTrip(truckID int, tripMiles float64, odometer float64)
	RecordDelivery(truckID int, late bool)
	RecordOptimization(pass string, saved float64)
	RecordRun(totalMiles float64, warnings int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordTrip(int, float64, float64)   {}
func (NopMetrics) RecordDelivery(int, bool)           {}
func (NopMetrics) RecordOptimization(string, float64) {}
func (NopMetrics) RecordRun(float64, int)             {}
