package services

import (
	"delivery-route-engine/internal/adapters/distance"
	"delivery-route-engine/internal/directory"
	"delivery-route-engine/internal/domain"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clock(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC)
}

func testModel() TimeModel {
	return TimeModel{SpeedMPH: 18, EndOfDay: clock(17, 0)}
}

func deadline(h, m int) *time.Time {
	d := clock(h, m)
	return &d
}

func newPackage(id int, loc int) *domain.Package {
	return &domain.Package{
		PackageID: id,
		Address:   fmt.Sprintf("%d Main St", id*100),
		City:      "Salt Lake City",
		Location:  loc,
	}
}

// lineMatrix places location i at mile xs[i] of a straight road.
func lineMatrix(t *testing.T, xs ...float64) *distance.Matrix {
	t.Helper()

	rows := make([][]float64, len(xs))
	for i := range xs {
		rows[i] = make([]float64, i+1)
		for j := 0; j < i; j++ {
			rows[i][j] = math.Abs(xs[i] - xs[j])
		}
	}
	m, err := distance.NewMatrix(nil, rows)
	require.NoError(t, err)
	return m
}

// gridMatrix spreads n locations over a plane with straight-line distances.
func gridMatrix(t *testing.T, n int) *distance.Matrix {
	t.Helper()

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 1; i < n; i++ {
		xs[i] = float64((i*37)%23) - 11
		ys[i] = float64((i*53)%19) - 9
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, i+1)
		for j := 0; j < i; j++ {
			rows[i][j] = math.Round(math.Hypot(xs[i]-xs[j], ys[i]-ys[j])*10) / 10
		}
	}
	m, err := distance.NewMatrix(nil, rows)
	require.NoError(t, err)
	return m
}

func newDirectory(t *testing.T, pkgs ...*domain.Package) *directory.MemoryDirectory {
	t.Helper()

	dir, err := directory.NewMemoryDirectory(pkgs)
	require.NoError(t, err)
	return dir
}

func planRequest(fleet ...TruckSpec) PlanDeliveriesRequest {
	return PlanDeliveriesRequest{
		Fleet:          fleet,
		HubLocation:    0,
		Model:          testModel(),
		CorrectionWait: 30 * time.Minute,
		Optimizer: OptimizerConfig{
			MaxTwoOptPasses:     100,
			MaxPermutationStops: MaxPermutationStops,
			MaxGroupSpan:        4,
		},
	}
}

type recordingMetrics struct {
	trips      int
	deliveries int
	late       int
	saved      map[string]float64
	runMiles   float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{saved: map[string]float64{}}
}

func (m *recordingMetrics) RecordTrip(int, float64, float64) { m.trips++ }

func (m *recordingMetrics) RecordDelivery(_ int, late bool) {
	m.deliveries++
	if late {
		m.late++
	}
}

func (m *recordingMetrics) RecordOptimization(pass string, saved float64) { m.saved[pass] += saved }

func (m *recordingMetrics) RecordRun(totalMiles float64, _ int) { m.runMiles = totalMiles }

func eventKinds(evs []domain.Event) []domain.EventKind {
	kinds := make([]domain.EventKind, 0, len(evs))
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
