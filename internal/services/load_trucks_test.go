package services

import (
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/events"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, xs []float64, pkgs ...*domain.Package) *TruckLoader {
	t.Helper()

	dir := newDirectory(t, pkgs...)
	cls, err := Classify(dir.All(), clock(8, 0), clock(17, 0))
	require.NoError(t, err)

	queue := events.FromPackages(dir.All(), clock(8, 0))
	return NewTruckLoader(dir, lineMatrix(t, xs...), cls, queue, clock(17, 0), nil)
}

func TestNextLoadPriority(t *testing.T) {
	urgent := newPackage(1, 5)
	urgent.Deadline = deadline(9, 0)
	restricted := newPackage(2, 1)
	restricted.TruckAffinity = 2
	first := newPackage(3, 2)
	first.GroupID = 3
	second := newPackage(4, 3)
	second.GroupID = 3

	loader := newTestLoader(t, []float64{0, 1, 2, 3, 4, 5, 20},
		urgent, restricted, first, second, newPackage(5, 4), newPackage(6, 6))

	truck1 := domain.NewTruck(1, 3, 2, 0, clock(8, 0))
	load, err := loader.NextLoad(truck1, clock(8, 0), 2)
	require.NoError(t, err)
	require.NotNil(t, load)

	assert.Equal(t, []int{1, 3, 4}, load.PackageIDs)
	assert.Equal(t, 1, load.Trip)
	assert.Len(t, truck1.Packages, 3)
	for _, p := range truck1.Packages {
		assert.Equal(t, domain.EnRoute, p.Status)
		assert.Equal(t, 1, p.TruckID)
		assert.Equal(t, 1, p.Trip)
		require.NotNil(t, p.LoadedAt)
		assert.Equal(t, clock(8, 0), *p.LoadedAt)
	}
	assert.Equal(t, []int{2, 5, 6}, loader.Pending())

	truck2 := domain.NewTruck(2, 3, 2, 0, clock(9, 5))
	load, err = loader.NextLoad(truck2, clock(9, 5), 1)
	require.NoError(t, err)
	require.NotNil(t, load)

	// The restricted package leads, then the closest fill.
	assert.Equal(t, []int{2, 5, 6}, load.PackageIDs)
	assert.Empty(t, loader.Pending())
}

func TestNextLoadDefersUnitThatDoesNotFit(t *testing.T) {
	urgent := newPackage(1, 1)
	urgent.Deadline = deadline(9, 0)
	var group []*domain.Package
	for id := 2; id <= 4; id++ {
		p := newPackage(id, 4)
		p.GroupID = 2
		group = append(group, p)
	}

	pkgs := append([]*domain.Package{urgent, newPackage(5, 2), newPackage(6, 3)}, group...)
	loader := newTestLoader(t, []float64{0, 5, 4, 20, 1}, pkgs...)

	truck := domain.NewTruck(1, 3, 2, 0, clock(8, 0))
	load, err := loader.NextLoad(truck, clock(8, 0), 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 5, 6}, load.PackageIDs)
	assert.Equal(t, []int{2, 3, 4}, loader.Pending(), "the group waits whole for a later trip")
}

func TestNextLoadWaitsForDelayedPackages(t *testing.T) {
	delayed := newPackage(1, 1)
	delayed.AvailableAt = clock(9, 5)
	loader := newTestLoader(t, []float64{0, 1, 2}, delayed, newPackage(2, 2))

	truck1 := domain.NewTruck(1, 16, 2, 0, clock(8, 0))
	load, err := loader.NextLoad(truck1, clock(8, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, load.PackageIDs)

	truck2 := domain.NewTruck(2, 16, 2, 0, clock(8, 0))
	load, err = loader.NextLoad(truck2, clock(8, 0), 2)
	require.NoError(t, err)
	assert.Nil(t, load)

	next, ok := loader.NextRelease(truck2, clock(8, 0))
	require.True(t, ok)
	assert.Equal(t, clock(9, 5), next)

	load, err = loader.NextLoad(truck2, next, 2)
	require.NoError(t, err)
	require.NotNil(t, load)
	assert.Equal(t, []int{1}, load.PackageIDs)
	assert.Equal(t, []domain.EventKind{domain.EventReleased}, eventKinds(load.Events))
	assert.Equal(t, 2, load.Events[0].TruckID)

	_, ok = loader.NextRelease(truck2, next)
	assert.False(t, ok)
}

func TestNextLoadAppliesDueCorrections(t *testing.T) {
	due := newPackage(9, 1)
	due.Correction = &domain.Correction{At: clock(9, 0), Address: "410 S State St", Location: 2}
	pending := newPackage(10, 1)
	pending.Correction = &domain.Correction{At: clock(10, 20), Address: "1 Late Ave", Location: 3}

	loader := newTestLoader(t, []float64{0, 1, 2, 3}, due, pending)

	truck := domain.NewTruck(2, 16, 2, 0, clock(9, 5))
	load, err := loader.NextLoad(truck, clock(9, 5), 1)
	require.NoError(t, err)
	require.NotNil(t, load)

	assert.ElementsMatch(t, []int{9, 10}, load.PackageIDs)
	assert.Equal(t, []domain.EventKind{domain.EventCorrectionApplied}, eventKinds(load.Events))

	assert.Equal(t, "410 S State St", due.Address)
	assert.Equal(t, 2, due.Location)
	assert.Equal(t, "900 Main St", due.OriginalAddress)
	assert.False(t, due.CorrectionPending())

	assert.True(t, pending.CorrectionPending())
	assert.Equal(t, 1, pending.Location)
}

func TestNextLoadIgnoresOtherTrucksPackages(t *testing.T) {
	restricted := newPackage(1, 1)
	restricted.TruckAffinity = 2
	loader := newTestLoader(t, []float64{0, 1}, restricted)

	truck := domain.NewTruck(1, 16, 2, 0, clock(8, 0))
	load, err := loader.NextLoad(truck, clock(8, 0), 4)
	require.NoError(t, err)
	assert.Nil(t, load)

	_, ok := loader.NextRelease(truck, clock(8, 0))
	assert.False(t, ok)
}

func TestBalanceTarget(t *testing.T) {
	tests := []struct {
		name     string
		pending  int
		capacity int
		trips    int
		want     int
	}{
		{name: "spreads over needed trips", pending: 40, capacity: 16, trips: 4, want: 14},
		{name: "one trip is enough", pending: 10, capacity: 16, trips: 4, want: 10},
		{name: "last trip fills up", pending: 33, capacity: 16, trips: 1, want: 16},
		{name: "nothing pending", pending: 0, capacity: 16, trips: 2, want: 0},
		{name: "no room", pending: 20, capacity: 0, trips: 2, want: 0},
		{name: "exact split", pending: 32, capacity: 16, trips: 3, want: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, balanceTarget(tt.pending, tt.capacity, tt.trips))
		})
	}
}

func TestLoadUnitsKeepGroupsWhole(t *testing.T) {
	a := newPackage(1, 1)
	a.GroupID = 1
	b := newPackage(2, 1)
	b.GroupID = 1
	b.AvailableAt = clock(9, 5)
	b.Deadline = deadline(10, 30)

	loader := newTestLoader(t, []float64{0, 1}, a, b)
	units := loader.units()

	require.Len(t, units, 1)
	assert.Equal(t, []int{1, 2}, units[0].ids)
	assert.True(t, units[0].grouped)
	assert.True(t, units[0].bound)
	assert.Equal(t, clock(9, 5), units[0].availableAt)
	assert.Equal(t, clock(10, 30), units[0].deadline)
}

func TestNextLoadHoldsLastTripForRestrictedRelease(t *testing.T) {
	build := func() *TruckLoader {
		restricted := newPackage(3, 3)
		restricted.TruckAffinity = 1
		restricted.AvailableAt = clock(9, 0)
		return newTestLoader(t, []float64{0, 1, 2, 3}, newPackage(1, 1), newPackage(2, 2), restricted)
	}

	t.Run("last trip waits", func(t *testing.T) {
		loader := build()
		truck := domain.NewTruck(1, 3, 1, 0, clock(8, 0))

		load, err := loader.NextLoad(truck, clock(8, 0), 2)
		require.NoError(t, err)
		assert.Nil(t, load)

		next, ok := loader.NextRelease(truck, clock(8, 0))
		require.True(t, ok)
		assert.Equal(t, clock(9, 0), next)

		load, err = loader.NextLoad(truck, next, 2)
		require.NoError(t, err)
		require.NotNil(t, load)
		assert.Equal(t, 3, load.PackageIDs[0])
		assert.ElementsMatch(t, []int{1, 2, 3}, load.PackageIDs)
	})

	t.Run("truck that can return loads now", func(t *testing.T) {
		loader := build()
		truck := domain.NewTruck(1, 3, 2, 0, clock(8, 0))

		load, err := loader.NextLoad(truck, clock(8, 0), 2)
		require.NoError(t, err)
		require.NotNil(t, load)
		assert.ElementsMatch(t, []int{1, 2}, load.PackageIDs)
	})

	t.Run("other trucks are not held", func(t *testing.T) {
		loader := build()
		truck := domain.NewTruck(2, 3, 1, 0, clock(8, 0))

		load, err := loader.NextLoad(truck, clock(8, 0), 2)
		require.NoError(t, err)
		require.NotNil(t, load)
		assert.ElementsMatch(t, []int{1, 2}, load.PackageIDs)
	})
}
