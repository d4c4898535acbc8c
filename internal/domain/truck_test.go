package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTruckApplyTrip(t *testing.T) {
	// build test data
	departAt := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	truck := NewTruck(1, 3, 2, 0, departAt)

	pkg1 := &Package{PackageID: 1, Location: 4}
	pkg2 := &Package{PackageID: 2, Location: 7}
	if err := truck.LoadMultiple([]*Package{pkg1, pkg2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	truck.Drive(4, 3.5)
	truck.Drive(7, 1.5)
	truck.Drive(0, 6)

	trip := &Trip{
		TruckID:    1,
		Number:     1,
		DepartAt:   departAt,
		ReturnAt:   departAt.Add(40 * time.Minute),
		PackageIDs: []int{1, 2},
		Miles:      11,
	}

	// call the method under test
	if err := truck.ApplyTrip(trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// verify behavior
	if !truck.ReadyAt.Equal(departAt.Add(40 * time.Minute)) {
		t.Errorf("ReadyAt = %v, want %v", truck.ReadyAt, departAt.Add(40*time.Minute))
	}
	if truck.Odometer != 11 {
		t.Errorf("Odometer = %v, want 11", truck.Odometer)
	}
	if truck.Location != 0 {
		t.Errorf("Location = %d, want hub", truck.Location)
	}
	if len(truck.Packages) != 0 {
		t.Errorf("truck should be empty after trip, has %d packages", len(truck.Packages))
	}
	if truck.TripsLeft() != 1 {
		t.Errorf("TripsLeft = %d, want 1", truck.TripsLeft())
	}
}

func TestTruckApplyTripRejectsExhaustedTruck(t *testing.T) {
	departAt := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	truck := NewTruck(2, 16, 1, 0, departAt)

	if err := truck.ApplyTrip(&Trip{TruckID: 2, Number: 1, ReturnAt: departAt}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := truck.ApplyTrip(&Trip{TruckID: 2, Number: 2, ReturnAt: departAt}); err == nil {
		t.Fatal("expected error for a truck without trips left")
	}
	if err := truck.ApplyTrip(&Trip{TruckID: 9}); err == nil {
		t.Fatal("expected error for a trip of another truck")
	}
}

func TestTruckLoadCapacity(t *testing.T) {
	truck := NewTruck(1, 2, 1, 0, time.Time{})

	err := truck.LoadMultiple([]*Package{{PackageID: 1}, {PackageID: 2}, {PackageID: 3}})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if len(truck.Packages) != 2 {
		t.Fatalf("loaded %d packages, want 2", len(truck.Packages))
	}
}
