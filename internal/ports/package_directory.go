package ports

import (
	"delivery-route-engine/internal/domain"
	"time"
)

// Mutable mapping from package id to package record.
// It is owned by a single planning run and is not safe for concurrent use.
type PackageDirectory interface {
	Get(id int) (*domain.Package, error)
	// Record a lifecycle transition at the given simulated time.
	SetStatus(id int, status domain.Status, at time.Time) error
	// Replace the delivery address of a package.
	SetAddress(id int, address string, location int, at time.Time) error
	// Bind a package to a truck trip ahead of its En Route transition.
	Assign(id int, truckID int, trip int) error
	// All packages ordered by id.
	All() []*domain.Package
}
