package ports

import (
	"context"
	"delivery-route-engine/internal/domain"
)

// Port: a boundary for retrieving Package entities from a data source.
type PackageRepository interface {
	// Retrieve all packages available for routing.
	ListPackages(ctx context.Context) ([]*domain.Package, error)
}

// Port: a boundary for retrieving the precomputed distance matrix.
type DistanceRepository interface {
	// Return location labels in matrix order and the symmetric distance rows.
	LoadDistances(ctx context.Context) ([]string, [][]float64, error)
}
