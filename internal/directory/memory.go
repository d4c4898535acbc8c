// Package directory holds the in-memory package store a planning run mutates.
package directory

import (
	"delivery-route-engine/internal/domain"
	"fmt"
	"slices"
	"time"
)

// MemoryDirectory is a map-backed implementation of the PackageDirectory port.
type MemoryDirectory struct {
	byID map[int]*domain.Package
}

// Build a directory from package records. Duplicate ids are a configuration error.
func NewMemoryDirectory(pkgs []*domain.Package) (*MemoryDirectory, error) {
	byID := make(map[int]*domain.Package, len(pkgs))
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		if _, dup := byID[p.PackageID]; dup {
			return nil, domain.NewConfigError("new directory", "duplicate package_id=%d", p.PackageID)
		}
		byID[p.PackageID] = p
	}
	return &MemoryDirectory{byID: byID}, nil
}

// Build a directory over deep copies of the given records.
func CloneOf(pkgs []*domain.Package) (*MemoryDirectory, error) {
	clones := make([]*domain.Package, 0, len(pkgs))
	for _, p := range pkgs {
		clones = append(clones, p.Clone())
	}
	return NewMemoryDirectory(clones)
}

func (d *MemoryDirectory) Get(id int) (*domain.Package, error) {
	p, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("get package %d: %w", id, domain.ErrPackageNotFound)
	}
	return p, nil
}

func (d *MemoryDirectory) SetStatus(id int, status domain.Status, at time.Time) error {
	p, err := d.Get(id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	switch status {
	case domain.EnRoute:
		return p.MarkLoaded(p.TruckID, p.Trip, at)
	case domain.Delivered:
		return p.MarkDelivered(at)
	default:
		return fmt.Errorf("set status: package %d: %s -> %s: %w", id, p.Status, status, domain.ErrInvalidTransition)
	}
}

func (d *MemoryDirectory) SetAddress(id int, address string, location int, at time.Time) error {
	p, err := d.Get(id)
	if err != nil {
		return fmt.Errorf("set address: %w", err)
	}
	return p.Readdress(address, location, at)
}

func (d *MemoryDirectory) Assign(id int, truckID int, trip int) error {
	p, err := d.Get(id)
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	if p.Status != domain.AtHub {
		return fmt.Errorf("assign: package %d is %s: %w", id, p.Status, domain.ErrInvalidTransition)
	}
	if p.TruckAffinity != 0 && p.TruckAffinity != truckID {
		return fmt.Errorf("assign: package %d is restricted to truck %d, not %d", id, p.TruckAffinity, truckID)
	}

	p.TruckID = truckID
	p.Trip = trip
	return nil
}

func (d *MemoryDirectory) All() []*domain.Package {
	out := make([]*domain.Package, 0, len(d.byID))
	for _, p := range d.byID {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *domain.Package) int { return a.PackageID - b.PackageID })
	return out
}
