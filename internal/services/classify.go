package services

import (
	"cmp"
	"delivery-route-engine/internal/domain"
	"slices"
	"time"
)

// Classification is a read-only view of packages by delivery constraint.
// Categories overlap: a delayed package may also be deadline-bound.
type Classification struct {
	DeadlineBound     []int
	TruckRestricted   map[int][]int
	Groups            map[int]*domain.Group
	Delayed           []int
	CorrectionPending []int
	Unconstrained     []int
}

// Group holding the package, if any.
func (c *Classification) GroupOf(p *domain.Package) (*domain.Group, bool) {
	if p.GroupID == 0 {
		return nil, false
	}
	g, ok := c.Groups[p.GroupID]
	return g, ok
}

// Classify partitions packages by constraint. It never mutates the records.
//
// A group whose members are bound to different trucks cannot be loaded and is
// reported as a configuration error before any assignment happens.
func Classify(pkgs []*domain.Package, firstDeparture time.Time, endOfDay time.Time) (*Classification, error) {
	c := &Classification{
		TruckRestricted: map[int][]int{},
		Groups:          map[int]*domain.Group{},
	}

	sorted := slices.Clone(pkgs)
	slices.SortFunc(sorted, func(a, b *domain.Package) int { return cmp.Compare(a.PackageID, b.PackageID) })

	seen := make(map[int]bool, len(sorted))
	for _, p := range sorted {
		if seen[p.PackageID] {
			return nil, domain.NewConfigError("classify", "duplicate package_id=%d", p.PackageID)
		}
		seen[p.PackageID] = true

		if p.Location < 0 {
			return nil, domain.NewConfigError("classify", "package_id=%d has no resolved location", p.PackageID)
		}

		constrained := false
		if p.DeadlineBound(endOfDay) {
			c.DeadlineBound = append(c.DeadlineBound, p.PackageID)
			constrained = true
		}
		if p.TruckAffinity != 0 {
			c.TruckRestricted[p.TruckAffinity] = append(c.TruckRestricted[p.TruckAffinity], p.PackageID)
			constrained = true
		}
		if p.GroupID != 0 {
			g, ok := c.Groups[p.GroupID]
			if !ok {
				g = &domain.Group{ID: p.GroupID}
				c.Groups[p.GroupID] = g
			}
			g.Members = append(g.Members, p.PackageID)

			if p.TruckAffinity != 0 {
				if g.Affinity != 0 && g.Affinity != p.TruckAffinity {
					return nil, domain.NewConfigError("classify",
						"group %d: package_id=%d is restricted to truck %d but the group is bound to truck %d",
						g.ID, p.PackageID, p.TruckAffinity, g.Affinity)
				}
				g.Affinity = p.TruckAffinity
			}
			constrained = true
		}
		if p.AvailableAt.After(firstDeparture) {
			c.Delayed = append(c.Delayed, p.PackageID)
			constrained = true
		}
		if p.CorrectionPending() {
			c.CorrectionPending = append(c.CorrectionPending, p.PackageID)
			constrained = true
		}

		if !constrained {
			c.Unconstrained = append(c.Unconstrained, p.PackageID)
		}
	}

	byID := make(map[int]*domain.Package, len(sorted))
	for _, p := range sorted {
		byID[p.PackageID] = p
	}
	slices.SortStableFunc(c.DeadlineBound, func(a, b int) int {
		return byID[a].Deadline.Compare(*byID[b].Deadline)
	})

	return c, nil
}

// validateFleet rejects affinities to trucks outside the fleet and groups no
// eligible truck could ever carry.
func validateFleet(c *Classification, trucks []*domain.Truck) error {
	known := make(map[int]bool, len(trucks))
	for _, t := range trucks {
		known[t.TruckID] = true
	}

	truckIDs := make([]int, 0, len(c.TruckRestricted))
	for id := range c.TruckRestricted {
		truckIDs = append(truckIDs, id)
	}
	slices.Sort(truckIDs)
	for _, id := range truckIDs {
		if !known[id] {
			return domain.NewConfigError("classify", "packages %v are restricted to unknown truck %d", c.TruckRestricted[id], id)
		}
	}

	groupIDs := make([]int, 0, len(c.Groups))
	for id := range c.Groups {
		groupIDs = append(groupIDs, id)
	}
	slices.Sort(groupIDs)

	for _, id := range groupIDs {
		g := c.Groups[id]
		fits := false
		for _, t := range trucks {
			if (g.Affinity == 0 || g.Affinity == t.TruckID) && t.Capacity >= g.Size() {
				fits = true
				break
			}
		}
		if !fits {
			return domain.NewConfigError("classify", "group %d with %d packages fits no eligible truck", g.ID, g.Size())
		}
	}
	return nil
}
