package domain

import "slices"

// Represents packages that must travel together on one truck trip.
// Affinity is the truck any member is bound to, or 0.
type Group struct {
	ID       int
	Members  []int
	Affinity int
}

func (g *Group) Size() int { return len(g.Members) }

// ResolveGroups closes "deliver with" links transitively and stamps every
// member of a connected set with the smallest id in that set.
// Links to unknown packages are a configuration error.
func ResolveGroups(pkgs []*Package, links map[int][]int) error {
	byID := make(map[int]*Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.PackageID] = p
	}

	adj := make(map[int][]int)
	for from, tos := range links {
		if _, ok := byID[from]; !ok {
			return NewConfigError("resolve groups", "package %d is not loaded", from)
		}
		for _, to := range tos {
			if _, ok := byID[to]; !ok {
				return NewConfigError("resolve groups", "package %d must travel with unknown package %d", from, to)
			}
			if to == from {
				continue
			}
			adj[from] = append(adj[from], to)
			adj[to] = append(adj[to], from)
		}
	}

	roots := make([]int, 0, len(adj))
	for id := range adj {
		roots = append(roots, id)
	}
	slices.Sort(roots)

	seen := make(map[int]bool, len(adj))
	for _, root := range roots {
		if seen[root] {
			continue
		}

		var component []int
		stack := []int{root}
		seen[root] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, id)
			for _, next := range adj[id] {
				if !seen[next] {
					seen[next] = true
					stack = append(stack, next)
				}
			}
		}

		groupID := slices.Min(component)
		for _, id := range component {
			byID[id].GroupID = groupID
		}
	}

	return nil
}
