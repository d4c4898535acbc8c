// Package events schedules the dynamic changes that happen during a service
// day: delayed packages becoming available and address corrections.
package events

import (
	"cmp"
	"delivery-route-engine/internal/domain"
	"slices"
	"time"
)

// Queue keeps pending events per package, each list ordered by time.
// Events are handed out once; a consumed event never fires again.
type Queue struct {
	byPackage map[int][]domain.Event
}

func NewQueue() *Queue {
	return &Queue{byPackage: make(map[int][]domain.Event)}
}

// Schedule release events for packages available after the first departure and
// correction events for every pending correction.
func FromPackages(pkgs []*domain.Package, firstDeparture time.Time) *Queue {
	q := NewQueue()
	for _, p := range pkgs {
		if p.AvailableAt.After(firstDeparture) {
			q.Schedule(domain.Event{
				Kind:      domain.EventReleased,
				At:        p.AvailableAt,
				PackageID: p.PackageID,
				Location:  p.Location,
			})
		}
		if p.CorrectionPending() {
			q.Schedule(domain.Event{
				Kind:      domain.EventCorrectionApplied,
				At:        p.Correction.At,
				PackageID: p.PackageID,
				Location:  p.Correction.Location,
				Detail:    p.Correction.Address,
			})
		}
	}
	return q
}

func (q *Queue) Schedule(ev domain.Event) {
	list := append(q.byPackage[ev.PackageID], ev)
	slices.SortStableFunc(list, compareEvents)
	q.byPackage[ev.PackageID] = list
}

// Next pending event for a package without consuming it.
func (q *Queue) Next(pkgID int, kind domain.EventKind) (domain.Event, bool) {
	for _, ev := range q.byPackage[pkgID] {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return domain.Event{}, false
}

// Remove and return the events of the given packages due at or before until,
// ordered by time, kind and package id.
func (q *Queue) Due(until time.Time, pkgIDs ...int) []domain.Event {
	var due []domain.Event
	for _, id := range pkgIDs {
		list := q.byPackage[id]
		n := 0
		for n < len(list) && !list[n].At.After(until) {
			n++
		}
		if n == 0 {
			continue
		}
		due = append(due, list[:n]...)
		if n == len(list) {
			delete(q.byPackage, id)
		} else {
			q.byPackage[id] = list[n:]
		}
	}
	slices.SortStableFunc(due, compareEvents)
	return due
}

// Number of events not yet consumed.
func (q *Queue) Len() int {
	n := 0
	for _, list := range q.byPackage {
		n += len(list)
	}
	return n
}

func compareEvents(a, b domain.Event) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.PackageID, b.PackageID)
}
