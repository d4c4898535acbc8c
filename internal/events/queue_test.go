package events

import (
	"delivery-route-engine/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m int) time.Time {
	return time.Date(2026, 1, 1, h, m, 0, 0, time.UTC)
}

func TestFromPackages(t *testing.T) {
	pkgs := []*domain.Package{
		{PackageID: 1},
		{PackageID: 6, AvailableAt: clock(9, 5)},
		{PackageID: 9, Correction: &domain.Correction{At: clock(10, 20), Address: "410 S State St", Location: 19}},
		{PackageID: 12, AvailableAt: clock(8, 0)},
	}

	q := FromPackages(pkgs, clock(8, 0))
	require.Equal(t, 2, q.Len())

	ev, ok := q.Next(9, domain.EventCorrectionApplied)
	require.True(t, ok)
	assert.Equal(t, "410 S State St", ev.Detail)
	assert.Equal(t, 19, ev.Location)

	_, ok = q.Next(12, domain.EventReleased)
	assert.False(t, ok, "package available at first departure is not delayed")
}

func TestQueueDue(t *testing.T) {
	q := NewQueue()
	q.Schedule(domain.Event{Kind: domain.EventCorrectionApplied, At: clock(10, 20), PackageID: 9})
	q.Schedule(domain.Event{Kind: domain.EventReleased, At: clock(9, 5), PackageID: 25})
	q.Schedule(domain.Event{Kind: domain.EventReleased, At: clock(9, 5), PackageID: 6})

	assert.Empty(t, q.Due(clock(9, 0), 6, 9, 25))

	due := q.Due(clock(9, 5), 25, 9, 6)
	require.Len(t, due, 2)
	assert.Equal(t, 6, due[0].PackageID)
	assert.Equal(t, 25, due[1].PackageID)

	assert.Empty(t, q.Due(clock(9, 5), 6, 25), "events fire once")
	assert.Empty(t, q.Due(clock(23, 0), 6), "other packages are untouched")

	due = q.Due(clock(23, 0), 9)
	require.Len(t, due, 1)
	assert.Equal(t, domain.EventCorrectionApplied, due[0].Kind)
	assert.Equal(t, 0, q.Len())
}
