package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, StatusWaiting.CanTransitionTo(StatusApproved))
	assert.True(t, StatusWaiting.CanTransitionTo(StatusRejected))

	// Terminal states never move again.
	assert.False(t, StatusApproved.CanTransitionTo(StatusRejected))
	assert.False(t, StatusApproved.CanTransitionTo(StatusWaiting))
	assert.False(t, StatusRejected.CanTransitionTo(StatusApproved))

	assert.False(t, StatusWaiting.IsTerminal())
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("waiting")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, status)

	_, err = ParseBookingStatus("pending")
	assert.Error(t, err)

	_, err = ParseBookingStatus("APPROVED")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }

	// Intersecting windows overlap.
	assert.True(t, Overlaps(h(0), h(4), h(2), h(6)))
	assert.True(t, Overlaps(h(2), h(6), h(0), h(4)))

	// Containment overlaps.
	assert.True(t, Overlaps(h(0), h(6), h(2), h(4)))

	// Touching end-to-start does not: intervals are half-open.
	assert.False(t, Overlaps(h(0), h(2), h(2), h(4)))
	assert.False(t, Overlaps(h(2), h(4), h(0), h(2)))

	// Disjoint windows do not overlap.
	assert.False(t, Overlaps(h(0), h(1), h(3), h(4)))
}

func TestParseListFilter(t *testing.T) {
	filter, err := ParseListFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, filter)

	for _, raw := range []string{"ALL", "CURRENT", "PAST", "FUTURE", "WAITING", "REJECTED"} {
		filter, err := ParseListFilter(raw)
		require.NoError(t, err)
		assert.Equal(t, ListFilter(raw), filter)
	}

	_, err = ParseListFilter("waiting")
	require.Error(t, err)
	assert.EqualError(t, err, "unknown state: waiting")
}
