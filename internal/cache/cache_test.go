package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchLifecycle(t *testing.T) {
	s := NewStore()

	snap := s.Get(KeyBookings)
	assert.False(t, snap.Loaded)
	assert.False(t, snap.IsLoading)

	gen := s.BeginFetch(KeyBookings)
	assert.True(t, s.Get(KeyBookings).IsLoading)

	applied := s.Complete(KeyBookings, gen, []int{1, 2, 3}, nil)
	assert.True(t, applied)

	snap = s.Get(KeyBookings)
	assert.True(t, snap.Loaded)
	assert.False(t, snap.IsLoading)
	assert.NoError(t, snap.Err)
	assert.Equal(t, []int{1, 2, 3}, snap.Data)
}

func TestStaleFetchDiscarded(t *testing.T) {
	s := NewStore()

	gen := s.BeginFetch(KeyBookings)
	// Invalidation lands while the fetch is in flight (user navigated,
	// or a mutation refreshed the collection).
	s.Invalidate(KeyBookings)

	applied := s.Complete(KeyBookings, gen, []int{9}, nil)
	assert.False(t, applied, "stale result must not be written")
	assert.Nil(t, s.Get(KeyBookings).Data)

	// The fetch started after the invalidation still lands.
	gen2 := s.BeginFetch(KeyBookings)
	assert.True(t, s.Complete(KeyBookings, gen2, []int{10}, nil))
	assert.Equal(t, []int{10}, s.Get(KeyBookings).Data)
}

func TestCompleteRecordsError(t *testing.T) {
	s := NewStore()

	gen := s.BeginFetch(KeyTutors)
	fetchErr := errors.New("network unreachable")
	assert.True(t, s.Complete(KeyTutors, gen, nil, fetchErr))

	snap := s.Get(KeyTutors)
	assert.False(t, snap.Loaded)
	assert.ErrorIs(t, snap.Err, fetchErr)
}

func TestInvalidateKeepsDataUntilRefresh(t *testing.T) {
	s := NewStore()

	gen := s.BeginFetch(KeyReviews)
	s.Complete(KeyReviews, gen, "reviews", nil)

	s.Invalidate(KeyReviews)
	snap := s.Get(KeyReviews)
	assert.Equal(t, "reviews", snap.Data, "stale data stays readable")
	assert.False(t, snap.Loaded, "but is no longer marked fresh")
}

func TestClearDropsEverything(t *testing.T) {
	s := NewStore()

	for _, k := range AllKeys {
		gen := s.BeginFetch(k)
		s.Complete(k, gen, "data", nil)
	}

	s.Clear()

	for _, k := range AllKeys {
		snap := s.Get(k)
		assert.Nil(t, snap.Data, "collection %s must be dropped", k)
		assert.False(t, snap.Loaded)
		assert.False(t, snap.IsLoading)
	}
}

func TestIndependentCollections(t *testing.T) {
	s := NewStore()

	gen := s.BeginFetch(KeyBookings)
	s.BeginFetch(KeySchedules)

	s.Complete(KeyBookings, gen, "bookings", nil)

	assert.True(t, s.Get(KeyBookings).Loaded)
	assert.True(t, s.Get(KeySchedules).IsLoading, "other collection keeps its own loading flag")
}
