package session

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorlink/internal/models"
)

func testIdentity() Identity {
	return Identity{
		User: models.User{
			ID:        7,
			Email:     "anna@example.com",
			FirstName: "Anna",
			LastName:  "Petrova",
			Role:      models.RoleTutor,
		},
		Access:  "access-token",
		Refresh: "refresh-token",
	}
}

func TestEstablishAndRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := zerolog.New(io.Discard)

	s := New(store, logger)
	require.NoError(t, s.Establish(ctx, testIdentity()))

	assert.Equal(t, "access-token", s.AccessToken())
	assert.Equal(t, models.RoleTutor, s.Role())

	// Fresh session over the same store picks the identity back up.
	s2 := New(store, logger)
	require.NoError(t, s2.Restore(ctx))
	id, ok := s2.Identity()
	require.True(t, ok)
	assert.Equal(t, "anna@example.com", id.User.Email)
}

func TestRestoreWithoutPersistedSession(t *testing.T) {
	s := New(NewMemoryStore(), zerolog.New(io.Discard))
	require.NoError(t, s.Restore(context.Background()))

	_, ok := s.Identity()
	assert.False(t, ok)
	assert.Empty(t, s.AccessToken())
	assert.Empty(t, string(s.Role()))
}

func TestInvalidateRunsTeardownOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, zerolog.New(io.Discard))
	require.NoError(t, s.Establish(ctx, testIdentity()))

	var mu sync.Mutex
	calls := 0
	s.OnExpire(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Several in-flight requests hit 401 at the same time.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Invalidate(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "teardown must run exactly once")
	_, ok := s.Identity()
	assert.False(t, ok)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, persisted, "persisted session must be cleared")
}

func TestTeardownFiresAgainAfterReestablish(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), zerolog.New(io.Discard))

	calls := 0
	s.OnExpire(func() { calls++ })

	require.NoError(t, s.Establish(ctx, testIdentity()))
	s.Invalidate(ctx)
	require.NoError(t, s.Establish(ctx, testIdentity()))
	s.Invalidate(ctx)

	assert.Equal(t, 2, calls)
}

func TestLogoutClearsSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, zerolog.New(io.Discard))
	require.NoError(t, s.Establish(ctx, testIdentity()))

	require.NoError(t, s.Logout(ctx))

	_, ok := s.Identity()
	assert.False(t, ok)
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	id := testIdentity()
	require.NoError(t, store.Save(ctx, &id))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, id.User, loaded.User)
	assert.Equal(t, id.Access, loaded.Access)
	assert.Equal(t, id.Refresh, loaded.Refresh)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
