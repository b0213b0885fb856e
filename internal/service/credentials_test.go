package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

func newTestCache(t *testing.T, ttl time.Duration) (*CredentialCache, *fakeNow) {
	t.Helper()

	crypto, err := NewEphemeralEncryptionService()
	require.NoError(t, err)

	cache := NewCredentialCache(crypto, ttl)
	clock := &fakeNow{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache.now = clock.Now
	return cache, clock
}

type fakeNow struct {
	t time.Time
}

func (f *fakeNow) Now() time.Time          { return f.t }
func (f *fakeNow) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestCredentialCache_StoreFetch(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	require.NoError(t, cache.Store(1, "db-password"))

	got, err := cache.Fetch(1)
	require.NoError(t, err)
	assert.Equal(t, "db-password", got)
	assert.True(t, cache.IsValid(1))
}

func TestCredentialCache_UnknownUser(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	_, err := cache.Fetch(99)
	assert.ErrorIs(t, err, core.ErrCredentialNotFound)
	assert.False(t, cache.IsValid(99))
}

func TestCredentialCache_ExpiryFailsClosed(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour)

	require.NoError(t, cache.Store(1, "db-password"))
	clock.Advance(61 * time.Minute)

	_, err := cache.Fetch(1)
	assert.ErrorIs(t, err, core.ErrSessionExpired)

	// The expired entry is purged; the next fetch no longer reports expiry.
	_, err = cache.Fetch(1)
	assert.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestCredentialCache_StoreResetsTTL(t *testing.T) {
	cache, clock := newTestCache(t, time.Hour)

	require.NoError(t, cache.Store(1, "first"))
	clock.Advance(50 * time.Minute)
	require.NoError(t, cache.Store(1, "second"))
	clock.Advance(50 * time.Minute)

	got, err := cache.Fetch(1)
	require.NoError(t, err)
	assert.Equal(t, "second", got, "re-login replaces the credential and its clock")
}

func TestCredentialCache_Remove(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	require.NoError(t, cache.Store(1, "db-password"))
	cache.Remove(1)

	_, err := cache.Fetch(1)
	assert.ErrorIs(t, err, core.ErrCredentialNotFound)

	// Removing an absent entry is a no-op.
	cache.Remove(42)
}

func TestCredentialCache_IsValidPurgesExpired(t *testing.T) {
	cache, clock := newTestCache(t, time.Minute)

	require.NoError(t, cache.Store(1, "db-password"))
	assert.True(t, cache.IsValid(1))

	clock.Advance(2 * time.Minute)
	assert.False(t, cache.IsValid(1))

	_, err := cache.Fetch(1)
	assert.ErrorIs(t, err, core.ErrCredentialNotFound, "IsValid drops the expired entry")
}

func TestCredentialCache_UsersAreIsolated(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)

	require.NoError(t, cache.Store(1, "alice-pw"))
	require.NoError(t, cache.Store(2, "bob-pw"))
	cache.Remove(1)

	got, err := cache.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, "bob-pw", got)
}
