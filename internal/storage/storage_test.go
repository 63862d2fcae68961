package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seowriter/zalo-bridge/internal/zalo"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(DefaultTTLs())
}

func TestLoginAttemptConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	attempt := LoginAttempt{
		CodeVerifier: "verifier",
		State:        "state-1",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.StoreLoginAttempt(ctx, "attempt-1", attempt))

	got, err := store.ConsumeLoginAttempt(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "verifier", got.CodeVerifier)
	assert.Equal(t, "state-1", got.State)

	// Second consume fails: one-time use
	_, err = store.ConsumeLoginAttempt(ctx, "attempt-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAttemptsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.StoreLoginAttempt(ctx, "a", LoginAttempt{State: "s-a"}))
	require.NoError(t, store.StoreLoginAttempt(ctx, "b", LoginAttempt{State: "s-b"}))

	// Consuming the second attempt leaves the first untouched
	gotB, err := store.ConsumeLoginAttempt(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "s-b", gotB.State)

	gotA, err := store.ConsumeLoginAttempt(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "s-a", gotA.State)
}

func TestRelayStateConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	rs := RelayState{
		RedirectURI: "https://app.example.com/api/auth/zalo/proxy-callback",
		State:       "S",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.StoreRelayState(ctx, "S", rs))

	got, err := store.ConsumeRelayState(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, rs.RedirectURI, got.RedirectURI)

	_, err = store.ConsumeRelayState(ctx, "S")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStagedLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	staged := StagedLogin{
		Token:     zalo.TokenBundle{AccessToken: "T"},
		UserInfo:  zalo.Profile{ID: "1", Name: "A"},
		Timestamp: time.Now(),
	}
	require.NoError(t, store.StoreStagedLogin(ctx, "staging-1", staged))

	got, err := store.ConsumeStagedLogin(ctx, "staging-1")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Token.AccessToken)
	assert.Equal(t, "1", got.UserInfo.ID)

	_, err = store.ConsumeStagedLogin(ctx, "staging-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredEntriesFailClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(TTLConfig{
		LoginAttempt: -time.Second,
		RelayState:   -time.Second,
		StagedLogin:  -time.Second,
	})

	require.NoError(t, store.StoreLoginAttempt(ctx, "a", LoginAttempt{State: "s"}))
	_, err := store.ConsumeLoginAttempt(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.StoreRelayState(ctx, "S", RelayState{State: "S"}))
	_, err = store.ConsumeRelayState(ctx, "S")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(TTLConfig{
		LoginAttempt: -time.Second,
		RelayState:   time.Minute,
		StagedLogin:  -time.Second,
	})

	require.NoError(t, store.StoreLoginAttempt(ctx, "a", LoginAttempt{}))
	require.NoError(t, store.StoreRelayState(ctx, "S", RelayState{}))
	require.NoError(t, store.StoreStagedLogin(ctx, "st", StagedLogin{}))

	count, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Live entry survived the sweep
	_, err = store.ConsumeRelayState(ctx, "S")
	assert.NoError(t, err)
}

func TestCleanupManagerStops(t *testing.T) {
	store := newTestStore()
	cm := NewCleanupManager(store, 10*time.Millisecond)

	cm.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	cm.Stop() // must not hang
}

func TestUnknownKeysReturnNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	_, err := store.ConsumeLoginAttempt(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.ConsumeRelayState(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.ConsumeStagedLogin(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
