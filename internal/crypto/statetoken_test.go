package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTokenRoundTrip(t *testing.T) {
	st := NewStateToken([]byte("state-signing-key"), time.Minute)

	state, err := st.Generate()
	require.NoError(t, err)
	assert.True(t, st.Validate(state))
}

func TestStateTokenRejectsForgery(t *testing.T) {
	st := NewStateToken([]byte("state-signing-key"), time.Minute)

	state, err := st.Generate()
	require.NoError(t, err)

	parts := strings.SplitN(state, ":", 3)
	require.Len(t, parts, 3)
	forged := "other-nonce:" + parts[1] + ":" + parts[2]
	assert.False(t, st.Validate(forged))

	assert.False(t, st.Validate("garbage"))
	assert.False(t, st.Validate(""))
}

func TestStateTokenExpiry(t *testing.T) {
	st := NewStateToken([]byte("state-signing-key"), -time.Second)

	state, err := st.Generate()
	require.NoError(t, err)
	assert.False(t, st.Validate(state))
}

func TestStateTokenKeyMismatch(t *testing.T) {
	st := NewStateToken([]byte("relay key"), time.Minute)
	other := NewStateToken([]byte("different key"), time.Minute)

	state, err := st.Generate()
	require.NoError(t, err)
	assert.False(t, other.Validate(state))
}
