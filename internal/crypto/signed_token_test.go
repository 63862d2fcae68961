package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func TestTokenSignerRoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	original := testPayload{UserID: "1", Name: "A"}
	token, err := signer.Sign(original)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	var decoded testPayload
	err = signer.Verify(token, &decoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestTokenSignerExpiry(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), -time.Minute)

	token, err := signer.Sign(testPayload{UserID: "1"})
	require.NoError(t, err)

	var decoded testPayload
	err = signer.Verify(token, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenSignerTamperedPayload(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	token, err := signer.Sign(testPayload{UserID: "1", Name: "A"})
	require.NoError(t, err)

	// Flip a single byte in the payload segment, keep the signature
	parts := strings.SplitN(token, ".", 2)
	require.Len(t, parts, 2)
	payload := []byte(parts[0])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := string(payload) + "." + parts[1]

	var decoded testPayload
	err = signer.Verify(tampered, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestTokenSignerWrongKey(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)
	other := NewTokenSigner([]byte("other-signing-key-32-bytes-long!"), 10*time.Minute)

	token, err := signer.Sign(testPayload{UserID: "1"})
	require.NoError(t, err)

	var decoded testPayload
	err = other.Verify(token, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestTokenSignerInvalidFormat(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 10*time.Minute)

	var decoded testPayload
	assert.Error(t, signer.Verify("not-a-token", &decoded))
	assert.Error(t, signer.Verify("a.b.c", &decoded))
	assert.Error(t, signer.Verify("", &decoded))
}

func TestTokenSignerNoTTL(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key-32-bytes-long!!"), 0)

	token, err := signer.Sign(testPayload{UserID: "1"})
	require.NoError(t, err)

	var decoded testPayload
	assert.NoError(t, signer.Verify(token, &decoded))
}
