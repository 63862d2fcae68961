package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenSigner turns a JSON-serializable payload into a tamper-evident,
// time-bounded opaque string: base64url(json) + "." + hex(hmac).
type TokenSigner struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenSigner creates a new token signer
func NewTokenSigner(signingKey []byte, ttl time.Duration) TokenSigner {
	return TokenSigner{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

// tokenData wraps the caller's payload with issuance metadata
type tokenData struct {
	Data      json.RawMessage `json:"data"`
	IssuedAt  time.Time       `json:"iat"`
	ExpiresAt time.Time       `json:"exp,omitempty"`
}

// Sign marshals v to JSON, signs it with HMAC, and returns the combined token
func (ts *TokenSigner) Sign(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	td := tokenData{
		Data:     payload,
		IssuedAt: time.Now(),
	}
	if ts.ttl > 0 {
		td.ExpiresAt = td.IssuedAt.Add(ts.ttl)
	}

	jsonData, err := json.Marshal(td)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token data: %w", err)
	}

	encoded := base64.URLEncoding.EncodeToString(jsonData)
	signature := SignData(encoded, ts.signingKey)
	return encoded + "." + signature, nil
}

// Verify validates the signature, checks expiry, and unmarshals the payload
// into v. Any failure must be treated as an authentication rejection.
func (ts *TokenSigner) Verify(token string, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return fmt.Errorf("token verification failed: invalid token format")
	}

	// Signature is checked over the encoded segment before decoding anything
	if !ValidateSignedData(parts[0], parts[1], ts.signingKey) {
		return fmt.Errorf("token verification failed: invalid signature")
	}

	jsonData, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("token verification failed: decoding token data: %w", err)
	}

	var td tokenData
	if err := json.Unmarshal(jsonData, &td); err != nil {
		return fmt.Errorf("token verification failed: unmarshaling token data: %w", err)
	}

	if !td.ExpiresAt.IsZero() && time.Now().After(td.ExpiresAt) {
		return fmt.Errorf("token verification failed: token expired")
	}

	if err := json.Unmarshal(td.Data, v); err != nil {
		return fmt.Errorf("token verification failed: unmarshaling payload: %w", err)
	}

	return nil
}
