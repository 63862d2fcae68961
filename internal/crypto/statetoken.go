package crypto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StateToken issues stateless, self-validating OAuth state parameters:
// nonce:timestamp:signature. The relay checks the signature and age before
// ever touching its state store, so forged callbacks are rejected without
// a storage lookup.
type StateToken struct {
	signingKey []byte
	ttl        time.Duration
}

// NewStateToken creates a state token issuer
func NewStateToken(signingKey []byte, ttl time.Duration) StateToken {
	return StateToken{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

// Generate creates a new signed state parameter
func (s *StateToken) Generate() (string, error) {
	nonce, err := GenerateSecureToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	data := nonce + ":" + timestamp
	signature := SignData(data, s.signingKey)

	return fmt.Sprintf("%s:%s:%s", nonce, timestamp, signature), nil
}

// Validate checks whether a state parameter was issued here and is not expired
func (s *StateToken) Validate(token string) bool {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 {
		return false
	}

	nonce := parts[0]
	timestampStr := parts[1]
	signature := parts[2]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return false
	}

	if time.Since(time.Unix(timestamp, 0)) > s.ttl {
		return false
	}

	data := nonce + ":" + timestampStr
	return ValidateSignedData(data, signature, s.signingKey)
}
