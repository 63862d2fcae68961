package zalo

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/seowriter/zalo-bridge/internal/crypto"
)

// GenerateCodeVerifier creates a PKCE code verifier
func GenerateCodeVerifier() (string, error) {
	return crypto.GenerateSecureToken()
}

// CodeChallengeS256 computes the S256 challenge for a verifier
func CodeChallengeS256(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// VerifyPKCE checks a verifier against its challenge
func VerifyPKCE(verifier, challenge string) bool {
	computed := CodeChallengeS256(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
