package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SignData computes a hex-encoded HMAC-SHA256 signature over data
func SignData(data string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignedData checks a hex-encoded HMAC-SHA256 signature in constant time
func ValidateSignedData(data, signature string, key []byte) bool {
	expected := SignData(data, key)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// DeriveKey derives a fixed-size key from a shared secret via HKDF-SHA256.
// Distinct info strings keep signing and encryption keys independent even
// when both are derived from the same configured secret.
func DeriveKey(secret []byte, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}
