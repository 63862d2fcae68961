package crypto

import (
	"fmt"
	"time"
)

// EnvelopeCodec is the single authenticated codec for the relay hand-off:
// Seal signs the payload with a TTL and encrypts the signed token, Open
// reverses both steps. Signing and encryption keys are derived from one
// shared secret via HKDF so the relay and origin only have to agree on a
// single configuration value.
type EnvelopeCodec struct {
	signer    TokenSigner
	encryptor *Encryptor
}

// NewEnvelopeCodec derives keys from sharedSecret and builds the codec
func NewEnvelopeCodec(sharedSecret []byte, ttl time.Duration) (*EnvelopeCodec, error) {
	signingKey, err := DeriveKey(sharedSecret, "zalo-bridge/envelope-signing", 32)
	if err != nil {
		return nil, fmt.Errorf("deriving signing key: %w", err)
	}
	encryptionKey, err := DeriveKey(sharedSecret, "zalo-bridge/envelope-encryption", 32)
	if err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}
	encryptor, err := NewEncryptor(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &EnvelopeCodec{
		signer:    NewTokenSigner(signingKey, ttl),
		encryptor: encryptor,
	}, nil
}

// Seal signs v with the codec's TTL and encrypts the result
func (c *EnvelopeCodec) Seal(v any) (string, error) {
	signed, err := c.signer.Sign(v)
	if err != nil {
		return "", err
	}
	return c.encryptor.Encrypt(signed)
}

// Open decrypts and verifies a sealed envelope into v. Expired or tampered
// envelopes fail closed; there is no partial recovery.
func (c *EnvelopeCodec) Open(token string, v any) error {
	signed, err := c.encryptor.Decrypt(token)
	if err != nil {
		return err
	}
	return c.signer.Verify(signed, v)
}
