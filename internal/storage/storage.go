package storage

import (
	"context"
	"errors"
	"time"

	"github.com/seowriter/zalo-bridge/internal/zalo"
)

// ErrNotFound is returned when an entry does not exist or was already
// consumed. Callers treat it the same way in both cases: the correlation is
// dead and the login attempt must start over.
var ErrNotFound = errors.New("entry not found or already consumed")

// LoginAttempt is the origin-side authorization state for one login attempt.
// Each attempt lives under its own correlation ID, so a second login started
// in the same browser cannot invalidate the first one's in-flight exchange.
type LoginAttempt struct {
	CodeVerifier string    `json:"code_verifier"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
}

// RelayState is the relay-side record correlating an /auth request with the
// provider callback. The redirect destination always comes from here, never
// from callback query parameters.
type RelayState struct {
	RedirectURI string    `json:"redirect_uri"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// StagedLogin holds verified third-party identity data awaiting the user's
// explicit confirmation. Nothing in the bridge ever turns this into an
// account; a separate confirmation action does.
type StagedLogin struct {
	Token     zalo.TokenBundle `json:"token"`
	UserInfo  zalo.Profile     `json:"userInfo"`
	Timestamp time.Time        `json:"timestamp"`
}

// Store persists the three kinds of transient state the bridge needs. All
// entries are TTL-bounded and consumed exactly once: Consume returns the
// entry and deletes it atomically, or returns ErrNotFound.
type Store interface {
	StoreLoginAttempt(ctx context.Context, id string, attempt LoginAttempt) error
	ConsumeLoginAttempt(ctx context.Context, id string) (*LoginAttempt, error)

	StoreRelayState(ctx context.Context, state string, rs RelayState) error
	ConsumeRelayState(ctx context.Context, state string) (*RelayState, error)

	StoreStagedLogin(ctx context.Context, id string, staged StagedLogin) error
	ConsumeStagedLogin(ctx context.Context, id string) (*StagedLogin, error)

	Ping(ctx context.Context) error
	Close() error
}

// TTLConfig bounds the lifetime of each entry kind
type TTLConfig struct {
	LoginAttempt time.Duration
	RelayState   time.Duration
	StagedLogin  time.Duration
}

// DefaultTTLs match the observed protocol: authorization round trips are
// short, and the staged result may sit for a few minutes while the user
// reads the confirmation page.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		LoginAttempt: 10 * time.Minute,
		RelayState:   10 * time.Minute,
		StagedLogin:  10 * time.Minute,
	}
}
