package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string that redacts itself when printed or logged. In config
// files it is written as {"$env": "VAR_NAME"} so the actual value never
// lives on disk.
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON prevents secrets from leaking into JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// UnmarshalJSON resolves {"$env": "VAR_NAME"} references immediately and
// accepts plain strings for tests and local setups
func (s *Secret) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = Secret(plain)
		return nil
	}

	var ref struct {
		Env string `json:"$env"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return fmt.Errorf("secret must be a string or {\"$env\": \"VAR_NAME\"}")
	}
	if ref.Env == "" {
		return fmt.Errorf("secret env reference missing $env key")
	}
	*s = Secret(os.Getenv(ref.Env))
	return nil
}

// Duration wraps time.Duration with "10m"-style JSON parsing
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\"")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Role selects which halves of the bridge this process serves
type Role string

const (
	// RoleOrigin runs the login initiation and callback receiver on the
	// application's own domain
	RoleOrigin Role = "origin"
	// RoleRelay runs the token-exchange proxy on the IP-allow-listed domain
	RoleRelay Role = "relay"
	// RoleBoth runs everything in one process, for development
	RoleBoth Role = "both"
)

// StorageKind selects the state store backend
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageRedis  StorageKind = "redis"
)

// ZaloConfig holds the provider application credentials
type ZaloConfig struct {
	AppID     string `json:"appId"`
	AppSecret Secret `json:"appSecret"`
}

// StorageConfig configures the transient state store
type StorageConfig struct {
	Kind          StorageKind `json:"kind,omitempty"`
	RedisAddr     string      `json:"redisAddr,omitempty"`
	RedisPassword Secret      `json:"redisPassword,omitempty"`
	RedisDB       int         `json:"redisDb,omitempty"`
}

// RateLimitConfig bounds login initiations per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}

// Config is the full bridge configuration
type Config struct {
	Addr           string           `json:"addr"`
	BaseURL        string           `json:"baseURL"`
	ProxyBaseURL   string           `json:"proxyBaseURL,omitempty"`
	Role           Role             `json:"role"`
	Zalo           ZaloConfig       `json:"zalo"`
	RelaySecret    Secret           `json:"relaySecret"`
	EnvelopeTTL    Duration         `json:"envelopeTtl,omitempty"`
	StateTTL       Duration         `json:"stateTtl,omitempty"`
	AllowedOrigins []string         `json:"allowedOrigins,omitempty"`
	Storage        StorageConfig    `json:"storage,omitempty"`
	RateLimit      *RateLimitConfig `json:"rateLimit,omitempty"`
}
