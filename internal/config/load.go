package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultEnvelopeTTL bounds how long a relay envelope stays usable
const DefaultEnvelopeTTL = 10 * time.Minute

// DefaultStateTTL bounds the authorization round trip
const DefaultStateTTL = 10 * time.Minute

// Load loads the config file, resolves env references, applies defaults,
// and validates the result
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&config)

	if err := Validate(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig rejects secrets written as plain strings in the file.
// Tests and programmatic construction are unaffected; this only gates
// what gets committed to disk.
func validateRawConfig(rawConfig map[string]any) error {
	secretPaths := []struct {
		value any
		name  string
	}{}

	if zalo, ok := rawConfig["zalo"].(map[string]any); ok {
		if v, exists := zalo["appSecret"]; exists {
			secretPaths = append(secretPaths, struct {
				value any
				name  string
			}{v, "zalo.appSecret"})
		}
	}
	if v, exists := rawConfig["relaySecret"]; exists {
		secretPaths = append(secretPaths, struct {
			value any
			name  string
		}{v, "relaySecret"})
	}

	for _, sp := range secretPaths {
		if _, isString := sp.value.(string); isString {
			return fmt.Errorf("%s must use an environment variable reference for security", sp.name)
		}
		if refMap, isMap := sp.value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", sp.name)
			}
		}
	}
	return nil
}

// ApplyDefaults fills in unset optional fields
func ApplyDefaults(config *Config) {
	if config.Role == "" {
		config.Role = RoleBoth
	}
	if config.EnvelopeTTL == 0 {
		config.EnvelopeTTL = Duration(DefaultEnvelopeTTL)
	}
	if config.StateTTL == 0 {
		config.StateTTL = Duration(DefaultStateTTL)
	}
	if config.Storage.Kind == "" {
		config.Storage.Kind = StorageMemory
	}
}

// Validate checks the resolved configuration. Missing provider credentials
// are deliberately not an error here: the initiator degrades to a
// redirect-with-error at request time instead of refusing to boot.
func Validate(config *Config) error {
	if config.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if config.BaseURL == "" {
		return fmt.Errorf("baseURL is required")
	}

	switch config.Role {
	case RoleOrigin, RoleRelay, RoleBoth:
	default:
		return fmt.Errorf("role must be one of origin, relay, both; got %q", config.Role)
	}

	if config.Role == RoleOrigin && config.ProxyBaseURL == "" {
		return fmt.Errorf("proxyBaseURL is required for the origin role")
	}

	if config.RelaySecret == "" {
		return fmt.Errorf("relaySecret is required")
	}

	if config.Storage.Kind == StorageRedis && config.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redisAddr is required for redis storage")
	}
	if config.Storage.Kind != StorageMemory && config.Storage.Kind != StorageRedis {
		return fmt.Errorf("storage.kind must be memory or redis; got %q", config.Storage.Kind)
	}

	if config.RateLimit != nil {
		if config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0 {
			return fmt.Errorf("rateLimit requires positive requestsPerSecond and burst")
		}
	}

	return nil
}
