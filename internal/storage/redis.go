package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const (
	attemptKeyPrefix = "zalo-bridge:attempt:"
	stateKeyPrefix   = "zalo-bridge:relay-state:"
	stagedKeyPrefix  = "zalo-bridge:staged:"
)

// RedisStore backs the bridge state with redis so multiple relay instances
// can share one state space. Expiry is delegated to per-key TTLs and
// consumption uses GETDEL, which keeps the one-time-use guarantee atomic
// across instances.
type RedisStore struct {
	client *redis.Client
	ttls   TTLConfig
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, db int, ttls TTLConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, ttls: ttls}, nil
}

func (s *RedisStore) StoreLoginAttempt(ctx context.Context, id string, attempt LoginAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshaling login attempt: %w", err)
	}
	return s.client.Set(ctx, attemptKeyPrefix+id, data, s.ttls.LoginAttempt).Err()
}

func (s *RedisStore) ConsumeLoginAttempt(ctx context.Context, id string) (*LoginAttempt, error) {
	var attempt LoginAttempt
	if err := s.consume(ctx, attemptKeyPrefix+id, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (s *RedisStore) StoreRelayState(ctx context.Context, state string, rs RelayState) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("marshaling relay state: %w", err)
	}
	return s.client.Set(ctx, stateKeyPrefix+state, data, s.ttls.RelayState).Err()
}

func (s *RedisStore) ConsumeRelayState(ctx context.Context, state string) (*RelayState, error) {
	var rs RelayState
	if err := s.consume(ctx, stateKeyPrefix+state, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *RedisStore) StoreStagedLogin(ctx context.Context, id string, staged StagedLogin) error {
	data, err := json.Marshal(staged)
	if err != nil {
		return fmt.Errorf("marshaling staged login: %w", err)
	}
	return s.client.Set(ctx, stagedKeyPrefix+id, data, s.ttls.StagedLogin).Err()
}

func (s *RedisStore) ConsumeStagedLogin(ctx context.Context, id string) (*StagedLogin, error) {
	var staged StagedLogin
	if err := s.consume(ctx, stagedKeyPrefix+id, &staged); err != nil {
		return nil, err
	}
	return &staged, nil
}

func (s *RedisStore) consume(ctx context.Context, key string, out any) error {
	data, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
