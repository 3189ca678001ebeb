package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisKey is the hash holding every identity, keyed by label.
const RedisKey = "candychain:wallet"

// RedisStore keeps identities as JSON values in a single Redis hash.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, key: RedisKey}
}

func (s *RedisStore) Get(ctx context.Context, label string) (*Identity, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}

	data, err := s.client.HGet(ctx, s.key, label).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity %s: %w", label, err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to decode identity %s: %w", label, err)
	}
	return &id, nil
}

func (s *RedisStore) Put(ctx context.Context, label string, id *Identity) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if err := validateIdentity(id); err != nil {
		return err
	}

	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode identity %s: %w", label, err)
	}

	created, err := s.client.HSetNX(ctx, s.key, label, data).Result()
	if err != nil {
		return fmt.Errorf("failed to store identity %s: %w", label, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrExists, label)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, label string) (bool, error) {
	if err := ValidateLabel(label); err != nil {
		return false, err
	}

	exists, err := s.client.HExists(ctx, s.key, label).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up identity %s: %w", label, err)
	}
	return exists, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	labels, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	sort.Strings(labels)
	return labels, nil
}

func (s *RedisStore) Remove(ctx context.Context, label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}

	removed, err := s.client.HDel(ctx, s.key, label).Result()
	if err != nil {
		return fmt.Errorf("failed to remove identity %s: %w", label, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return nil
}
