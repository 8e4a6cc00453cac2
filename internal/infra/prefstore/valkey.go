package prefstore

import (
	"context"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
)

// ValkeyStore persists preferences using a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "prefs"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Put(ctx context.Context, key, value string) error {
	return s.client.Do(ctx, s.client.B().Set().Key(s.entryKey(key)).Value(value).Build()).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.entryKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Close releases the underlying connections.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}

func (s *ValkeyStore) entryKey(key string) string {
	return s.prefix + ":" + key
}

var _ preferences.Store = (*ValkeyStore)(nil)
