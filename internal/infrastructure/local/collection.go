// Package local is the offline session backend: users and the client
// directory are kept as JSON arrays in a KVStore and authentication runs
// in-process.
//
// Concurrent processes sharing one store can lose updates; writes are
// read-modify-write without cross-process locking.
package local

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

const (
	KeyUsers   = "users"
	KeyClients = "clients"
)

func load[T any](ctx context.Context, kv ports.KVStore, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageRead, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrStorageRead, key, err)
	}
	return items, nil
}

func save[T any](ctx context.Context, kv ports.KVStore, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
