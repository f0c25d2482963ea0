package ports

import "context"

// KVStore is the narrow persistence port used for client-side state.
// Values are opaque JSON blobs.
type KVStore interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove is a no-op for absent keys.
	Remove(ctx context.Context, key string) error
}
