package ports

import "context"

// Store is durable client-side storage. It is the sole synchronization
// mechanism between the pre-redirect and post-redirect lifetimes of the
// process: the authorization request is written before navigation and read
// back exactly once on return.
type Store interface {
	// Set stores a value under a key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Get retrieves a value by key. Returns core.ErrKeyNotFound for absent keys.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
