// Package kvstore defines the key-value persistence collaborator used for
// state that must survive restarts, such as the last authorization state of
// each session.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("kvstore: key not found")

// ServiceName is the service registry name of the configured Store.
const ServiceName = "store.kv"

// Store is a namespaced key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key in namespace, or ErrNotFound.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Put creates or replaces the value for key in namespace.
	Put(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes key from namespace. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Keys lists the keys of namespace in ascending order.
	Keys(ctx context.Context, namespace string) ([]string, error)
}
