package backend

import "context"

// Backend is the uniform capability over an object store: whole-object
// put/get/delete/list keyed by string names. Implementations are treated as
// unreliable and high-latency; retries happen in the layers above.
type Backend interface {
	// Put stores data under name, overwriting any existing object.
	Put(ctx context.Context, name string, data []byte) error

	// Get retrieves the object stored under name.
	// Returns ErrNotFound if no such object exists.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes the object stored under name. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all objects whose name starts with prefix,
	// in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConditionalPutter is an optional capability: an atomic create-if-absent.
// Backends that support it let the index detect concurrent committers without
// a race window. Backends that lack it (plain S3) fall back to a
// list-then-put emulation in the index layer.
type ConditionalPutter interface {
	// PutIfAbsent stores data under name only if no object with that name
	// exists. Returns ErrAlreadyExists otherwise.
	PutIfAbsent(ctx context.Context, name string, data []byte) error
}
