package domain

// KeyValueRepository defines the durable key-value persistence layer used by the favorites store.
// Values are opaque byte payloads; the repository does not interpret them.
type KeyValueRepository interface {
	// GetItem returns the value stored under key.
	// found is false, with a nil error, when the key has never been set or was removed.
	GetItem(key string) (value []byte, found bool, err error)

	// SetItem stores value under key, replacing any previous value as a whole.
	SetItem(key string, value []byte) error

	// RemoveItem deletes key. Removing a key that does not exist is not an error.
	RemoveItem(key string) error

	// Keys returns every key currently stored, in ascending order.
	Keys() ([]string, error)

	// Close releases the resources held by the repository.
	Close() error
}
