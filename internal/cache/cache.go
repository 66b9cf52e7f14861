package cache

// EvictCallback is called when an entry is evicted from the cache.
// Not all providers support eviction callbacks (e.g., Redis relies on
// server-side eviction).
type EvictCallback func(key string, value []byte)

// Logger receives error reports from cache operations that cannot surface
// an error to the caller (e.g., background Redis failures).
type Logger interface {
	Error(msg string, err error)
}

// Cache defines the interface for key-value caching with LRU+TTL semantics.
// Implementations may use in-memory storage or external backends like
// Redis/Valkey; swapping the backend must not change caller behavior.
type Cache interface {
	// Get retrieves a value by key and marks it most-recently-used.
	// Expired entries are treated as absent: Get returns nil and false,
	// never an error.
	Get(key string) ([]byte, bool)

	// Set stores a value with the given key. An existing key is overwritten
	// and becomes most-recently-used. Inserting a new key at capacity
	// evicts the least-recently-used entry first.
	Set(key string, value []byte)

	// Contains checks whether a key exists without affecting LRU ordering.
	Contains(key string) bool

	// Remove deletes a key. Removing an absent key is a no-op.
	Remove(key string)

	// Purge removes every entry.
	Purge()

	// Len returns the number of entries currently in the cache.
	Len() int

	// Close releases any resources held by the cache (e.g., network
	// connections). For in-memory caches, this is a no-op.
	Close() error
}
