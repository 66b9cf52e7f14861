package cache

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/daniel-lxs/bettersubs/internal/models"
)

// SessionStore holds the result set of one search call under an opaque
// session key so a later download can re-identify the exact result the user
// selected. It is a typed layer over the pluggable Cache: results are stored
// JSON-encoded, which keeps the memory and Redis backends interchangeable.
//
// A SessionStore is constructed once and passed by reference to the
// orchestrator and the download resolver; tests instantiate isolated stores
// over their own Cache.
type SessionStore struct {
	cache Cache
}

// NewSessionStore creates a SessionStore over the given cache backend.
func NewSessionStore(c Cache) *SessionStore {
	return &SessionStore{cache: c}
}

// NewKey generates a fresh opaque session key.
func (s *SessionStore) NewKey() string {
	return uuid.NewString()
}

// Put stores the ranked result set of one search under key. The slice order
// is the presentation order returned to the caller and is preserved.
func (s *SessionStore) Put(key string, results []models.Subtitle) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	s.cache.Set(key, data)
	return nil
}

// Get retrieves a cached result set. Expired or evicted sessions are a
// miss, not an error.
func (s *SessionStore) Get(key string) ([]models.Subtitle, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	var results []models.Subtitle
	if err := json.Unmarshal(data, &results); err != nil {
		// A corrupt entry is unusable; drop it and report a miss.
		s.cache.Remove(key)
		return nil, false
	}
	return results, true
}

// Has reports whether a session exists without refreshing its recency.
func (s *SessionStore) Has(key string) bool {
	return s.cache.Contains(key)
}

// Remove deletes one session.
func (s *SessionStore) Remove(key string) {
	s.cache.Remove(key)
}

// Clear removes every session.
func (s *SessionStore) Clear() {
	s.cache.Purge()
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// Close releases the underlying cache backend.
func (s *SessionStore) Close() error {
	return s.cache.Close()
}
