// Package storage provides the blob store holding raw subtitle content,
// keyed by the provider-native subtitle id.
package storage

import "context"

// BlobStore reads and writes subtitle content by key. Get reports a miss
// with a not-found error from apperrors so callers can run fallback chains
// with errors.Is.
type BlobStore interface {
	Put(ctx context.Context, key, content string) error
	Get(ctx context.Context, key string) (string, error)
}
