// Package download turns a composite subtitle id from a search response back
// into subtitle content. The blob store is consulted before any provider is
// contacted; a provider fetch is followed by persisting the subtitle locally
// so the next download of the same file never leaves the service.
package download

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/cache"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/fileid"
	"github.com/daniel-lxs/bettersubs/internal/metrics"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/providers"
	"github.com/daniel-lxs/bettersubs/internal/repository"
	"github.com/daniel-lxs/bettersubs/internal/storage"
	"github.com/daniel-lxs/bettersubs/internal/subtitles"
)

// Request identifies one subtitle to download. FileID is the composite
// "{sessionKey};{nativeID}" id handed out by a search.
type Request struct {
	Provider models.Provider
	FileID   string
}

// Result is the resolved subtitle content ready to serve as an attachment.
type Result struct {
	Content     string
	Filename    string
	ContentType string
}

const defaultContentType = "application/x-subrip"

// Resolver resolves download requests against the blob store, the provider
// adapters, and the search-session cache.
type Resolver struct {
	adapters map[models.Provider]providers.Adapter
	sessions *cache.SessionStore
	blobs    storage.BlobStore
	repo     *repository.Store
	logger   zerolog.Logger
}

// NewResolver creates a Resolver over the given adapters and stores.
func NewResolver(adapters []providers.Adapter, sessions *cache.SessionStore, blobs storage.BlobStore, repo *repository.Store) *Resolver {
	byProvider := make(map[models.Provider]providers.Adapter, len(adapters))
	for _, adapter := range adapters {
		byProvider[adapter.Provider()] = adapter
	}
	return &Resolver{
		adapters: byProvider,
		sessions: sessions,
		blobs:    blobs,
		repo:     repo,
		logger:   config.GetLogger().With().Str("component", "download").Logger(),
	}
}

// Resolve runs the download flow. An already-persisted subtitle is served
// straight from the blob store. Otherwise the provider is asked for the
// content, the subtitle's session entry is located to recover its metadata,
// and the content is persisted before it is returned. A missing session
// means the search expired; the caller has to search again.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	sessionKey, nativeID, err := fileid.Parse(req.FileID)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "none", "invalid").Inc()
		return nil, err
	}

	if content, err := r.blobs.Get(ctx, nativeID); err == nil {
		if err := r.repo.IncrementDownloadCount(ctx, nativeID); err != nil {
			r.logger.Warn().Err(err).Str("fileId", nativeID).Msg("failed to bump download count")
		}
		metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "blob", "success").Inc()
		return newResult(nativeID, content), nil
	}

	adapter, ok := r.adapters[req.Provider]
	if !ok {
		metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "none", "invalid").Inc()
		return nil, apperrors.NewValidationError("unknown provider " + string(req.Provider))
	}

	content, err := adapter.Download(ctx, nativeID)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("provider", string(req.Provider)).
			Str("fileId", nativeID).
			Msg("provider download failed")
		metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "provider", "error").Inc()
		return nil, apperrors.NewNotFoundError("subtitle content", nativeID)
	}

	if err := r.persist(ctx, sessionKey, nativeID, content); err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "provider", "error").Inc()
		return nil, err
	}

	metrics.DownloadsTotal.WithLabelValues(string(req.Provider), "provider", "success").Inc()
	return newResult(nativeID, content), nil
}

// persist locates the subtitle's metadata in its search session, rewrites
// the composite id back to the bare native id, and stores both the content
// and the metadata. The session entry is updated in place so a repeated
// download within the session sees the final id.
func (r *Resolver) persist(ctx context.Context, sessionKey, nativeID, content string) error {
	results, ok := r.sessions.Get(sessionKey)
	if !ok {
		metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
		return apperrors.NewStaleSessionError(sessionKey)
	}
	metrics.SessionLookupsTotal.WithLabelValues("hit").Inc()

	idx := -1
	for i := range results {
		if strings.Contains(results[i].FileID, nativeID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFoundError("subtitle", nativeID)
	}

	results[idx].FileID = nativeID

	if err := r.blobs.Put(ctx, nativeID, content); err != nil {
		return apperrors.NewInternalError("store subtitle content", err)
	}
	if err := r.repo.InsertSubtitle(ctx, results[idx]); err != nil {
		return err
	}
	if err := r.sessions.Put(sessionKey, results); err != nil {
		r.logger.Warn().Err(err).Str("sessionKey", sessionKey).Msg("failed to update session entry")
	}

	r.logger.Info().
		Str("fileId", nativeID).
		Str("provider", string(results[idx].Provider)).
		Msg("subtitle persisted")
	return nil
}

// newResult derives the attachment filename from the native id, dropping
// any path segments or query hints providers embed in their ids.
func newResult(nativeID, content string) *Result {
	name := nativeID
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	}
	name = path.Base(name)
	return &Result{
		Content:     content,
		Filename:    subtitles.FilenameFor(name, defaultContentType),
		ContentType: defaultContentType,
	}
}
