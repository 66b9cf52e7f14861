// Package localstore serves subtitles already ingested into the local
// repository and blob store. It participates in searches like any remote
// provider, and is also the ingestion point for user-uploaded subtitles.
package localstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/repository"
	"github.com/daniel-lxs/bettersubs/internal/storage"
)

// Adapter serves the local subtitle collection.
type Adapter struct {
	repo   *repository.Store
	blobs  storage.BlobStore
	now    func() time.Time
	logger zerolog.Logger
}

// New creates the adapter over the shared repository and blob store.
func New(repo *repository.Store, blobs storage.BlobStore) *Adapter {
	return &Adapter{
		repo:   repo,
		blobs:  blobs,
		now:    time.Now,
		logger: config.GetLogger().With().Str("provider", "local").Logger(),
	}
}

// Provider implements providers.Adapter.
func (a *Adapter) Provider() models.Provider {
	return models.ProviderLocal
}

// Handles implements providers.Adapter. The local collection can hold
// anything that was ever ingested.
func (a *Adapter) Handles(models.FeatureType) bool {
	return true
}

// Search implements providers.Adapter, querying the repository by catalog id
// and language. Episode searches additionally match on the stored season and
// episode numbers.
func (a *Adapter) Search(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error) {
	stored, err := a.repo.FindSubtitles(ctx, repository.Filter{
		CatalogID: opts.CatalogID,
		Language:  opts.Language,
	})
	if err != nil {
		return nil, err
	}

	if opts.FeatureType != models.FeatureEpisode {
		return stored, nil
	}

	var matched []models.Subtitle
	for _, sub := range stored {
		if sub.FeatureDetails.SeasonNumber == opts.SeasonNumber &&
			sub.FeatureDetails.EpisodeNumber == opts.EpisodeNumber {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// Download implements providers.Adapter, reading straight from the blob
// store.
func (a *Adapter) Download(ctx context.Context, nativeID string) (string, error) {
	return a.blobs.Get(ctx, nativeID)
}

// IngestRequest is a user-supplied subtitle to add to the local collection.
type IngestRequest struct {
	Content        string
	ReleaseName    string
	Comments       string
	Language       string
	FeatureDetails models.FeatureDetails
}

// Ingest stores a new local subtitle under a generated id and returns its
// metadata record.
func (a *Adapter) Ingest(ctx context.Context, req IngestRequest) (*models.Subtitle, error) {
	if req.Content == "" {
		return nil, apperrors.NewValidationError("subtitle content must not be empty")
	}
	if req.ReleaseName == "" {
		return nil, apperrors.NewValidationError("release name must not be empty")
	}
	if req.Language == "" {
		return nil, apperrors.NewValidationError("language must not be empty")
	}
	if req.FeatureDetails.CatalogID == "" {
		return nil, apperrors.NewValidationError("catalog id must not be empty")
	}

	fileID := "local-" + uuid.NewString()
	sub := models.Subtitle{
		ExternalID:     fileID,
		Provider:       models.ProviderLocal,
		FileID:         fileID,
		ReleaseName:    req.ReleaseName,
		Comments:       req.Comments,
		Language:       req.Language,
		CreatedOn:      a.now(),
		FeatureDetails: req.FeatureDetails,
	}

	if err := a.blobs.Put(ctx, fileID, req.Content); err != nil {
		return nil, err
	}
	if err := a.repo.InsertSubtitle(ctx, sub); err != nil {
		return nil, err
	}

	a.logger.Info().Str("fileId", fileID).Str("catalogId", req.FeatureDetails.CatalogID).Msg("subtitle ingested")
	return &sub, nil
}
