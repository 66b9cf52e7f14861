// Package search fans a subtitle search out to every capable provider,
// merges and ranks the results, and caches the result set under a fresh
// session key. Each returned subtitle carries a composite file id binding it
// to that session so a later download can re-identify it.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/cache"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/feature"
	"github.com/daniel-lxs/bettersubs/internal/fileid"
	"github.com/daniel-lxs/bettersubs/internal/metrics"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/providers"
	"github.com/daniel-lxs/bettersubs/internal/ranking"
)

// Orchestrator runs searches across the registered provider adapters.
// Adapters contribute to the merged list in registration order, which keeps
// ranking ties deterministic.
type Orchestrator struct {
	adapters []providers.Adapter
	resolver feature.Resolver
	sessions *cache.SessionStore
	logger   zerolog.Logger
}

// NewOrchestrator creates an Orchestrator over the given adapters.
func NewOrchestrator(adapters []providers.Adapter, resolver feature.Resolver, sessions *cache.SessionStore) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		resolver: resolver,
		sessions: sessions,
		logger:   config.GetLogger().With().Str("component", "search").Logger(),
	}
}

// Search validates and classifies the request, dispatches it to every
// provider that handles the feature type, and returns the ranked merge. A
// provider failure does not fail the search as long as at least one provider
// answered; only when every dispatched provider fails is the joined error
// returned.
//
// The returned subtitles carry composite "{sessionKey};{nativeID}" file ids
// and the full result set is cached under that session key.
func (o *Orchestrator) Search(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error) {
	if err := o.validate(opts); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	opts, err := o.classify(ctx, opts)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	merged, err := o.dispatch(ctx, opts)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	ranked := ranking.Rank(merged, opts.Query)

	sessionKey := o.sessions.NewKey()
	for i := range ranked {
		ranked[i].FileID = fileid.Compose(sessionKey, ranked[i].FileID)
	}
	if err := o.sessions.Put(sessionKey, ranked); err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, apperrors.NewInternalError("cache search session", err)
	}

	metrics.SearchesTotal.WithLabelValues("success").Inc()
	o.logger.Info().
		Str("catalogId", opts.CatalogID).
		Str("sessionKey", sessionKey).
		Int("results", len(ranked)).
		Msg("search completed")
	return ranked, nil
}

// validate rejects malformed requests before any provider is contacted.
func (o *Orchestrator) validate(opts models.SearchOptions) error {
	if opts.CatalogID == "" {
		return apperrors.NewValidationError("catalog id must not be empty")
	}
	if opts.Language == "" {
		return apperrors.NewValidationError("language must not be empty")
	}
	if opts.FeatureType == models.FeatureEpisode && !opts.HasEpisodeNumbers() {
		return apperrors.NewValidationError("episode searches need both season and episode numbers")
	}
	return nil
}

// classify fills in a missing feature type by resolving the catalog id. The
// resolver's verdict wins over any hints in the request.
func (o *Orchestrator) classify(ctx context.Context, opts models.SearchOptions) (models.SearchOptions, error) {
	if opts.FeatureType != "" {
		return opts, nil
	}

	resolved, err := o.resolver.Resolve(ctx, opts.CatalogID)
	if err != nil {
		return opts, err
	}
	opts.FeatureType = resolved.Type
	if opts.Year == "" {
		opts.Year = resolved.Year
	}
	if opts.FeatureType == models.FeatureEpisode && !opts.HasEpisodeNumbers() {
		return opts, apperrors.NewValidationError("episode searches need both season and episode numbers")
	}
	return opts, nil
}

// dispatch fans the search out to every capable adapter in parallel and
// flattens the per-adapter results in registration order.
func (o *Orchestrator) dispatch(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error) {
	capable := make([]providers.Adapter, 0, len(o.adapters))
	for _, adapter := range o.adapters {
		if adapter.Handles(opts.FeatureType) {
			capable = append(capable, adapter)
		}
	}
	if len(capable) == 0 {
		return nil, nil
	}

	resultSets := make([][]models.Subtitle, len(capable))
	errs := make([]error, len(capable))

	var wg sync.WaitGroup
	for i, adapter := range capable {
		wg.Add(1)
		go func(i int, adapter providers.Adapter) {
			defer wg.Done()
			name := string(adapter.Provider())
			start := time.Now()

			results, err := adapter.Search(ctx, opts)
			metrics.ProviderSearchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.ProviderSearchesTotal.WithLabelValues(name, "error").Inc()
				o.logger.Warn().Err(err).Str("provider", name).Msg("provider search failed")
				errs[i] = err
				return
			}
			metrics.ProviderSearchesTotal.WithLabelValues(name, "success").Inc()
			resultSets[i] = results
		}(i, adapter)
	}
	wg.Wait()

	anySucceeded := false
	for i := range capable {
		if errs[i] == nil {
			anySucceeded = true
			break
		}
	}
	if !anySucceeded {
		return nil, errors.Join(errs...)
	}

	var merged []models.Subtitle
	for _, results := range resultSets {
		merged = append(merged, results...)
	}
	return merged, nil
}
