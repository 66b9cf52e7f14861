// Package providers defines the contract every subtitle source implements.
// Adapters normalize their upstream's shapes into the shared subtitle model
// so the search orchestrator can fan out and merge without caring which
// source produced a result.
package providers

import (
	"context"

	"github.com/daniel-lxs/bettersubs/internal/models"
)

// Adapter is one upstream subtitle source.
type Adapter interface {
	// Provider returns the identity stamped onto every result.
	Provider() models.Provider
	// Handles reports whether this source serves the given feature type.
	// The orchestrator skips adapters that do not handle a search's type.
	Handles(featureType models.FeatureType) bool
	// Search returns normalized results for the options. FileID on each
	// result holds the provider-native id; composite session ids are the
	// orchestrator's business.
	Search(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error)
	// Download fetches one subtitle's content by its provider-native id,
	// normalized to UTF-8 text.
	Download(ctx context.Context, nativeID string) (string, error)
}
