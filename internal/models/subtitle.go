package models

import (
	"fmt"
	"time"
)

// Provider identifies which upstream source a subtitle came from.
type Provider string

const (
	// ProviderOpenSubtitles is the primary OpenAPI-style subtitle catalog.
	ProviderOpenSubtitles Provider = "opensubtitles"
	// ProviderFanSite is the episodic fan-site provider.
	ProviderFanSite Provider = "fansite"
	// ProviderLocal is the local repository of already-ingested subtitles.
	ProviderLocal Provider = "local"
)

// ParseProvider converts a wire value into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenSubtitles, ProviderFanSite, ProviderLocal:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// FeatureType distinguishes movies from single episodes of a series.
type FeatureType string

const (
	FeatureMovie   FeatureType = "movie"
	FeatureEpisode FeatureType = "episode"
)

// FeatureDetails describes the feature (movie or episode) a subtitle
// attaches to. SeasonNumber and EpisodeNumber are meaningful only when
// FeatureType is FeatureEpisode, and must then both be set.
type FeatureDetails struct {
	FeatureType   FeatureType `json:"featureType"`
	Year          string      `json:"year"`
	Title         string      `json:"title"`
	FeatureName   string      `json:"featureName"`
	CatalogID     string      `json:"catalogId"`
	SeasonNumber  int         `json:"seasonNumber,omitempty"`
	EpisodeNumber int         `json:"episodeNumber,omitempty"`
}

// Subtitle is one provider's subtitle offering, normalized into the
// canonical model shared by every adapter.
//
// FileID starts out as the provider-assigned identifier. Once a search
// places the result in a session cache entry, the orchestrator rewrites it
// to the composite form "{sessionKey};{nativeID}"; the download resolver
// rewrites it back to the bare native id when the subtitle is persisted.
type Subtitle struct {
	ExternalID     string         `json:"externalId,omitempty"`
	Provider       Provider       `json:"provider"`
	FileID         string         `json:"fileId"`
	ReleaseName    string         `json:"releaseName"`
	Comments       string         `json:"comments,omitempty"`
	Language       string         `json:"language"`
	DownloadCount  int            `json:"downloadCount"`
	CreatedOn      time.Time      `json:"createdOn"`
	URL            string         `json:"url,omitempty"`
	FeatureDetails FeatureDetails `json:"featureDetails"`
}
