package models

// SearchOptions carries one search request across the orchestrator and
// every provider adapter. FeatureType may be left empty by the caller, in
// which case the orchestrator classifies the catalog id itself.
type SearchOptions struct {
	CatalogID     string      `json:"catalogId"`
	Language      string      `json:"language"`
	Query         string      `json:"query,omitempty"`
	FeatureType   FeatureType `json:"featureType,omitempty"`
	Year          string      `json:"year,omitempty"`
	SeasonNumber  int         `json:"seasonNumber,omitempty"`
	EpisodeNumber int         `json:"episodeNumber,omitempty"`
}

// HasEpisodeNumbers reports whether both the season and episode numbers are
// present. An episodic search is only valid when both are supplied.
func (o SearchOptions) HasEpisodeNumbers() bool {
	return o.SeasonNumber > 0 && o.EpisodeNumber > 0
}
