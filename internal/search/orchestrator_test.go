package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/cache"
	"github.com/daniel-lxs/bettersubs/internal/feature"
	"github.com/daniel-lxs/bettersubs/internal/fileid"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/providers"
)

type stubAdapter struct {
	provider models.Provider
	episodic bool
	results  []models.Subtitle
	err      error
	calls    int
}

func (s *stubAdapter) Provider() models.Provider { return s.provider }

func (s *stubAdapter) Handles(featureType models.FeatureType) bool {
	if s.episodic {
		return featureType == models.FeatureEpisode
	}
	return true
}

func (s *stubAdapter) Search(context.Context, models.SearchOptions) ([]models.Subtitle, error) {
	s.calls++
	return s.results, s.err
}

func (s *stubAdapter) Download(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

type stubResolver struct {
	feature *feature.Feature
	err     error
	calls   int
}

func (s *stubResolver) Resolve(context.Context, string) (*feature.Feature, error) {
	s.calls++
	return s.feature, s.err
}

func newSessions(t *testing.T) *cache.SessionStore {
	t.Helper()
	c, err := cache.New("memory", cache.ProviderConfig{Size: 10, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return cache.NewSessionStore(c)
}

func movieResult(provider models.Provider, nativeID string, downloads int) models.Subtitle {
	return models.Subtitle{
		Provider:      provider,
		FileID:        nativeID,
		ReleaseName:   "Movie." + nativeID,
		Language:      "en",
		DownloadCount: downloads,
		FeatureDetails: models.FeatureDetails{
			FeatureType: models.FeatureMovie,
			CatalogID:   "tt0000001",
		},
	}
}

func movieOptions() models.SearchOptions {
	return models.SearchOptions{
		CatalogID:   "tt0000001",
		Language:    "en",
		FeatureType: models.FeatureMovie,
	}
}

func TestSearch_MergesRanksAndStampsSessionIDs(t *testing.T) {
	primary := &stubAdapter{provider: models.ProviderOpenSubtitles, results: []models.Subtitle{
		movieResult(models.ProviderOpenSubtitles, "os-1", 3),
	}}
	local := &stubAdapter{provider: models.ProviderLocal, results: []models.Subtitle{
		movieResult(models.ProviderLocal, "local-1", 10),
	}}
	sessions := newSessions(t)

	orchestrator := NewOrchestrator([]providers.Adapter{primary, local}, &stubResolver{}, sessions)
	results, err := orchestrator.Search(context.Background(), movieOptions())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected two merged results, got %d", len(results))
	}
	// Popularity ranking puts the local result first.
	if !strings.HasSuffix(results[0].FileID, ";local-1") {
		t.Errorf("expected local-1 ranked first with a composite id, got %q", results[0].FileID)
	}

	sessionKey, nativeID, err := fileid.Parse(results[0].FileID)
	if err != nil {
		t.Fatalf("expected a parseable composite id, got %q: %v", results[0].FileID, err)
	}
	if nativeID != "local-1" {
		t.Errorf("expected native id local-1, got %q", nativeID)
	}

	cached, ok := sessions.Get(sessionKey)
	if !ok {
		t.Fatal("expected the result set cached under the session key")
	}
	if len(cached) != 2 || cached[0].FileID != results[0].FileID {
		t.Errorf("expected the cached set to match the response, got %#v", cached)
	}
}

func TestSearch_ValidatesBeforeDispatch(t *testing.T) {
	adapter := &stubAdapter{provider: models.ProviderOpenSubtitles}
	orchestrator := NewOrchestrator([]providers.Adapter{adapter}, &stubResolver{}, newSessions(t))

	cases := []struct {
		name string
		opts models.SearchOptions
	}{
		{"missing catalog id", models.SearchOptions{Language: "en", FeatureType: models.FeatureMovie}},
		{"missing language", models.SearchOptions{CatalogID: "tt1", FeatureType: models.FeatureMovie}},
		{"episode without numbers", models.SearchOptions{CatalogID: "tt1", Language: "en", FeatureType: models.FeatureEpisode, SeasonNumber: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := orchestrator.Search(context.Background(), tc.opts)
			if !errors.Is(err, &apperrors.ErrValidation{}) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
	if adapter.calls != 0 {
		t.Errorf("expected no provider dispatch on invalid input, got %d calls", adapter.calls)
	}
}

func TestSearch_ClassifiesWhenTypeAbsent(t *testing.T) {
	adapter := &stubAdapter{provider: models.ProviderOpenSubtitles}
	resolver := &stubResolver{feature: &feature.Feature{
		Type:      models.FeatureMovie,
		CatalogID: "tt0000001",
		Title:     "Some Movie",
		Year:      "2024",
	}}
	orchestrator := NewOrchestrator([]providers.Adapter{adapter}, resolver, newSessions(t))

	opts := movieOptions()
	opts.FeatureType = ""
	if _, err := orchestrator.Search(context.Background(), opts); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resolver.calls != 1 {
		t.Errorf("expected one resolver call, got %d", resolver.calls)
	}
	if adapter.calls != 1 {
		t.Errorf("expected the adapter dispatched after classification, got %d calls", adapter.calls)
	}
}

func TestSearch_ResolvedEpisodeNeedsNumbers(t *testing.T) {
	adapter := &stubAdapter{provider: models.ProviderOpenSubtitles}
	resolver := &stubResolver{feature: &feature.Feature{
		Type:      models.FeatureEpisode,
		CatalogID: "tt0000002",
		Title:     "Some Show",
	}}
	orchestrator := NewOrchestrator([]providers.Adapter{adapter}, resolver, newSessions(t))

	opts := models.SearchOptions{CatalogID: "tt0000002", Language: "en"}
	_, err := orchestrator.Search(context.Background(), opts)
	if !errors.Is(err, &apperrors.ErrValidation{}) {
		t.Errorf("expected a validation error for an episodic id without numbers, got %v", err)
	}
	if adapter.calls != 0 {
		t.Error("expected no dispatch when classification rejects the request")
	}
}

func TestSearch_SkipsAdaptersThatDoNotHandleType(t *testing.T) {
	episodic := &stubAdapter{provider: models.ProviderFanSite, episodic: true}
	universal := &stubAdapter{provider: models.ProviderOpenSubtitles}
	orchestrator := NewOrchestrator([]providers.Adapter{episodic, universal}, &stubResolver{}, newSessions(t))

	if _, err := orchestrator.Search(context.Background(), movieOptions()); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if episodic.calls != 0 {
		t.Error("expected the episode-only adapter skipped for a movie search")
	}
	if universal.calls != 1 {
		t.Errorf("expected the universal adapter dispatched, got %d calls", universal.calls)
	}
}

func TestSearch_PartialProviderFailureStillSucceeds(t *testing.T) {
	failing := &stubAdapter{provider: models.ProviderFanSite, err: apperrors.NewUpstreamStatusError("fansite", 502)}
	working := &stubAdapter{provider: models.ProviderOpenSubtitles, results: []models.Subtitle{
		movieResult(models.ProviderOpenSubtitles, "os-1", 1),
	}}
	orchestrator := NewOrchestrator([]providers.Adapter{failing, working}, &stubResolver{}, newSessions(t))

	results, err := orchestrator.Search(context.Background(), movieOptions())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the surviving provider's result, got %d", len(results))
	}
}

func TestSearch_AllProvidersFailing(t *testing.T) {
	first := &stubAdapter{provider: models.ProviderOpenSubtitles, err: apperrors.NewUpstreamStatusError("opensubtitles", 502)}
	second := &stubAdapter{provider: models.ProviderFanSite, err: apperrors.NewUpstreamStatusError("fansite", 503)}
	orchestrator := NewOrchestrator([]providers.Adapter{first, second}, &stubResolver{}, newSessions(t))

	opts := movieOptions()
	opts.SeasonNumber = 1
	opts.EpisodeNumber = 2
	opts.FeatureType = models.FeatureEpisode

	_, err := orchestrator.Search(context.Background(), opts)
	if err == nil {
		t.Fatal("expected an error when every provider fails")
	}
	if !errors.Is(err, first.err) || !errors.Is(err, second.err) {
		t.Errorf("expected both provider errors joined, got %v", err)
	}
}

func TestSearch_EmptyResultsStillCreateSession(t *testing.T) {
	adapter := &stubAdapter{provider: models.ProviderOpenSubtitles}
	sessions := newSessions(t)
	orchestrator := NewOrchestrator([]providers.Adapter{adapter}, &stubResolver{}, sessions)

	results, err := orchestrator.Search(context.Background(), movieOptions())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if sessions.Len() != 1 {
		t.Errorf("expected one cached session, got %d", sessions.Len())
	}
}
