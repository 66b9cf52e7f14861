package cache

import (
	"testing"
	"time"

	"github.com/daniel-lxs/bettersubs/internal/models"
)

func newTestSessionStore(t *testing.T, size int, ttl time.Duration) *SessionStore {
	t.Helper()
	c, err := New("memory", ProviderConfig{Size: size, TTL: ttl})
	if err != nil {
		t.Fatalf("New cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewSessionStore(c)
}

func testResults() []models.Subtitle {
	return []models.Subtitle{
		{
			Provider:      models.ProviderOpenSubtitles,
			FileID:        "1234567",
			ReleaseName:   "Some.Show.S01E02.1080p.WEB",
			Language:      "en",
			DownloadCount: 10,
			FeatureDetails: models.FeatureDetails{
				FeatureType:   models.FeatureEpisode,
				Title:         "Some Show",
				CatalogID:     "tt1234567",
				SeasonNumber:  1,
				EpisodeNumber: 2,
			},
		},
		{
			Provider:      models.ProviderFanSite,
			FileID:        "89",
			ReleaseName:   "Some.Show.S01E02.HDTV",
			Language:      "en",
			DownloadCount: 3,
		},
	}
}

func TestSessionStore_PutGetPreservesOrder(t *testing.T) {
	store := newTestSessionStore(t, 10, time.Hour)

	key := store.NewKey()
	if key == "" {
		t.Fatal("NewKey returned empty key")
	}
	if key2 := store.NewKey(); key2 == key {
		t.Fatal("NewKey should generate unique keys")
	}

	if err := store.Put(key, testResults()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := store.Get(key)
	if !ok {
		t.Fatal("Expected hit for stored session")
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(got))
	}
	if got[0].FileID != "1234567" || got[1].FileID != "89" {
		t.Fatalf("Presentation order not preserved: %q, %q", got[0].FileID, got[1].FileID)
	}
	if got[0].FeatureDetails.SeasonNumber != 1 || got[0].FeatureDetails.EpisodeNumber != 2 {
		t.Fatal("Episode numbers lost in round trip")
	}
}

func TestSessionStore_MissOnUnknownKey(t *testing.T) {
	store := newTestSessionStore(t, 10, time.Hour)

	if _, ok := store.Get("never-stored"); ok {
		t.Fatal("Expected miss for unknown session key")
	}
}

func TestSessionStore_ExpiredSessionIsMiss(t *testing.T) {
	store := newTestSessionStore(t, 10, 30*time.Millisecond)

	key := store.NewKey()
	if err := store.Put(key, testResults()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := store.Get(key); ok {
		t.Fatal("Expected miss for expired session")
	}
}

func TestSessionStore_LRUPressureEvictsOldestSession(t *testing.T) {
	store := newTestSessionStore(t, 2, time.Hour)

	keys := []string{"sess-a", "sess-b", "sess-c"}
	for _, k := range keys {
		if err := store.Put(k, testResults()); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	if _, ok := store.Get("sess-a"); ok {
		t.Fatal("Oldest session should have been evicted")
	}
	for _, k := range []string{"sess-b", "sess-c"} {
		if _, ok := store.Get(k); !ok {
			t.Fatalf("Session %s should still be cached", k)
		}
	}
}

func TestSessionStore_RemoveAndClear(t *testing.T) {
	store := newTestSessionStore(t, 10, time.Hour)

	store.Put("a", testResults())
	store.Put("b", testResults())

	store.Remove("a")
	if store.Has("a") {
		t.Fatal("Removed session should be absent")
	}

	store.Clear()
	if store.Len() != 0 {
		t.Fatalf("Expected empty store after Clear, got %d", store.Len())
	}
}

func TestSessionStore_CorruptEntryIsMiss(t *testing.T) {
	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New cache: %v", err)
	}
	defer c.Close()
	store := NewSessionStore(c)

	c.Set("broken", []byte("{not json"))
	if _, ok := store.Get("broken"); ok {
		t.Fatal("Corrupt session entry should be a miss")
	}
	if c.Contains("broken") {
		t.Fatal("Corrupt entry should have been dropped")
	}
}
