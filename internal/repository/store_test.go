package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "subtitles.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSubtitle(fileID, catalogID string) models.Subtitle {
	return models.Subtitle{
		ExternalID:    "ext-" + fileID,
		Provider:      models.ProviderLocal,
		FileID:        fileID,
		CreatedOn:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		ReleaseName:   "Some.Movie.2024.1080p.WEB",
		Comments:      "sync fixed",
		DownloadCount: 7,
		Language:      "en",
		FeatureDetails: models.FeatureDetails{
			FeatureType: models.FeatureMovie,
			Year:        "2024",
			Title:       "Some Movie",
			FeatureName: "Some Movie",
			CatalogID:   catalogID,
		},
	}
}

func TestStore_InsertAndFindByFileID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := sampleSubtitle("file-1", "tt0000001")
	if err := store.InsertSubtitle(ctx, want); err != nil {
		t.Fatalf("InsertSubtitle failed: %v", err)
	}

	got, err := store.FindByFileID(ctx, "file-1")
	if err != nil {
		t.Fatalf("FindByFileID failed: %v", err)
	}
	if got.ExternalID != want.ExternalID {
		t.Errorf("expected external id %q, got %q", want.ExternalID, got.ExternalID)
	}
	if got.ReleaseName != want.ReleaseName {
		t.Errorf("expected release name %q, got %q", want.ReleaseName, got.ReleaseName)
	}
	if !got.CreatedOn.Equal(want.CreatedOn) {
		t.Errorf("expected created on %v, got %v", want.CreatedOn, got.CreatedOn)
	}
	if got.FeatureDetails.CatalogID != "tt0000001" {
		t.Errorf("expected catalog id tt0000001, got %q", got.FeatureDetails.CatalogID)
	}
}

func TestStore_FindByFileIDNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.FindByFileID(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for an unknown file id")
	}
	if !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestStore_FeatureDetailsDedup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := sampleSubtitle("file-a", "tt0000042")
	second := sampleSubtitle("file-b", "tt0000042")
	second.ReleaseName = "Some.Movie.2024.2160p.WEB"

	if err := store.InsertSubtitle(ctx, first); err != nil {
		t.Fatalf("InsertSubtitle failed: %v", err)
	}
	if err := store.InsertSubtitle(ctx, second); err != nil {
		t.Fatalf("InsertSubtitle failed: %v", err)
	}

	var count int
	err := store.db.QueryRow(`SELECT COUNT(*) FROM feature_details`).Scan(&count)
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one feature_details row, got %d", count)
	}
}

func TestStore_FindSubtitlesFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	english := sampleSubtitle("file-en", "tt0000100")
	hungarian := sampleSubtitle("file-hu", "tt0000100")
	hungarian.Language = "hu"
	other := sampleSubtitle("file-other", "tt0000200")

	for _, sub := range []models.Subtitle{english, hungarian, other} {
		if err := store.InsertSubtitle(ctx, sub); err != nil {
			t.Fatalf("InsertSubtitle failed: %v", err)
		}
	}

	results, err := store.FindSubtitles(ctx, Filter{CatalogID: "tt0000100", Language: "en"})
	if err != nil {
		t.Fatalf("FindSubtitles failed: %v", err)
	}
	if len(results) != 1 || results[0].FileID != "file-en" {
		t.Fatalf("expected only file-en, got %#v", results)
	}

	results, err = store.FindSubtitles(ctx, Filter{CatalogID: "tt0000100"})
	if err != nil {
		t.Fatalf("FindSubtitles failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two subtitles for tt0000100, got %d", len(results))
	}
}

func TestStore_IncrementDownloadCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sub := sampleSubtitle("file-pop", "tt0000300")
	if err := store.InsertSubtitle(ctx, sub); err != nil {
		t.Fatalf("InsertSubtitle failed: %v", err)
	}
	if err := store.IncrementDownloadCount(ctx, "file-pop"); err != nil {
		t.Fatalf("IncrementDownloadCount failed: %v", err)
	}

	got, err := store.FindByFileID(ctx, "file-pop")
	if err != nil {
		t.Fatalf("FindByFileID failed: %v", err)
	}
	if got.DownloadCount != sub.DownloadCount+1 {
		t.Errorf("expected download count %d, got %d", sub.DownloadCount+1, got.DownloadCount)
	}
}
