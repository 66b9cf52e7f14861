package ranking

import (
	"testing"

	"github.com/daniel-lxs/bettersubs/internal/models"
)

func sub(fileID, releaseName, comments string, downloads int) models.Subtitle {
	return models.Subtitle{
		FileID:        fileID,
		ReleaseName:   releaseName,
		Comments:      comments,
		DownloadCount: downloads,
	}
}

func fileIDs(subtitles []models.Subtitle) []string {
	ids := make([]string, len(subtitles))
	for i, s := range subtitles {
		ids[i] = s.FileID
	}
	return ids
}

func TestRank_PopularityDescending(t *testing.T) {
	input := []models.Subtitle{
		sub("low", "Movie.720p", "", 3),
		sub("high", "Movie.1080p", "", 10),
	}

	got := fileIDs(Rank(input, ""))
	want := []string{"high", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestRank_PopularityTiesKeepMergeOrder(t *testing.T) {
	input := []models.Subtitle{
		sub("first", "Movie.A", "", 5),
		sub("second", "Movie.B", "", 5),
		sub("third", "Movie.C", "", 5),
	}

	got := fileIDs(Rank(input, ""))
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected tie order %v, got %v", want, got)
		}
	}
}

func TestRank_PopularityDoesNotMutateInput(t *testing.T) {
	input := []models.Subtitle{
		sub("low", "Movie.720p", "", 1),
		sub("high", "Movie.1080p", "", 2),
	}

	_ = Rank(input, "")
	if input[0].FileID != "low" {
		t.Error("expected the input slice to keep its original order")
	}
}

func TestRank_QueryOrdersByRelevance(t *testing.T) {
	input := []models.Subtitle{
		sub("partial", "Some.Show.S01E02.HDTV", "", 100),
		sub("exact", "Some.Show.S01E02.1080p.WEB-DL", "web release", 1),
	}

	got := Rank(input, "1080p WEB")
	if len(got) == 0 {
		t.Fatal("expected at least one match")
	}
	if got[0].FileID != "exact" {
		t.Errorf("expected the closest release name first, got %q", got[0].FileID)
	}
}

func TestRank_QueryDropsNonMatches(t *testing.T) {
	input := []models.Subtitle{
		sub("match", "Some.Show.S01E02.1080p", "", 0),
		sub("noise", "zzzz", "", 50),
	}

	got := Rank(input, "1080p")
	for _, s := range got {
		if s.FileID == "noise" {
			t.Error("expected non-matching subtitles to be dropped")
		}
	}
	if len(got) != 1 || got[0].FileID != "match" {
		t.Errorf("expected only the matching subtitle, got %v", fileIDs(got))
	}
}

func TestRank_QueryMatchesComments(t *testing.T) {
	input := []models.Subtitle{
		sub("by-comment", "Random.Release", "resync for AMZN rip", 0),
	}

	got := Rank(input, "AMZN")
	if len(got) != 1 {
		t.Fatalf("expected the comment field to be searchable, got %d results", len(got))
	}
}
