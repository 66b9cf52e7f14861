// Package ranking orders merged subtitle results, either by popularity or by
// fuzzy relevance against a free-text query.
package ranking

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/daniel-lxs/bettersubs/internal/models"
)

// Rank orders subtitles for presentation. With an empty query the list is
// sorted by download count descending, ties keeping their incoming order.
// With a query, results are fuzzy-matched against release name and comments
// and returned best match first; subtitles with no match at all are dropped.
func Rank(subtitles []models.Subtitle, query string) []models.Subtitle {
	if strings.TrimSpace(query) == "" {
		return byPopularity(subtitles)
	}
	return byRelevance(subtitles, query)
}

func byPopularity(subtitles []models.Subtitle) []models.Subtitle {
	ranked := make([]models.Subtitle, len(subtitles))
	copy(ranked, subtitles)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DownloadCount > ranked[j].DownloadCount
	})
	return ranked
}

// subtitleSource exposes the searchable text of each subtitle to the fuzzy
// matcher. Release name and comments are matched as one haystack so a query
// can hit either field.
type subtitleSource []models.Subtitle

func (s subtitleSource) String(i int) string {
	sub := s[i]
	if sub.Comments == "" {
		return sub.ReleaseName
	}
	return sub.ReleaseName + " " + sub.Comments
}

func (s subtitleSource) Len() int {
	return len(s)
}

func byRelevance(subtitles []models.Subtitle, query string) []models.Subtitle {
	matches := fuzzy.FindFrom(query, subtitleSource(subtitles))
	ranked := make([]models.Subtitle, 0, len(matches))
	for _, match := range matches {
		ranked = append(ranked, subtitles[match.Index])
	}
	return ranked
}
