// Package fansite adapts an episodic fan-maintained subtitle site that only
// exposes an HTML listing. Results are scraped per episode page; the site
// carries no movie subtitles at all.
package fansite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/feature"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/subtitles"
)

const providerName = "fansite"

// languageNames maps ISO 639-1 codes onto the names the site uses in its
// episode URLs and language cells.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"hu": "Hungarian",
	"nl": "Dutch",
	"pl": "Polish",
	"ro": "Romanian",
}

var downloadsPattern = regexp.MustCompile(`(\d+)\s+Downloads`)

// Adapter scrapes the fan site's per-episode listing pages.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	resolver   feature.Resolver
	logger     zerolog.Logger
}

// New creates the adapter. The resolver supplies the series title the site
// keys its episode pages on.
func New(cfg config.FanSiteConfig, httpClient *http.Client, resolver feature.Resolver) *Adapter {
	return &Adapter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		resolver:   resolver,
		logger:     config.GetLogger().With().Str("provider", providerName).Logger(),
	}
}

// Provider implements providers.Adapter.
func (a *Adapter) Provider() models.Provider {
	return models.ProviderFanSite
}

// Handles implements providers.Adapter. The site indexes episodes only.
func (a *Adapter) Handles(featureType models.FeatureType) bool {
	return featureType == models.FeatureEpisode
}

// Search implements providers.Adapter. The catalog id is resolved to a
// series title, then the matching episode page is scraped.
func (a *Adapter) Search(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error) {
	if !opts.HasEpisodeNumbers() {
		return nil, apperrors.NewValidationError("episode searches need both season and episode numbers")
	}

	resolved, err := a.resolver.Resolve(ctx, opts.CatalogID)
	if err != nil {
		return nil, err
	}

	doc, err := a.fetchEpisodePage(ctx, resolved.Title, opts)
	if err != nil {
		return nil, err
	}

	results := a.parseListing(doc, resolved, opts)
	a.logger.Debug().Str("catalogId", opts.CatalogID).Int("results", len(results)).Msg("search completed")
	return results, nil
}

func (a *Adapter) fetchEpisodePage(ctx context.Context, title string, opts models.SearchOptions) (*goquery.Document, error) {
	endpoint := fmt.Sprintf("%s/serie/%s/%d/%d/%s",
		a.baseURL,
		url.PathEscape(title),
		opts.SeasonNumber,
		opts.EpisodeNumber,
		url.PathEscape(languageName(opts.Language)),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())
	req.Header.Set("Referer", a.baseURL)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("episode listing", opts.CatalogID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError(providerName, fmt.Errorf("parse listing page: %w", err))
	}
	return doc, nil
}

// parseListing walks the version blocks of an episode page. Each block is
// one release with its language rows and a download button.
func (a *Adapter) parseListing(doc *goquery.Document, resolved *feature.Feature, opts models.SearchOptions) []models.Subtitle {
	wantLanguage := languageName(opts.Language)

	var results []models.Subtitle
	doc.Find("div#container95m table.tabel95").Each(func(_ int, block *goquery.Selection) {
		release := parseVersion(block.Find(".NewsTitle").First().Text())
		if release == "" {
			return
		}
		comments := strings.TrimSpace(block.Find(".newsDate").First().Text())

		block.Find("tr").Each(func(_ int, row *goquery.Selection) {
			language := strings.TrimSpace(row.Find(".language").Text())
			if language == "" || !strings.EqualFold(language, wantLanguage) {
				return
			}
			href, ok := row.Find("a.buttonDownload").Last().Attr("href")
			if !ok {
				return
			}

			downloads := 0
			if m := downloadsPattern.FindStringSubmatch(row.Text()); m != nil {
				downloads, _ = strconv.Atoi(m[1])
			}

			path := strings.TrimPrefix(href, "/")
			// The episode rides along in the native id so a later
			// download can pull the right file out of a season pack.
			nativeID := fmt.Sprintf("%s?ep=%d", path, opts.EpisodeNumber)
			results = append(results, models.Subtitle{
				ExternalID:    path,
				Provider:      models.ProviderFanSite,
				FileID:        nativeID,
				ReleaseName:   release,
				Comments:      comments,
				Language:      opts.Language,
				DownloadCount: downloads,
				URL:           a.baseURL + "/" + path,
				FeatureDetails: models.FeatureDetails{
					FeatureType:   models.FeatureEpisode,
					Year:          resolved.Year,
					Title:         resolved.Title,
					FeatureName:   fmt.Sprintf("%s %dx%02d", resolved.Title, opts.SeasonNumber, opts.EpisodeNumber),
					CatalogID:     opts.CatalogID,
					SeasonNumber:  opts.SeasonNumber,
					EpisodeNumber: opts.EpisodeNumber,
				},
			})
		})
	})
	return results
}

// parseVersion extracts the release name from a "Version X, ..." header.
func parseVersion(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "Version ")
	if idx := strings.Index(text, ","); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// Download implements providers.Adapter. The native id is the site-relative
// download path plus the episode hint stamped on at search time. Single
// files are normalized to UTF-8 as-is; season-pack archives first have the
// hinted episode's file extracted.
func (a *Adapter) Download(ctx context.Context, nativeID string) (string, error) {
	path, episode := splitEpisodeHint(nativeID)

	endpoint := a.baseURL + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())
	// The site rejects downloads without an on-site referer.
	req.Header.Set("Referer", a.baseURL)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", apperrors.NewNotFoundError("subtitle", nativeID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, fmt.Errorf("read subtitle content: %w", err))
	}
	contentType := resp.Header.Get("Content-Type")

	if subtitles.IsArchive(contentType) {
		if episode <= 0 {
			return "", apperrors.NewNotFoundError("subtitle", nativeID)
		}
		file, err := subtitles.ExtractEpisode(raw, contentType, episode)
		if err != nil {
			a.logger.Warn().Err(err).Str("fileId", nativeID).Msg("season pack extraction failed")
			return "", apperrors.NewNotFoundError("subtitle", nativeID)
		}
		raw = file.Content
		contentType = file.ContentType
	}

	content, err := subtitles.NormalizeUTF8(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, fmt.Errorf("normalize subtitle content: %w", err))
	}
	return content, nil
}

// splitEpisodeHint separates the site path from the "?ep=N" suffix.
func splitEpisodeHint(nativeID string) (string, int) {
	path, hint, found := strings.Cut(nativeID, "?ep=")
	if !found {
		return nativeID, 0
	}
	episode, err := strconv.Atoi(hint)
	if err != nil {
		return path, 0
	}
	return path, episode
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
