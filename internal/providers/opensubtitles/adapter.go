// Package opensubtitles adapts the OpenSubtitles REST API to the shared
// provider contract. Search is paginated and keyed by catalog id; downloads
// exchange a file id for a short-lived link under a session token.
package opensubtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/subtitles"
	"github.com/daniel-lxs/bettersubs/internal/token"
)

const providerName = "opensubtitles"

// maxSearchPages caps pagination so a very broad feature cannot make a
// single search walk the whole upstream index.
const maxSearchPages = 5

// Adapter talks to the OpenSubtitles v1 API.
type Adapter struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	tokens     *token.Manager
	logger     zerolog.Logger
}

// New creates the adapter. Credentials are exchanged lazily through the
// token manager on the first download.
func New(cfg config.OpenSubtitlesConfig, httpClient *http.Client) *Adapter {
	auth := &authenticator{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
	}
	return &Adapter{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		tokens:     token.NewManager(providerName, auth),
		logger:     config.GetLogger().With().Str("provider", providerName).Logger(),
	}
}

// Provider implements providers.Adapter.
func (a *Adapter) Provider() models.Provider {
	return models.ProviderOpenSubtitles
}

// Handles implements providers.Adapter. OpenSubtitles indexes both movies
// and episodes.
func (a *Adapter) Handles(models.FeatureType) bool {
	return true
}

// Search implements providers.Adapter, walking every result page for the
// catalog id and flattening it into the shared model.
func (a *Adapter) Search(ctx context.Context, opts models.SearchOptions) ([]models.Subtitle, error) {
	var results []models.Subtitle
	for page := 1; page <= maxSearchPages; page++ {
		body, err := a.searchPage(ctx, opts, page)
		if err != nil {
			return nil, err
		}
		for _, item := range body.Data {
			if sub, ok := a.normalize(item, opts); ok {
				results = append(results, sub)
			}
		}
		if page >= body.TotalPages {
			break
		}
	}
	a.logger.Debug().Str("catalogId", opts.CatalogID).Int("results", len(results)).Msg("search completed")
	return results, nil
}

func (a *Adapter) searchPage(ctx context.Context, opts models.SearchOptions, page int) (*searchResponse, error) {
	if err := a.tokens.GuardRateLimit(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("imdb_id", strings.TrimPrefix(opts.CatalogID, "tt"))
	params.Set("languages", opts.Language)
	params.Set("page", strconv.Itoa(page))
	if opts.FeatureType == models.FeatureEpisode {
		params.Set("season_number", strconv.Itoa(opts.SeasonNumber))
		params.Set("episode_number", strconv.Itoa(opts.EpisodeNumber))
	}

	endpoint := fmt.Sprintf("%s/subtitles?%s", a.apiURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	a.setCommonHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()
	a.tokens.ObserveResponse(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewUpstreamError(providerName, fmt.Errorf("decode search response: %w", err))
	}
	return &body, nil
}

// normalize maps one upstream record into the shared model. Records without
// a downloadable file are dropped.
func (a *Adapter) normalize(item subtitleData, opts models.SearchOptions) (models.Subtitle, bool) {
	attrs := item.Attributes
	if len(attrs.Files) == 0 {
		return models.Subtitle{}, false
	}

	createdOn, err := time.Parse(time.RFC3339, attrs.UploadDate)
	if err != nil {
		createdOn = time.Time{}
	}

	fd := attrs.FeatureDetails
	featureType := models.FeatureMovie
	if strings.EqualFold(fd.FeatureType, "episode") || strings.EqualFold(fd.FeatureType, "tvshow") {
		featureType = models.FeatureEpisode
	}

	return models.Subtitle{
		ExternalID:    attrs.SubtitleID,
		Provider:      models.ProviderOpenSubtitles,
		FileID:        strconv.FormatInt(attrs.Files[0].FileID, 10),
		ReleaseName:   attrs.Release,
		Comments:      attrs.Comments,
		Language:      attrs.Language,
		DownloadCount: attrs.DownloadCount,
		CreatedOn:     createdOn,
		URL:           attrs.URL,
		FeatureDetails: models.FeatureDetails{
			FeatureType:   featureType,
			Year:          strconv.Itoa(fd.Year),
			Title:         fd.Title,
			FeatureName:   fd.MovieName,
			CatalogID:     opts.CatalogID,
			SeasonNumber:  fd.SeasonNumber,
			EpisodeNumber: fd.EpisodeNumber,
		},
	}, true
}

// Download implements providers.Adapter. The file id is first exchanged for
// a short-lived link, then the link is fetched and normalized to UTF-8. An
// expired session token is refreshed once before giving up.
func (a *Adapter) Download(ctx context.Context, nativeID string) (string, error) {
	link, err := a.requestDownloadLink(ctx, nativeID)
	if err != nil {
		var authErr *apperrors.ErrAuth
		if !errors.As(err, &authErr) {
			return "", err
		}
		a.tokens.Invalidate()
		if link, err = a.requestDownloadLink(ctx, nativeID); err != nil {
			return "", err
		}
	}
	return a.fetchContent(ctx, link)
}

func (a *Adapter) requestDownloadLink(ctx context.Context, nativeID string) (string, error) {
	if err := a.tokens.GuardRateLimit(ctx); err != nil {
		return "", err
	}
	bearer, err := a.tokens.EnsureValidToken(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{"file_id": nativeID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/download", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	a.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()
	a.tokens.ObserveResponse(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperrors.NewAuthError(providerName, fmt.Sprintf("download link rejected with status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	var body downloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperrors.NewUpstreamError(providerName, fmt.Errorf("decode download response: %w", err))
	}
	if body.Link == "" {
		return "", apperrors.NewUpstreamError(providerName, fmt.Errorf("download response carried no link"))
	}
	return body.Link, nil
}

func (a *Adapter) fetchContent(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create content request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	content, err := subtitles.NormalizeUTF8(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.NewUpstreamError(providerName, fmt.Errorf("normalize subtitle content: %w", err))
	}
	return content, nil
}

func (a *Adapter) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", a.apiKey)
	req.Header.Set("User-Agent", config.GetUserAgent())
}

// authenticator performs the credential login exchange for token.Manager.
type authenticator struct {
	apiURL     string
	apiKey     string
	username   string
	password   string
	httpClient *http.Client
}

func (a *authenticator) Login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": a.username,
		"password": a.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", a.apiKey)
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewAuthError(providerName, fmt.Sprintf("login returned status %d", resp.StatusCode))
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	return body.Token, nil
}
