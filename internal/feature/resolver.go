// Package feature resolves an external catalog identifier (an IMDB-style id)
// to a canonical feature record, deciding whether the id names a movie or an
// episodic series and enriching searches with title and year metadata.
package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/token"
)

// Feature is the canonical record a catalog id resolves to.
type Feature struct {
	Type      models.FeatureType
	CatalogID string
	Title     string
	Year      string
	// SeriesID is the catalog's own numeric id for an episodic series; the
	// fan-site adapter needs it to locate the show on third-party indexes.
	SeriesID string
}

// Resolver classifies a catalog id and returns its canonical metadata.
// Resolvers cache nothing; callers own repeated-call cost.
type Resolver interface {
	Resolve(ctx context.Context, catalogID string) (*Feature, error)
}

const providerName = "catalog"

// catalogResolver queries a TVDB-style metadata catalog over HTTP.
type catalogResolver struct {
	baseURL    string
	httpClient *http.Client
	tokens     *token.Manager
}

// NewCatalogResolver creates a Resolver backed by the configured metadata
// catalog. The token manager owns the catalog's login exchange.
func NewCatalogResolver(baseURL string, httpClient *http.Client, tokens *token.Manager) Resolver {
	return &catalogResolver{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// remoteIDResponse is the catalog's ad hoc search-by-remote-id shape. A match
// exposes either a movie record or a series record; classification keys off
// which name field is populated.
type remoteIDResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Movie *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Year string `json:"year"`
		} `json:"movie"`
		Series *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Year string `json:"year"`
		} `json:"series"`
	} `json:"data"`
}

func (r *catalogResolver) Resolve(ctx context.Context, catalogID string) (*Feature, error) {
	bearer, err := r.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search/remoteid/%s", r.baseURL, catalogID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("feature", catalogID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamStatusError(providerName, resp.StatusCode)
	}

	var body remoteIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if len(body.Data) == 0 {
		return nil, apperrors.NewNotFoundError("feature", catalogID)
	}

	match := body.Data[0]

	// A record is a movie iff the catalog populated its movie name;
	// everything else is an episodic series.
	if match.Movie != nil && match.Movie.Name != "" {
		return &Feature{
			Type:      models.FeatureMovie,
			CatalogID: catalogID,
			Title:     match.Movie.Name,
			Year:      match.Movie.Year,
		}, nil
	}
	if match.Series == nil {
		return nil, apperrors.NewNotFoundError("feature", catalogID)
	}

	return &Feature{
		Type:      models.FeatureEpisode,
		CatalogID: catalogID,
		Title:     match.Series.Name,
		Year:      match.Series.Year,
		SeriesID:  strconv.FormatInt(match.Series.ID, 10),
	}, nil
}

// loginResponse is the catalog's login exchange shape.
type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Authenticator performs the catalog's apikey login exchange.
type Authenticator struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Login implements token.Authenticator.
func (a *Authenticator) Login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{"apikey": a.APIKey})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.HTTPClient.Do(req)
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
	if body.Status != "success" || body.Data.Token == "" {
		return "", apperrors.NewAuthError(providerName, "login did not yield a token")
	}
	return body.Data.Token, nil
}
