package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/metrics"
)

const (
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultUserAgent = "cinemabot-offer-service/1.0"
	redisCacheKey    = "offers:tmdb:"
	maxBodyBytes     = 512 * 1024
)

// Client is the metadata service adapter. Translation and watch-provider
// payloads are cached in Redis when a client is supplied; search and detail
// lookups always go to the wire.
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string
	http      *http.Client
	redis     *redis.Client
	cacheTTL  time.Duration
}

type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Redis     *redis.Client
	CacheTTL  time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
		redis:     cfg.Redis,
		cacheTTL:  cacheTTL,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type movieItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

func (m movieItem) identity() domain.MovieIdentity {
	year := ""
	if len(m.ReleaseDate) >= 4 {
		year = m.ReleaseDate[:4]
	}
	return domain.MovieIdentity{
		ID:    strconv.Itoa(m.ID),
		Title: strings.TrimSpace(m.Title),
		Year:  year,
	}
}

type searchResponse struct {
	Results []movieItem `json:"results"`
}

// SearchMovies returns up to three candidates in the service's own ranking.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]domain.MovieIdentity, error) {
	params := url.Values{"query": {strings.TrimSpace(query)}}
	payload, err := c.get(ctx, "/search/movie", params, "search")
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := response.Results
	if len(items) > 3 {
		items = items[:3]
	}
	identities := make([]domain.MovieIdentity, 0, len(items))
	for _, item := range items {
		identities = append(identities, item.identity())
	}
	return identities, nil
}

// MovieByID returns the canonical title and release year.
func (c *Client) MovieByID(ctx context.Context, id string) (domain.MovieIdentity, error) {
	payload, err := c.get(ctx, "/movie/"+url.PathEscape(strings.TrimSpace(id)), nil, "movie")
	if err != nil {
		return domain.MovieIdentity{}, err
	}

	var item movieItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return domain.MovieIdentity{}, fmt.Errorf("decode movie response: %w", err)
	}
	return item.identity(), nil
}

type translationsResponse struct {
	Translations []struct {
		Language string `json:"iso_639_1"`
		Country  string `json:"iso_3166_1"`
		Data     struct {
			Title string `json:"title"`
		} `json:"data"`
	} `json:"translations"`
}

// Translations returns localized titles keyed by BCP 47 tag ("en-US").
// Entries without a title are omitted: an absent key means no translation.
func (c *Client) Translations(ctx context.Context, id string) (map[string]string, error) {
	path := "/movie/" + url.PathEscape(strings.TrimSpace(id)) + "/translations"
	payload, err := c.getCached(ctx, path, "translations")
	if err != nil {
		return nil, err
	}

	var response translationsResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("decode translations response: %w", err)
	}

	titles := make(map[string]string, len(response.Translations))
	for _, entry := range response.Translations {
		title := strings.TrimSpace(entry.Data.Title)
		if title == "" || entry.Language == "" || entry.Country == "" {
			continue
		}
		titles[entry.Language+"-"+entry.Country] = title
	}
	return titles, nil
}

type providerRef struct {
	ProviderName string `json:"provider_name"`
}

type watchProvidersResponse struct {
	Results map[string]struct {
		Free     []providerRef `json:"free"`
		Flatrate []providerRef `json:"flatrate"`
		Rent     []providerRef `json:"rent"`
		Buy      []providerRef `json:"buy"`
	} `json:"results"`
}

// WatchProviders returns the tiered provider lists per country code,
// preserving the order the service ranked them in. A country absent from
// the payload simply has no offers.
func (c *Client) WatchProviders(ctx context.Context, id string) (map[string]domain.TieredProviders, error) {
	path := "/movie/" + url.PathEscape(strings.TrimSpace(id)) + "/watch/providers"
	payload, err := c.getCached(ctx, path, "watch_providers")
	if err != nil {
		return nil, err
	}

	var response watchProvidersResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("decode watch providers response: %w", err)
	}

	tiered := make(map[string]domain.TieredProviders, len(response.Results))
	for country, entry := range response.Results {
		tiered[strings.ToUpper(country)] = domain.TieredProviders{
			Free:     providerNames(entry.Free),
			Flatrate: providerNames(entry.Flatrate),
			Rent:     providerNames(entry.Rent),
			Buy:      providerNames(entry.Buy),
		}
	}
	return tiered, nil
}

func providerNames(refs []providerRef) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.ProviderName)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// getCached serves the raw payload from Redis when possible; otherwise it
// fetches and stores it. Cache failures fall through to the wire.
func (c *Client) getCached(ctx context.Context, path, endpoint string) ([]byte, error) {
	if c.redis != nil {
		if payload, err := c.redis.Get(ctx, redisCacheKey+path).Bytes(); err == nil {
			return payload, nil
		}
	}

	payload, err := c.get(ctx, path, nil, endpoint)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		_ = c.redis.Set(ctx, redisCacheKey+path, payload, c.cacheTTL).Err()
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, endpoint string) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.MetadataRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.MetadataRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.MetadataRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.MetadataRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return payload, nil
}
