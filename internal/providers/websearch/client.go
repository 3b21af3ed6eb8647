package websearch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"cinemabot/offerservice/internal/domain"
)

const (
	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultUserAgent  = "cinemabot-offer-service/1.0"
	defaultMaxResults = 6
	maxResultsCap     = 10
	maxBodyBytes      = 4 * 1024 * 1024
)

var (
	resultAnchorPattern = regexp.MustCompile(`(?is)<a[^>]+class="[^"]*result__a[^"]*"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	tagPattern          = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// Client queries the DuckDuckGo HTML endpoint. Results come back in the
// backend's own relevance order; an empty list is a valid outcome.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

func NewClient(cfg Config) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint:  endpoint,
		userAgent: userAgent,
		http:      httpClient,
	}
}

// Search runs one regional text query and returns at most maxResults
// records. The region code goes into the backend's kl parameter
// (e.g. "us-en", "ru-ru").
func (c *Client) Search(ctx context.Context, query, region string, maxResults int) ([]domain.WebResult, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	params := uri.Query()
	params.Set("q", strings.TrimSpace(query))
	region = strings.TrimSpace(region)
	if region != "" {
		params.Set("kl", region)
	}
	uri.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("search backend HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return parseResults(string(payload), maxResults), nil
}

func parseResults(payload string, limit int) []domain.WebResult {
	matches := resultAnchorPattern.FindAllStringSubmatch(payload, -1)
	results := make([]domain.WebResult, 0, limit)
	for _, match := range matches {
		rawURL := unwrapRedirect(html.UnescapeString(match[1]))
		title := cleanTitle(match[2])
		if rawURL == "" || title == "" {
			continue
		}
		results = append(results, domain.WebResult{URL: rawURL, Title: title})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// unwrapRedirect resolves the backend's click-tracking links
// (//duckduckgo.com/l/?uddg=<target>) to the target URL. Ad links carry no
// target and are dropped.
func unwrapRedirect(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "//") {
		value = "https:" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if unescaped, err := url.QueryUnescape(target); err == nil {
			value = unescaped
		} else {
			value = target
		}
		parsed, err = url.Parse(value)
		if err != nil {
			return ""
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Hostname() == "" || strings.HasSuffix(parsed.Path, "y.js") {
		return ""
	}
	return parsed.String()
}

func cleanTitle(raw string) string {
	value := tagPattern.ReplaceAllString(raw, " ")
	value = html.UnescapeString(value)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}
