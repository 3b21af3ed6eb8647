package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/history"
	"cinemabot/offerservice/internal/locales"
	"cinemabot/offerservice/internal/resolve"
)

type fakeResolver struct {
	candidates  []domain.MovieIdentity
	offers      domain.OfferMap
	diagnostics []domain.SearchBackendDiagnostics
	searchErr   error
	resolveErr  error
}

func (f *fakeResolver) SearchMovies(_ context.Context, _ string) ([]domain.MovieIdentity, error) {
	return f.candidates, f.searchErr
}

func (f *fakeResolver) ResolveOffers(_ context.Context, _ string) (domain.OfferMap, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.offers, nil
}

func (f *fakeResolver) SearchDiagnostics() []domain.SearchBackendDiagnostics {
	return f.diagnostics
}

func newTestServer(t *testing.T, resolver *fakeResolver, options ...ServerOption) *httptest.Server {
	t.Helper()
	registry, err := locales.NewRegistry(locales.DefaultProfiles())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	server := httptest.NewServer(NewServer(resolver, registry, options...).Handler())
	t.Cleanup(server.Close)
	return server
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field: got %v", body["status"])
	}
}

func TestHandleMovieSearch(t *testing.T) {
	resolver := &fakeResolver{
		candidates: []domain.MovieIdentity{
			{ID: "603", Title: "The Matrix", Year: "1999"},
		},
	}
	server := newTestServer(t, resolver)

	resp, err := http.Get(server.URL + "/movies/search?q=the+matrix")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body struct {
		Query string                 `json:"query"`
		Items []domain.MovieIdentity `json:"items"`
	}
	decodeBody(t, resp, &body)
	if body.Query != "the matrix" {
		t.Errorf("query: got %q", body.Query)
	}
	if len(body.Items) != 1 || body.Items[0].ID != "603" {
		t.Errorf("items: got %v", body.Items)
	}
}

func TestHandleMovieSearchValidation(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing query", "/movies/search", http.StatusBadRequest},
		{"blank query", "/movies/search?q=++", http.StatusBadRequest},
		{"query too long", "/movies/search?q=" + strings.Repeat("a", 201), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.url)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHandleOffers(t *testing.T) {
	resolver := &fakeResolver{
		offers: domain.OfferMap{
			"US": {URL: "https://www.netflix.com/title/123", Provider: "Netflix", Tier: domain.TierFlatrate},
		},
	}
	server := newTestServer(t, resolver)

	resp, err := http.Get(server.URL + "/offers?movieId=603")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body struct {
		MovieID string                  `json:"movieId"`
		Offers  map[string]domain.Offer `json:"offers"`
		Count   int                     `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.MovieID != "603" || body.Count != 1 {
		t.Errorf("envelope: %+v", body)
	}
	if body.Offers["US"].URL != "https://www.netflix.com/title/123" {
		t.Errorf("US offer: got %+v", body.Offers["US"])
	}
}

func TestHandleOffersEmptyMapIsOK(t *testing.T) {
	server := newTestServer(t, &fakeResolver{offers: domain.OfferMap{}})

	resp, err := http.Get(server.URL + "/offers?movieId=603")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("no offers is success, got %d", resp.StatusCode)
	}
	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 0 {
		t.Errorf("count: got %d", body.Count)
	}
}

func TestHandleOffersMetadataUnavailable(t *testing.T) {
	resolver := &fakeResolver{
		resolveErr: errors.Join(resolve.ErrMetadataUnavailable, errors.New("tmdb HTTP 500")),
	}
	server := newTestServer(t, resolver)

	resp, err := http.Get(server.URL + "/offers?movieId=603")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "metadata_unavailable" {
		t.Errorf("error code: got %q", body["error"])
	}
}

func TestHandleOffersMissingID(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	resp, err := http.Get(server.URL + "/offers")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}

func TestHandleLocales(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	resp, err := http.Get(server.URL + "/locales")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Locales []locales.Profile `json:"locales"`
	}
	decodeBody(t, resp, &body)
	if len(body.Locales) != 3 {
		t.Errorf("want 3 default locales, got %d", len(body.Locales))
	}
}

func TestHandleSearchHealth(t *testing.T) {
	resolver := &fakeResolver{
		diagnostics: []domain.SearchBackendDiagnostics{
			{Region: "us-en", TotalRequests: 4, TotalFailures: 1},
		},
	}
	server := newTestServer(t, resolver)

	resp, err := http.Get(server.URL + "/search/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Regions []domain.SearchBackendDiagnostics `json:"regions"`
	}
	decodeBody(t, resp, &body)
	if len(body.Regions) != 1 || body.Regions[0].Region != "us-en" {
		t.Errorf("regions: got %v", body.Regions)
	}
}

func TestHandleHistoryRoundTrip(t *testing.T) {
	server := newTestServer(t, &fakeResolver{}, WithHistory(history.NewService()))

	payload := `{"chatId":"42","query":"the matrix","movieTitle":"The Matrix"}`
	resp, err := http.Post(server.URL+"/history", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status: got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/history?chatId=42")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		ChatID  string                `json:"chatId"`
		Entries []domain.HistoryEntry `json:"entries"`
	}
	decodeBody(t, resp, &body)
	if len(body.Entries) != 1 || body.Entries[0].Query != "the matrix" {
		t.Errorf("entries: got %v", body.Entries)
	}

	resp, err = http.Get(server.URL + "/stats?chatId=42")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	var stats struct {
		Movies []domain.MovieCount `json:"movies"`
	}
	decodeBody(t, resp, &stats)
	if len(stats.Movies) != 1 || stats.Movies[0].Title != "The Matrix" {
		t.Errorf("movies: got %v", stats.Movies)
	}
}

func TestHandleHistoryValidation(t *testing.T) {
	server := newTestServer(t, &fakeResolver{}, WithHistory(history.NewService()))

	resp, err := http.Get(server.URL + "/history")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing chatId: got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/history", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad payload: got %d", resp.StatusCode)
	}
}

func TestHistoryNotConfigured(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	for _, path := range []string{"/history?chatId=42", "/stats?chatId=42"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &fakeResolver{})

	resp, err := http.Post(server.URL+"/offers?movieId=603", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}
