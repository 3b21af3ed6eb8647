package app

import (
	"os"
	"testing"
	"time"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	envVars := []string{
		"HTTP_ADDR", "REQUEST_TIMEOUT_SECONDS", "LOG_LEVEL", "LOG_FORMAT",
		"USER_AGENT", "TMDB_API_KEY", "TMDB_BASE_URL", "TMDB_CACHE_TTL_HOURS",
		"SEARCH_ENDPOINT", "SEARCH_MAX_RESULTS", "SEARCH_RATE_RPS",
		"SEARCH_RETRY_ATTEMPTS", "RESOLVE_WORKERS", "REDIS_URL",
		"LOCALES_FILE", "HISTORY_LIMIT",
	}
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8091"},
		{"RequestTimeout", cfg.RequestTimeout, 30 * time.Second},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"UserAgent", cfg.UserAgent, "cinemabot-offer-service/1.0"},
		{"TMDBAPIKey", cfg.TMDBAPIKey, ""},
		{"TMDBBaseURL", cfg.TMDBBaseURL, "https://api.themoviedb.org/3"},
		{"TMDBCacheTTL", cfg.TMDBCacheTTL, 24 * time.Hour},
		{"SearchEndpoint", cfg.SearchEndpoint, "https://html.duckduckgo.com/html/"},
		{"SearchMaxResults", cfg.SearchMaxResults, 6},
		{"SearchRateRPS", cfg.SearchRateRPS, float64(0)},
		{"SearchRetryAttempts", cfg.SearchRetryAttempts, 1},
		{"ResolveWorkers", cfg.ResolveWorkers, 3},
		{"RedisURL", cfg.RedisURL, ""},
		{"LocalesFile", cfg.LocalesFile, ""},
		{"HistoryLimit", cfg.HistoryLimit, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_ADDR":               ":9191",
		"REQUEST_TIMEOUT_SECONDS": "10",
		"LOG_LEVEL":               "DEBUG",
		"LOG_FORMAT":              "JSON",
		"TMDB_API_KEY":            "  secret  ",
		"SEARCH_MAX_RESULTS":      "4",
		"SEARCH_RATE_RPS":         "2.5",
		"SEARCH_RETRY_ATTEMPTS":   "3",
		"RESOLVE_WORKERS":         "5",
		"REDIS_URL":               "redis://localhost:6379/0",
		"HISTORY_LIMIT":           "10",
	})

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9191" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout: got %v", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log settings not lowercased: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.TMDBAPIKey != "secret" {
		t.Errorf("TMDBAPIKey not trimmed: %q", cfg.TMDBAPIKey)
	}
	if cfg.SearchMaxResults != 4 {
		t.Errorf("SearchMaxResults: got %d", cfg.SearchMaxResults)
	}
	if cfg.SearchRateRPS != 2.5 {
		t.Errorf("SearchRateRPS: got %v", cfg.SearchRateRPS)
	}
	if cfg.SearchRetryAttempts != 3 {
		t.Errorf("SearchRetryAttempts: got %d", cfg.SearchRetryAttempts)
	}
	if cfg.ResolveWorkers != 5 {
		t.Errorf("ResolveWorkers: got %d", cfg.ResolveWorkers)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL: got %q", cfg.RedisURL)
	}
	if cfg.HistoryLimit != 10 {
		t.Errorf("HistoryLimit: got %d", cfg.HistoryLimit)
	}
}

func TestLoadConfigRejectsInvalidNumbers(t *testing.T) {
	setEnvs(t, map[string]string{
		"REQUEST_TIMEOUT_SECONDS": "not-a-number",
		"SEARCH_MAX_RESULTS":      "-2",
		"SEARCH_RATE_RPS":         "-1",
		"RESOLVE_WORKERS":         "0",
	})

	cfg := LoadConfig()

	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout: got %v, want default", cfg.RequestTimeout)
	}
	if cfg.SearchMaxResults != 6 {
		t.Errorf("SearchMaxResults: got %d, want default", cfg.SearchMaxResults)
	}
	if cfg.SearchRateRPS != 0 {
		t.Errorf("SearchRateRPS: got %v, want default", cfg.SearchRateRPS)
	}
	if cfg.ResolveWorkers != 3 {
		t.Errorf("ResolveWorkers: got %d, want default", cfg.ResolveWorkers)
	}
}
