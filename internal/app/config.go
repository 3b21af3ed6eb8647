package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr            string
	RequestTimeout      time.Duration
	LogLevel            string
	LogFormat           string
	UserAgent           string
	TMDBAPIKey          string
	TMDBBaseURL         string
	TMDBCacheTTL        time.Duration
	SearchEndpoint      string
	SearchMaxResults    int
	SearchRateRPS       float64
	SearchRetryAttempts int
	ResolveWorkers      int
	RedisURL            string
	LocalesFile         string
	HistoryLimit        int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8091"),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:           getEnv("USER_AGENT", "cinemabot-offer-service/1.0"),
		TMDBAPIKey:          strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:         getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBCacheTTL:        time.Duration(getEnvInt("TMDB_CACHE_TTL_HOURS", 24)) * time.Hour,
		SearchEndpoint:      getEnv("SEARCH_ENDPOINT", "https://html.duckduckgo.com/html/"),
		SearchMaxResults:    getEnvInt("SEARCH_MAX_RESULTS", 6),
		SearchRateRPS:       getEnvFloat("SEARCH_RATE_RPS", 0),
		SearchRetryAttempts: getEnvInt("SEARCH_RETRY_ATTEMPTS", 1),
		ResolveWorkers:      getEnvInt("RESOLVE_WORKERS", 3),
		RedisURL:            getEnv("REDIS_URL", ""),
		LocalesFile:         getEnv("LOCALES_FILE", ""),
		HistoryLimit:        getEnvInt("HISTORY_LIMIT", 50),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
