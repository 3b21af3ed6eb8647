package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/locales"
	"cinemabot/offerservice/internal/resolve"
)

// ResolverService is the offer-resolution core consumed by the HTTP layer.
type ResolverService interface {
	SearchMovies(ctx context.Context, query string) ([]domain.MovieIdentity, error)
	ResolveOffers(ctx context.Context, movieID string) (domain.OfferMap, error)
	SearchDiagnostics() []domain.SearchBackendDiagnostics
}

// HistoryService records answered queries and serves per-chat views.
type HistoryService interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
	Recent(ctx context.Context, chatID string, n int) ([]domain.HistoryEntry, error)
	Stats(ctx context.Context, chatID string, n int) ([]domain.MovieCount, error)
}

const maxQueryLength = 200

type Server struct {
	resolver ResolverService
	registry *locales.Registry
	history  HistoryService
	logger   *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHistory(history HistoryService) ServerOption {
	return func(s *Server) {
		s.history = history
	}
}

func NewServer(resolver ResolverService, registry *locales.Registry, options ...ServerOption) *Server {
	server := &Server{
		resolver: resolver,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/movies/search", s.handleMovieSearch)
	mux.HandleFunc("/offers", s.handleOffers)
	mux.HandleFunc("/locales", s.handleLocales)
	mux.HandleFunc("/search/health", s.handleSearchHealth)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/stats", s.handleStats)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "offer-service",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMovieSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 200 characters)")
		return
	}

	candidates, err := s.resolver.SearchMovies(r.Context(), query)
	if err != nil {
		s.writeResolveError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []domain.MovieIdentity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"items": candidates,
	})
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	movieID := strings.TrimSpace(r.URL.Query().Get("movieId"))
	if movieID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "movieId is required")
		return
	}

	startedAt := time.Now()
	offers, err := s.resolver.ResolveOffers(r.Context(), movieID)
	if err != nil {
		s.writeResolveError(w, r, err)
		return
	}
	if offers == nil {
		offers = domain.OfferMap{}
	}
	// An empty offer map is a successful "no provider found" outcome, left
	// to the caller to render; only metadata failures are errors.
	writeJSON(w, http.StatusOK, map[string]any{
		"movieId":   movieID,
		"offers":    offers,
		"count":     len(offers),
		"elapsedMs": time.Since(startedAt).Milliseconds(),
	})
}

func (s *Server) handleLocales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locales": s.registry.Profiles(),
	})
}

func (s *Server) handleSearchHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	diagnostics := s.resolver.SearchDiagnostics()
	if diagnostics == nil {
		diagnostics = []domain.SearchBackendDiagnostics{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"regions": diagnostics,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "not_configured", "history is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		chatID := strings.TrimSpace(r.URL.Query().Get("chatId"))
		if chatID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "chatId is required")
			return
		}
		limit, err := parsePositiveInt(r, "limit", 5)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
			return
		}
		entries, err := s.history.Recent(r.Context(), chatID, limit)
		if err != nil {
			s.logger.Error("history read failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal_error", "history unavailable")
			return
		}
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"chatId":  chatID,
			"entries": entries,
		})
	case http.MethodPost:
		var entry domain.HistoryEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid history payload")
			return
		}
		if err := s.history.Record(r.Context(), entry); err != nil {
			s.logger.Error("history write failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "recorded"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "not_configured", "history is not configured")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	chatID := strings.TrimSpace(r.URL.Query().Get("chatId"))
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "chatId is required")
		return
	}
	counts, err := s.history.Stats(r.Context(), chatID, 5)
	if err != nil {
		s.logger.Error("stats read failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "stats unavailable")
		return
	}
	if counts == nil {
		counts = []domain.MovieCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chatId": chatID,
		"movies": counts,
	})
}

// writeResolveError maps core failures to the two user-visible outcomes:
// metadata loss is "service unavailable, retry later"; a cancelled request
// never gets a body the client will read anyway.
func (s *Server) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resolve.ErrMetadataUnavailable):
		s.logger.Warn("metadata unavailable", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "metadata_unavailable", "service unavailable, retry later")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
	default:
		s.logger.Error("resolution failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
