package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/locales"
	"cinemabot/offerservice/internal/metrics"
)

// ErrMetadataUnavailable is the only failure a resolution call surfaces:
// the metadata service could not produce canonical, translation or provider
// data at all. Everything downstream degrades into the result shape instead.
var ErrMetadataUnavailable = errors.New("movie metadata unavailable")

const (
	// defaultMaxResults is the top-K cutoff for one web search attempt.
	defaultMaxResults = 6
	// defaultWorkers caps simultaneous outbound searches across locales to
	// respect third-party rate limits.
	defaultWorkers = 3
	maxCandidates  = 3
)

// MetadataClient supplies title search, canonical data, translations and
// tiered provider lists for a movie.
type MetadataClient interface {
	SearchMovies(ctx context.Context, query string) ([]domain.MovieIdentity, error)
	MovieByID(ctx context.Context, id string) (domain.MovieIdentity, error)
	Translations(ctx context.Context, id string) (map[string]string, error)
	WatchProviders(ctx context.Context, id string) (map[string]domain.TieredProviders, error)
}

// SearchClient executes one regional text search and returns results in the
// backend's own relevance order.
type SearchClient interface {
	Search(ctx context.Context, query, region string, maxResults int) ([]domain.WebResult, error)
}

type Service struct {
	metadata   MetadataClient
	websearch  SearchClient
	registry   *locales.Registry
	logger     *slog.Logger
	maxResults int
	workers    int64
	limiter    *rate.Limiter
	retry      RetryConfig
	healthMu   sync.Mutex
	health     map[string]*backendHealth
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxResults(maxResults int) ServiceOption {
	return func(s *Service) {
		if maxResults > 0 {
			s.maxResults = maxResults
		}
	}
}

func WithWorkers(workers int) ServiceOption {
	return func(s *Service) {
		if workers > 0 {
			s.workers = int64(workers)
		}
	}
}

// WithSearchRateLimit bounds outbound searches to rps with the given burst.
// Zero rps leaves searches unlimited.
func WithSearchRateLimit(rps float64, burst int) ServiceOption {
	return func(s *Service) {
		if rps > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry sets the per-attempt retry budget. The default is a single
// attempt: a failed search already degrades to "no match for this provider".
func WithRetry(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		if cfg.MaxAttempts > 0 {
			s.retry = cfg
		}
	}
}

func NewService(metadata MetadataClient, websearch SearchClient, registry *locales.Registry, opts ...ServiceOption) *Service {
	svc := &Service{
		metadata:   metadata,
		websearch:  websearch,
		registry:   registry,
		logger:     slog.Default(),
		maxResults: defaultMaxResults,
		workers:    defaultWorkers,
		retry:      NoRetry(),
		health:     make(map[string]*backendHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SearchMovies returns up to three ranked candidates for a free-text query,
// preserving the metadata service's own order.
func (s *Service) SearchMovies(ctx context.Context, query string) ([]domain.MovieIdentity, error) {
	candidates, err := s.metadata.SearchMovies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}

// ResolveOffers walks every configured locale and returns the first
// trustworthy watch link per locale. Locales run concurrently behind the
// worker cap; within one locale the tier/provider walk is strictly
// sequential so the first validated hit short-circuits the rest. The result
// depends only on the per-locale iteration order, never on which network
// call finishes first.
func (s *Service) ResolveOffers(ctx context.Context, movieID string) (domain.OfferMap, error) {
	startedAt := time.Now()

	identity, err := s.metadata.MovieByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	translations, err := s.metadata.Translations(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	providersByLocale, err := s.metadata.WatchProviders(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}

	titles := ResolveTitles(identity, translations, s.registry)
	profiles := s.registry.Profiles()

	// Fan-out/fan-in: each locale writes only its own slot, so no shared
	// accumulation and no ordering dependence on the schedule.
	found := make([]*domain.Offer, len(profiles))
	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	for i, profile := range profiles {
		wg.Add(1)
		go func(index int, profile locales.Profile) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			found[index] = s.resolveLocale(ctx, profile, providersByLocale[profile.Code], titles[profile.Code])
		}(i, profile)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offers := make(domain.OfferMap, len(profiles))
	for i, profile := range profiles {
		if found[i] != nil {
			offers[profile.Code] = *found[i]
		}
	}

	metrics.ResolutionDuration.Observe(time.Since(startedAt).Seconds())
	s.logger.Info("offers resolved",
		slog.String("movieId", identity.ID),
		slog.String("title", identity.Title),
		slog.Int("locales", len(profiles)),
		slog.Int("offers", len(offers)),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)
	return offers, nil
}

// resolveLocale walks the locale's tiers in fixed priority order and returns
// the first validated offer, or nil when the locale has none.
func (s *Service) resolveLocale(ctx context.Context, profile locales.Profile, tiers domain.TieredProviders, title string) *domain.Offer {
	if tiers.Empty() {
		s.logger.Debug("no provider data for locale", slog.String("locale", profile.Code))
		return nil
	}

	for _, tier := range domain.TierOrder() {
		for _, provider := range tiers.ForTier(tier) {
			if profile.Ignores(provider) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if offer := s.attemptProvider(ctx, profile, tier, provider, title); offer != nil {
				return offer
			}
		}
	}
	return nil
}

// attemptProvider issues one search for one provider and validates the
// results in backend order. A transport failure is a non-match, never an
// abort: the locale walk continues with the next provider.
func (s *Service) attemptProvider(ctx context.Context, profile locales.Profile, tier domain.OfferTier, provider, title string) *domain.Offer {
	query := BuildQuery(profile, title, provider)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	startedAt := time.Now()
	var results []domain.WebResult
	searchErr := retryWithBackoff(ctx, s.retry, func() error {
		var err error
		results, err = s.websearch.Search(ctx, query, profile.SearchRegion, s.maxResults)
		return err
	})
	s.recordSearchResult(profile.SearchRegion, query, searchErr, time.Since(startedAt), time.Now())

	if searchErr != nil {
		s.logger.Warn("web search attempt failed",
			slog.String("locale", profile.Code),
			slog.String("provider", provider),
			slog.String("tier", string(tier)),
			slog.String("error", searchErr.Error()),
		)
		return nil
	}

	for _, result := range results {
		if IsValidOffer(result, profile, provider) {
			metrics.OffersResolvedTotal.WithLabelValues(profile.Code, string(tier)).Inc()
			s.logger.Debug("offer validated",
				slog.String("locale", profile.Code),
				slog.String("provider", provider),
				slog.String("url", result.URL),
			)
			return &domain.Offer{URL: result.URL, Provider: provider, Tier: tier}
		}
	}
	return nil
}
