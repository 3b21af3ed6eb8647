package resolve

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/metrics"
)

// backendHealth tracks the web search backend per region. It is
// bookkeeping for diagnostics and metrics only: the resolution walk never
// consults it, so the final offer map stays independent of past failures.
type backendHealth struct {
	lastQuery     string
	lastError     string
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastLatency   time.Duration
	lastTimeout   bool
	totalRequests int64
	totalFailures int64
	timeoutCount  int64
}

func (s *Service) recordSearchResult(region, query string, err error, latency time.Duration, now time.Time) {
	key := strings.ToLower(strings.TrimSpace(region))
	if key == "" {
		return
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[key]
	if state == nil {
		state = &backendHealth{}
		s.health[key] = state
	}
	state.totalRequests++
	state.lastQuery = strings.TrimSpace(query)
	if latency > 0 {
		state.lastLatency = latency
		metrics.SearchRequestDuration.WithLabelValues(key).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.SearchRequestsTotal.WithLabelValues(key, "ok").Inc()
		return
	}

	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.SearchRequestsTotal.WithLabelValues(key, status).Inc()
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// SearchDiagnostics returns the per-region view of the web search backend,
// sorted by region.
func (s *Service) SearchDiagnostics() []domain.SearchBackendDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.SearchBackendDiagnostics, 0, len(s.health))
	for region, state := range s.health {
		item := domain.SearchBackendDiagnostics{
			Region:        region,
			LastQuery:     state.lastQuery,
			LastError:     state.lastError,
			LastLatencyMS: state.lastLatency.Milliseconds(),
			LastTimeout:   state.lastTimeout,
			TotalRequests: state.totalRequests,
			TotalFailures: state.totalFailures,
			TimeoutCount:  state.timeoutCount,
		}
		if !state.lastSuccessAt.IsZero() {
			lastSuccessAt := state.lastSuccessAt
			item.LastSuccessAt = &lastSuccessAt
		}
		if !state.lastFailureAt.IsZero() {
			lastFailureAt := state.lastFailureAt
			item.LastFailureAt = &lastFailureAt
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Region < items[j].Region
	})
	return items
}
