package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/metrics"
)

const (
	historyKeyPrefix  = "offers:history:"
	statsKeyPrefix    = "offers:stats:"
	defaultLimit      = 50
	defaultStatsLimit = 5
)

// Service records answered queries per chat and serves the recent history
// and the most-queried movies. Redis-backed when a client is supplied,
// otherwise an in-process store keeps tests and redis-less deployments
// working.
type Service struct {
	redis *redis.Client
	limit int

	mu      sync.Mutex
	entries map[string][]domain.HistoryEntry
	counts  map[string]map[string]int64
}

type Option func(*Service)

func WithRedis(client *redis.Client) Option {
	return func(s *Service) {
		s.redis = client
	}
}

// WithLimit caps how many entries are retained per chat.
func WithLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func NewService(opts ...Option) *Service {
	svc := &Service{
		limit:   defaultLimit,
		entries: make(map[string][]domain.HistoryEntry),
		counts:  make(map[string]map[string]int64),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Record stores one answered query and bumps the movie's per-chat counter.
func (s *Service) Record(ctx context.Context, entry domain.HistoryEntry) error {
	entry.ChatID = strings.TrimSpace(entry.ChatID)
	entry.Query = strings.TrimSpace(entry.Query)
	entry.MovieTitle = strings.TrimSpace(entry.MovieTitle)
	if entry.ChatID == "" {
		return fmt.Errorf("chat id is required")
	}
	if entry.Query == "" {
		return fmt.Errorf("query is required")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	if s.redis == nil {
		s.recordMemory(entry)
		metrics.HistoryWritesTotal.WithLabelValues("memory").Inc()
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	historyKey := historyKeyPrefix + entry.ChatID
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, int64(s.limit-1))
	if entry.MovieTitle != "" {
		pipe.ZIncrBy(ctx, statsKeyPrefix+entry.ChatID, 1, entry.MovieTitle)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	metrics.HistoryWritesTotal.WithLabelValues("redis").Inc()
	return nil
}

// Recent returns the last n entries for a chat, newest first.
func (s *Service) Recent(ctx context.Context, chatID string, n int) ([]domain.HistoryEntry, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("chat id is required")
	}
	if n <= 0 || n > s.limit {
		n = s.limit
	}

	if s.redis == nil {
		return s.recentMemory(chatID, n), nil
	}

	raw, err := s.redis.LRange(ctx, historyKeyPrefix+chatID, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stats returns the chat's most-queried movies, highest count first.
func (s *Service) Stats(ctx context.Context, chatID string, n int) ([]domain.MovieCount, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("chat id is required")
	}
	if n <= 0 {
		n = defaultStatsLimit
	}

	if s.redis == nil {
		return s.statsMemory(chatID, n), nil
	}

	ranked, err := s.redis.ZRevRangeWithScores(ctx, statsKeyPrefix+chatID, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	counts := make([]domain.MovieCount, 0, len(ranked))
	for _, member := range ranked {
		title, ok := member.Member.(string)
		if !ok {
			continue
		}
		counts = append(counts, domain.MovieCount{Title: title, Count: int64(member.Score)})
	}
	return counts, nil
}

func (s *Service) recordMemory(entry domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]domain.HistoryEntry{entry}, s.entries[entry.ChatID]...)
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	s.entries[entry.ChatID] = entries

	if entry.MovieTitle != "" {
		counts := s.counts[entry.ChatID]
		if counts == nil {
			counts = make(map[string]int64)
			s.counts[entry.ChatID] = counts
		}
		counts[entry.MovieTitle]++
	}
}

func (s *Service) recentMemory(chatID string, n int) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries[chatID]
	if len(entries) > n {
		entries = entries[:n]
	}
	return append([]domain.HistoryEntry(nil), entries...)
}

func (s *Service) statsMemory(chatID string, n int) []domain.MovieCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make([]domain.MovieCount, 0, len(s.counts[chatID]))
	for title, count := range s.counts[chatID] {
		counts = append(counts, domain.MovieCount{Title: title, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Title < counts[j].Title
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
