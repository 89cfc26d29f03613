package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

// CacheRepository abstracts the batched key-value store holding statistic entries.
type CacheRepository interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
}

// CacheServiceConfig tunes the statistics cache.
type CacheServiceConfig struct {
	Enabled      bool
	Singleflight bool
	// Retention is the store-side TTL of an entry. Freshness is decided by the caller's threshold.
	Retention time.Duration
	// RefreshTimeout bounds a shared refresh, which does not inherit caller cancellation.
	RefreshTimeout time.Duration
	Prefixes       map[models.StatKind]string
}

var defaultKeyPrefixes = map[models.StatKind]string{
	models.StatDueSoon:       "studentid_duesoon:",
	models.StatSummary:       "studentid_summary:",
	models.StatSummaryByType: "studentid_summarybytype:",
}

// CacheService mediates every read and write of per-user statistic entries.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
	cfg     CacheServiceConfig
	flights singleflight.Group
	now     func() time.Time
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, logger *zap.Logger, cfg CacheServiceConfig) *CacheService {
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	prefixes := make(map[models.StatKind]string, len(defaultKeyPrefixes))
	for kind, prefix := range defaultKeyPrefixes {
		prefixes[kind] = prefix
	}
	for kind, prefix := range cfg.Prefixes {
		if prefix != "" {
			prefixes[kind] = prefix
		}
	}
	cfg.Prefixes = prefixes
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.repo != nil
}

// StorageKey renders the store key for an entry.
func (s *CacheService) StorageKey(key models.CacheKey) string {
	return key.StorageKey(s.cfg.Prefixes[key.Kind])
}

// GetOrRefresh returns the cached payload for key when it is younger than staleAfter, otherwise
// it runs compute, stores the result stamped with the current time and returns it. The boolean
// reports a fresh cache hit. A compute failure is returned as is and nothing is written. Store
// failures never fail the call: a read error is a miss and a write error is only logged.
func GetOrRefresh[T any](ctx context.Context, s *CacheService, key models.CacheKey, staleAfter time.Duration, compute func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if strings.TrimSpace(key.UserID) == "" {
		return zero, false, appErrors.Clone(appErrors.ErrValidation, "userId is required")
	}
	if !s.Enabled() {
		value, err := compute(ctx)
		return value, false, err
	}

	storageKey := s.StorageKey(key)
	if cached, hit := lookupEntry[T](ctx, s, key, storageKey, staleAfter); hit {
		return cached, true, nil
	}

	if !s.cfg.Singleflight {
		value, err := refreshEntry(ctx, s, key, storageKey, compute)
		return value, false, err
	}

	// The shared refresh outlives any single caller; each caller still honours its own context.
	flightCtx := context.WithoutCancel(ctx)
	flight := s.flights.DoChan(storageKey, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(flightCtx, s.cfg.RefreshTimeout)
		defer cancel()
		return refreshEntry(refreshCtx, s, key, storageKey, compute)
	})
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case result := <-flight:
		if result.Err != nil {
			return zero, false, result.Err
		}
		value, _ := result.Val.(T)
		return value, false, nil
	}
}

func lookupEntry[T any](ctx context.Context, s *CacheService, key models.CacheKey, storageKey string, staleAfter time.Duration) (T, bool) {
	var zero T
	start := time.Now()
	values, err := s.repo.GetMany(ctx, []string{storageKey})
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		s.metrics.RecordStatRefresh(key.Kind, "unavailable")
		s.logger.Warn("stats cache read failed, computing fresh", zap.String("key", storageKey), zap.Error(err))
		return zero, false
	}

	raw, ok := values[storageKey]
	if !ok {
		s.metrics.RecordCacheOperation(false, duration)
		s.metrics.RecordStatRefresh(key.Kind, "miss")
		return zero, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || !entry.Matches(key) {
		s.metrics.RecordCacheOperation(false, duration)
		s.metrics.RecordStatRefresh(key.Kind, "invalid")
		s.logger.Warn("stats cache entry rejected", zap.String("key", storageKey), zap.String("kind", string(entry.Kind)), zap.Error(err))
		return zero, false
	}

	if entry.Stale(s.now(), staleAfter) {
		s.metrics.RecordCacheOperation(false, duration)
		s.metrics.RecordStatRefresh(key.Kind, "stale")
		return zero, false
	}

	var value T
	if err := json.Unmarshal(entry.Payload, &value); err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		s.metrics.RecordStatRefresh(key.Kind, "invalid")
		s.logger.Warn("stats cache payload undecodable", zap.String("key", storageKey), zap.Error(err))
		return zero, false
	}
	s.metrics.RecordCacheOperation(true, duration)
	return value, true
}

func refreshEntry[T any](ctx context.Context, s *CacheService, key models.CacheKey, storageKey string, compute func(context.Context) (T, error)) (T, error) {
	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	s.writeEntry(ctx, key, storageKey, value)
	return value, nil
}

func (s *CacheService) writeEntry(ctx context.Context, key models.CacheKey, storageKey string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("stats cache payload encode failed", zap.String("key", storageKey), zap.Error(err))
		return
	}
	raw, err := json.Marshal(models.CacheEntry{
		UserID:     key.UserID,
		Kind:       key.Kind,
		Qualifier:  key.Qualifier,
		Payload:    payload,
		ComputedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("stats cache entry encode failed", zap.String("key", storageKey), zap.Error(err))
		return
	}

	start := time.Now()
	err = s.repo.SetMany(ctx, map[string][]byte{storageKey: raw}, s.cfg.Retention)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", storageKey), zap.Error(err))
	}
}
