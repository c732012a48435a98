package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Cache key prefixes. Keys are further namespaced by CacheService.
const (
	cacheKeyAudience  = "audience:"
	cacheKeyDashboard = "dashboard:"
	cacheKeyAnalytics = "analytics:"
)

// CacheService is the read-through cache shared by the dashboard, analytics and notification audience lookups.
// A nil *CacheService or one without a repository behaves as an always-miss cache.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	logger     *zap.Logger
	namespace  string
	defaultTTL time.Duration
}

// CacheOption configures a CacheService.
type CacheOption func(*CacheService)

// WithCacheNamespace prefixes every key, so several deployments can share one Redis database.
func WithCacheNamespace(namespace string) CacheOption {
	return func(s *CacheService) {
		s.namespace = namespace
	}
}

// WithDefaultTTL is used by Set calls passing a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(s *CacheService) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// NewCacheService constructs a cache service. repo may be nil when Redis is disabled.
func NewCacheService(repo CacheRepository, metrics *MetricsService, logger *zap.Logger, opts ...CacheOption) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CacheService{repo: repo, metrics: metrics, logger: logger, defaultTTL: time.Minute}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Enabled reports whether a backing store is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Get loads key into dest and reports a hit. Misses are not errors.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.namespace+key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key for ttl.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.namespace+key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every key matching pattern within the namespace.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	err := s.repo.DeleteByPattern(ctx, s.namespace+pattern)
	if err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return err
}
