// Package cache provides a key/value store with TTL over a durable Redis
// backend with a transparent in-process fallback.
//
// Every operation first consults the service's backend state. While the
// primary is active, a backend failure demotes the service to the in-process
// store for the remainder of the process lifetime and the failed operation is
// re-issued against the fallback, so callers never observe the outage. The
// demotion is one-way: there is no automatic recovery, trading backend
// freshness for never paying repeated connection timeouts against a dead
// Redis. A restart re-arms the primary.
//
// The backend state is owned by the Service instance, not a package global,
// so tests get isolation from fresh instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vistaar-ai/vistaar/internal/log"
)

// ErrMiss is returned by backends for an absent or expired key.
// Service methods translate it into a (false, nil) miss for callers.
var ErrMiss = errors.New("cache miss")

// backend is the operation set the service needs from a store.
// Implemented by the Redis client wrapper and the in-process store.
type backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, prefix string) error
}

// Config contains the cache service configuration.
type Config struct {
	// Addr is the Redis backend address (host:port).
	Addr string
	// DB is the Redis logical database index.
	DB int

	// KeyPrefix is prepended to every key so deployments sharing a backend
	// cannot collide. Namespace adds an optional second segment.
	KeyPrefix string
	Namespace string

	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL time.Duration

	DialTimeout   time.Duration
	SocketTimeout time.Duration

	// MemoryOnly constructs the service already demoted, skipping the
	// primary entirely. Used when the Redis host is a known placeholder in
	// a production environment: attempting the connection would fail on
	// every cold start.
	MemoryOnly bool

	Logger log.Logger
}

// Service is the resilient cache. Safe for concurrent use; the backend
// state flag is written idempotently, so the demotion race is benign.
type Service struct {
	primary    backend
	fallback   *memoryStore
	demoted    atomic.Bool
	prefix     string
	defaultTTL time.Duration
	logger     log.Logger
}

// New creates the cache service. When cfg.MemoryOnly is set the primary is
// never constructed and all operations go to the in-process store.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	prefix := cfg.KeyPrefix
	if cfg.Namespace != "" {
		prefix += cfg.Namespace + ":"
	}

	s := &Service{
		fallback:   newMemoryStore(),
		prefix:     prefix,
		defaultTTL: ttl,
		logger:     logger,
	}

	if cfg.MemoryOnly {
		s.demoted.Store(true)
		logger.Info("cache configured with in-memory storage", "prefix", prefix)
		return s
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.SocketTimeout,
		WriteTimeout: cfg.SocketTimeout,
	})
	s.primary = &redisBackend{client: client}
	logger.Info("cache configured with Redis backend",
		"addr", cfg.Addr, "db", cfg.DB, "prefix", prefix)
	return s
}

// FallbackActive reports whether the service has demoted itself to the
// in-process store.
func (s *Service) FallbackActive() bool {
	return s.primary == nil || s.demoted.Load()
}

// Get retrieves a value into dest (a JSON-unmarshal target). The boolean
// reports a hit; an expired or absent key is a miss, never a stale value.
func (s *Service) Get(ctx context.Context, key string, dest any) (bool, error) {
	k := s.buildKey(key)

	if !s.FallbackActive() {
		data, err := s.primary.Get(ctx, k)
		switch {
		case err == nil:
			return true, unmarshal(data, dest)
		case errors.Is(err, ErrMiss):
			return false, nil
		default:
			if !s.demote(ctx, "get", err) {
				return false, err
			}
		}
	}

	data, err := s.fallback.Get(ctx, k)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, unmarshal(data, dest)
}

// Set stores value under key. A non-positive ttl uses the configured
// default. Set always overwrites: last writer wins.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	k := s.buildKey(key)

	if !s.FallbackActive() {
		err := s.primary.Set(ctx, k, data, ttl)
		if err == nil {
			return nil
		}
		if !s.demote(ctx, "set", err) {
			return err
		}
	}
	return s.fallback.Set(ctx, k, data, ttl)
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	k := s.buildKey(key)

	if !s.FallbackActive() {
		err := s.primary.Delete(ctx, k)
		if err == nil {
			return nil
		}
		if !s.demote(ctx, "delete", err) {
			return err
		}
	}
	return s.fallback.Delete(ctx, k)
}

// Exists reports whether key holds an unexpired value.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	k := s.buildKey(key)

	if !s.FallbackActive() {
		ok, err := s.primary.Exists(ctx, k)
		if err == nil {
			return ok, nil
		}
		if !s.demote(ctx, "exists", err) {
			return false, err
		}
	}
	return s.fallback.Exists(ctx, k)
}

// Clear removes every key under this service's prefix.
func (s *Service) Clear(ctx context.Context) error {
	if !s.FallbackActive() {
		err := s.primary.Clear(ctx, s.prefix)
		if err == nil {
			return nil
		}
		if !s.demote(ctx, "clear", err) {
			return err
		}
	}
	return s.fallback.Clear(ctx, s.prefix)
}

// Ping verifies the active backend is reachable. A primary failure demotes
// as usual, so Ping never fails once the fallback is active.
func (s *Service) Ping(ctx context.Context) error {
	if s.FallbackActive() {
		return nil
	}
	if err := s.primary.Set(ctx, s.buildKey("health_check"), []byte(`"ok"`), time.Minute); err != nil {
		if !s.demote(ctx, "ping", err) {
			return err
		}
	}
	return nil
}

func (s *Service) buildKey(key string) string {
	return s.prefix + key
}

// demote flips the service to fallback-active and reports true when the
// failure was a backend problem. Caller-induced cancellation does not
// demote: the backend may be perfectly healthy.
func (s *Service) demote(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return false
	}
	if s.demoted.CompareAndSwap(false, true) {
		s.logger.Warn("redis backend unavailable, using in-memory cache for the rest of the process lifetime",
			"op", op, "error", err)
	}
	return true
}

func unmarshal(data []byte, dest any) error {
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cache value: %w", err)
	}
	return nil
}
