// Package cache layers TTL semantics and a JSON envelope over a kvstore.Store.
//
// Every entry is stored as {"value": <json>, "expiresAt": <unix ms>}; a
// missing expiresAt never expires. Reads of expired entries evict them.
// No method returns an error: storage and decoding failures are logged and
// reported to callers as misses.
package cache

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eva-app/evaclient/pkg/kvstore"
	"github.com/eva-app/evaclient/pkg/logging"
	"github.com/eva-app/evaclient/pkg/metrics"
	"github.com/eva-app/evaclient/pkg/models"
)

// entry is the stored envelope.
type entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

// Manager wraps a Store with TTL handling.
type Manager struct {
	store  kvstore.Store
	log    *zap.Logger
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for absorbed failures.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = logging.OrNop(log) }
}

// New creates a Manager over store.
func New(store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores value under key. A ttl <= 0 stores the value without expiry.
func (m *Manager) Set(key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.log.Error("cache set: encode value", zap.String("key", key), zap.Error(err))
		return
	}

	e := entry{Value: raw}
	if ttl > 0 {
		exp := m.now().Add(ttl).UnixMilli()
		e.ExpiresAt = &exp
	}

	data, err := json.Marshal(e)
	if err != nil {
		m.log.Error("cache set: encode entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := m.store.Set(key, string(data)); err != nil {
		m.log.Error("cache set: store write", zap.String("key", key), zap.Error(err))
	}
}

// Get decodes the value stored under key into dst and reports whether it
// was found. dst is left untouched on a miss.
func (m *Manager) Get(key string, dst any) bool {
	raw, ok := m.lookup(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.log.Warn("cache get: value does not fit destination", zap.String("key", key), zap.Error(err))
		m.miss("corrupt")
		return false
	}
	m.hit()
	return true
}

// GetRaw returns the stored JSON value under key.
func (m *Manager) GetRaw(key string) (json.RawMessage, bool) {
	raw, ok := m.lookup(key)
	if ok {
		m.hit()
	}
	return raw, ok
}

func (m *Manager) lookup(key string) (json.RawMessage, bool) {
	data, ok, err := m.store.Get(key)
	if err != nil {
		m.log.Error("cache get: store read", zap.String("key", key), zap.Error(err))
		m.miss("miss")
		return nil, false
	}
	if !ok || data == "" {
		m.miss("miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil || len(e.Value) == 0 {
		m.log.Warn("cache get: malformed entry", zap.String("key", key), zap.Error(err))
		m.miss("corrupt")
		return nil, false
	}

	if e.ExpiresAt != nil && m.now().UnixMilli() > *e.ExpiresAt {
		m.Remove(key)
		m.miss("expired")
		return nil, false
	}

	return e.Value, true
}

// Remove deletes key. Missing keys are ignored.
func (m *Manager) Remove(key string) {
	if err := m.store.Remove(key); err != nil {
		m.log.Error("cache remove: store delete", zap.String("key", key), zap.Error(err))
	}
}

// Clear deletes every key in the underlying store.
func (m *Manager) Clear() {
	if err := m.store.Clear(); err != nil {
		m.log.Error("cache clear: store reset", zap.Error(err))
	}
}

// Stats returns hit and miss counters. Entries is filled in when the store
// can count its keys.
func (m *Manager) Stats() models.CacheStats {
	stats := models.CacheStats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}
	switch s := m.store.(type) {
	case interface{ Len() (int64, error) }:
		if n, err := s.Len(); err == nil {
			stats.Entries = n
		}
	case interface{ Len() int }:
		stats.Entries = int64(s.Len())
	}
	return stats
}

func (m *Manager) hit() {
	m.hits.Add(1)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Manager) miss(result string) {
	m.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(result).Inc()
}
