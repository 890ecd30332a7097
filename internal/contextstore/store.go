// Package contextstore implements the claim-check Context Store (C2): an
// in-memory map from requestId to the stashed tool-call body, with
// single-consume semantics and TTL expiry. It follows the same shape as the
// teacher's InMemoryToolCallStore (a RWMutex-guarded map plus a background
// reaper goroutine), adapted from ETag-conditional resource storage to the
// spec's simpler store/fetch-and-consume/expire lifecycle.
package contextstore

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoredContext is the claim-checked body of one in-flight tool call.
type StoredContext struct {
	RequestID string
	TenantID  string
	UserID    string
	Service   string
	Operation string
	Body      map[string]any
	CreatedAt time.Time
}

type entry struct {
	ctx      StoredContext
	consumed bool
}

var (
	storedGauge   = promauto.NewGauge(prometheus.GaugeOpts{Name: "gateway_contextstore_stored_total", Help: "Contexts ever stored."})
	consumedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "gateway_contextstore_consumed_total", Help: "Contexts consumed exactly once."})
)

// Store is the process-wide claim-check singleton. Construct it once at
// startup with NewStore, then launch RunReaper in its own goroutine bound to
// the server's shutdown signal.
type Store struct {
	mu   sync.RWMutex
	data map[string]*entry
	ttl  time.Duration

	stored   int64
	consumed int64
}

// NewStore creates an empty Store with the given TTL. It does not start the
// reaper; the caller launches RunReaper separately.
func NewStore(ttl time.Duration) *Store {
	return &Store{data: map[string]*entry{}, ttl: ttl}
}

// Store inserts ctx. Calling Store twice with the same RequestID is a
// programming error: the caller must always generate a fresh id (spec.md
// §4.2 "overwrite is a programming error").
func (s *Store) Store(ctx StoredContext) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[ctx.RequestID]; exists {
		panic("contextstore: Store called twice for requestId " + ctx.RequestID)
	}
	s.data[ctx.RequestID] = &entry{ctx: ctx}
	s.stored++
	storedGauge.Inc()
	return ctx.RequestID
}

// FetchAndConsume returns the stored context and atomically marks it
// consumed, iff it had not already been consumed. It is linearizable on a
// single key: of any two concurrent callers for the same id, exactly one
// observes ok=true.
func (s *Store) FetchAndConsume(id string) (StoredContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.data[id]
	if !exists || e.consumed {
		return StoredContext{}, false
	}
	e.consumed = true
	s.consumed++
	consumedGauge.Inc()
	return e.ctx, true
}

// Peek returns the stored context without mutating consumed state. It does
// not reveal whether the entry has been consumed.
func (s *Store) Peek(id string) (StoredContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.data[id]
	if !exists {
		return StoredContext{}, false
	}
	return e.ctx, true
}

// Remove unconditionally deletes id; it is idempotent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// CleanupExpired deletes every entry older than the store's TTL. Safe to
// call concurrently with Store/FetchAndConsume/Peek/Remove.
func (s *Store) CleanupExpired() {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.data {
		if e.ctx.CreatedAt.Before(cutoff) {
			delete(s.data, id)
		}
	}
}

// Count returns the number of contexts ever stored.
func (s *Store) Count() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stored
}

// ConsumedCount returns the number of contexts consumed exactly once.
func (s *Store) ConsumedCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumed
}

// RunReaper periodically calls CleanupExpired until done is closed. Callers
// typically launch this with `go store.RunReaper(done, time.Minute)` right
// after NewStore, matching spec.md §4.2's "suggested every 60s" cadence.
func (s *Store) RunReaper(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}
