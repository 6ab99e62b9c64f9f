// Package session keeps one search form per browser session.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirhf/imageSearch/services/search-web/form"
)

// Factory builds the form of a new session.
type Factory func(id string) *form.Form

type Config struct {
	TTL        time.Duration
	GCInterval time.Duration
	Logger     *slog.Logger
}

type entry struct {
	form     *form.Form
	lastSeen time.Time
}

type Registry struct {
	mu       sync.RWMutex
	items    map[string]*entry
	factory  Factory
	ttl      time.Duration
	gcFreq   time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func New(factory Factory, cfg Config) *Registry {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	gc := cfg.GCInterval
	if gc <= 0 {
		gc = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		items:   make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		gcFreq:  gc,
		logger:  logger,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go r.gcLoop()
	return r
}

func (r *Registry) gcLoop() {
	ticker := time.NewTicker(r.gcFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.CleanupExpired(); n > 0 {
				r.logger.Debug("expired sessions removed", "count", n)
			}
		case <-r.stop:
			return
		}
	}
}

// Get returns the live form of id and refreshes its expiry.
func (r *Registry) Get(id string) (*form.Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.form, true
}

// GetOrCreate returns the form of id, or a new session when id is unknown or
// not a session identifier. The returned id is the one to hand back.
func (r *Registry) GetOrCreate(id string) (string, *form.Form, bool) {
	if f, ok := r.Get(id); ok {
		return id, f, false
	}
	newID := uuid.NewString()
	f := r.factory(newID)

	r.mu.Lock()
	r.items[newID] = &entry{form: f, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Debug("session created", "session", newID)
	return newID, f, true
}

// CleanupExpired drops idle sessions. A session with a search in flight is
// kept until it settles.
func (r *Registry) CleanupExpired() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.items {
		if e.lastSeen.Before(cutoff) && !e.form.Snapshot().State.Pending() {
			delete(r.items, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Pending counts sessions with a search in flight.
func (r *Registry) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.items {
		if e.form.Snapshot().State.Pending() {
			n++
		}
	}
	return n
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}
