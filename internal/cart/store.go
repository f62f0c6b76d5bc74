package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps one controller per cart session. Carts are ephemeral by design:
// they live in memory for the duration of a page session and are evicted after
// the TTL, never persisted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	refresh  Refresh
	debounce time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type session struct {
	controller *Controller
	touchedAt  time.Time
}

// StoreConfig configures the session store.
type StoreConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Refresh       Refresh
	Debounce      time.Duration
	Now           func() time.Time
}

// NewStore constructs a session store and starts its eviction sweep.
func NewStore(cfg StoreConfig) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		refresh:  cfg.Refresh,
		debounce: cfg.Debounce,
		now:      now,
		done:     make(chan struct{}),
	}
	go s.sweep(sweep)
	return s
}

// Create registers a fresh cart session and returns its identifier.
func (s *Store) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := NewController(s.refresh, s.debounce)
	s.mu.Lock()
	s.sessions[id] = &session{controller: ctrl, touchedAt: s.now()}
	s.mu.Unlock()
	return id, ctrl
}

// Get returns the controller for the cart id, refreshing its TTL.
func (s *Store) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.touchedAt = s.now()
	return sess.controller, nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the eviction sweep and releases all sessions.
func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.controller.Close()
		delete(s.sessions, id)
	}
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := s.now().Add(-s.ttl)
			s.mu.Lock()
			for id, sess := range s.sessions {
				if sess.touchedAt.Before(cutoff) {
					sess.controller.Close()
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
