package workflow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Registry
// =============================================================================

// Session is one registered edit session: a Workflow plus the bookkeeping a
// stateless transport needs to find it again.
type Session struct {
	ID       string
	ActorID  string
	Workflow *Workflow

	mu       sync.Mutex
	lastSeen time.Time
	redirect string
}

// Redirect returns the path the workflow navigated to, if it has.
func (s *Session) Redirect() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Store    ProductStore
	Identity IdentityProvider
	Logger   *slog.Logger

	// Now is the clock used for idle tracking. Defaults to time.Now.
	Now func() time.Time
}

// Registry holds the live edit sessions of a server process.
type Registry struct {
	store    ProductStore
	identity IdentityProvider
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Identity == nil {
		cfg.Identity = RequestIdentity()
	}
	return &Registry{
		store:    cfg.Store,
		identity: cfg.Identity,
		logger:   cfg.Logger,
		now:      cfg.Now,
		sessions: make(map[string]*Session),
	}
}

// Open registers a new session for actorID with a fresh Workflow.
// Navigation away from the workflow removes the session.
func (r *Registry) Open(actorID string) *Session {
	sess := &Session{
		ID:       uuid.New().String(),
		ActorID:  actorID,
		lastSeen: r.now(),
	}
	sess.Workflow = New(Config{
		Store:    r.store,
		Identity: r.identity,
		Logger:   r.logger.With("session_id", sess.ID),
		Navigator: NavigatorFunc(func(path string) {
			sess.mu.Lock()
			sess.redirect = path
			sess.mu.Unlock()
			r.Remove(sess.ID)
		}),
	})

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

// Get looks up a session opened by actorID and marks it as recently used.
// A session belonging to someone else is reported as absent.
func (r *Registry) Get(id, actorID string) (*Session, bool) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok || sess.ActorID != actorID {
		return nil, false
	}

	sess.mu.Lock()
	sess.lastSeen = r.now()
	sess.mu.Unlock()
	return sess, true
}

// Remove closes and forgets a session. Reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Workflow.Close()
	}
	return ok
}

// ReapIdle removes sessions unused for longer than maxIdle and returns how many.
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*Session
	for id, sess := range r.sessions {
		sess.mu.Lock()
		stale := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			idle = append(idle, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range idle {
		sess.Workflow.Close()
	}
	return len(idle)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Workflow.Close()
	}
}
