// Package workers contains background workers for the showroom server.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleReaper removes sessions that have not been touched for a while.
// *workflow.Registry satisfies it.
type IdleReaper interface {
	ReapIdle(maxIdle time.Duration) int
	Len() int
}

// SessionReaperConfig configures the session reaper worker.
type SessionReaperConfig struct {
	// Interval is the time between reap cycles.
	// Default: 1 minute.
	Interval time.Duration

	// IdleTimeout is how long a session may go unused before it is closed.
	// Default: 30 minutes.
	IdleTimeout time.Duration
}

// DefaultSessionReaperConfig returns the default configuration.
func DefaultSessionReaperConfig() SessionReaperConfig {
	return SessionReaperConfig{
		Interval:    time.Minute,
		IdleTimeout: 30 * time.Minute,
	}
}

// SessionReaper periodically closes abandoned edit sessions so their
// late store results are dropped and memory is released.
type SessionReaper struct {
	sessions IdleReaper
	config   SessionReaperConfig
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionReaper creates a new session reaper worker.
func NewSessionReaper(sessions IdleReaper, config SessionReaperConfig, logger *slog.Logger) *SessionReaper {
	defaults := DefaultSessionReaperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionReaper{
		sessions: sessions,
		config:   config,
		logger:   logger.With("component", "session_reaper"),
	}
}

// Start begins the reaper background goroutine. Calling Start on a running
// reaper is a no-op.
func (r *SessionReaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("session reaper started",
		"interval", r.config.Interval,
		"idle_timeout", r.config.IdleTimeout,
	)
}

// Stop halts the reaper and waits for the current cycle to finish.
func (r *SessionReaper) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.logger.Info("session reaper stopped")
}

func (r *SessionReaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReapNow()
		}
	}
}

// ReapNow runs a single reap cycle and returns the number of sessions closed.
func (r *SessionReaper) ReapNow() int {
	n := r.sessions.ReapIdle(r.config.IdleTimeout)
	if n > 0 {
		r.logger.Info("reaped idle edit sessions", "count", n, "remaining", r.sessions.Len())
	} else {
		r.logger.Debug("no idle edit sessions")
	}
	return n
}
