package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/mapnav/backend/internal/metrics"
	"github.com/vanshika/mapnav/backend/internal/selection"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session cap is reached.
	ErrTooManySessions = errors.New("too many open sessions")
)

// SessionView is a read-only copy of one session.
type SessionView struct {
	ID        string
	Selection selection.Snapshot
	// Version is the dataset snapshot the session currently refers to.
	Version   uint64
	CreatedAt time.Time
	LastSeen  time.Time
}

type session struct {
	id        string
	mu        sync.Mutex
	machine   *selection.Machine
	version   uint64
	createdAt time.Time
	lastSeen  time.Time
}

// SessionConfig bounds the manager.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// SessionManager keeps one selection machine per interactive client. Calls
// on the same session are serialized; different sessions proceed in parallel.
type SessionManager struct {
	maps    *MapService
	cfg     SessionConfig
	logger  *slog.Logger
	metrics *metrics.Registry
	nowFn   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionManager returns an empty manager answering queries through maps.
func NewSessionManager(maps *MapService, cfg SessionConfig, logger *slog.Logger, reg *metrics.Registry) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &SessionManager{
		maps:     maps,
		cfg:      cfg,
		logger:   logger.With("component", "sessions"),
		metrics:  reg,
		nowFn:    time.Now,
		sessions: make(map[string]*session),
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (m *SessionManager) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		m.nowFn = nowFn
	}
}

// Create opens an Idle session bound to the current dataset snapshot.
func (m *SessionManager) Create(context.Context) (SessionView, error) {
	now := m.nowFn()
	sess := &session{
		id:        uuid.NewString(),
		machine:   selection.New(nil),
		createdAt: now,
		lastSeen:  now,
	}
	if snap := m.maps.Snapshot(); snap != nil {
		sess.version = snap.Version
	}

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return SessionView{}, ErrTooManySessions
	}
	m.sessions[sess.id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	m.logger.Debug("session created", "session", sess.id)
	return sess.view(), nil
}

// Select feeds a vertex pick into the session's machine. Routing failures
// other than a missing route or unknown vertex leave the session unchanged
// and are returned as errors.
func (m *SessionManager) Select(ctx context.Context, id string, vertexID int64) (SessionView, []selection.Event, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return SessionView{}, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := m.maps.Snapshot()
	events := m.syncVersion(sess, snap)
	sess.machine.SetFinder(m.maps.finder(ctx, snap))

	selected, err := sess.machine.Select(vertexID)
	sess.lastSeen = m.nowFn()
	events = append(events, selected...)
	for _, ev := range events {
		m.metrics.RecordSelectionEvent(string(ev.Kind))
	}
	return sess.view(), events, err
}

// Get returns the session state, applying a pending dataset reset first.
func (m *SessionManager) Get(_ context.Context, id string) (SessionView, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	for _, ev := range m.syncVersion(sess, m.maps.Snapshot()) {
		m.metrics.RecordSelectionEvent(string(ev.Kind))
	}
	sess.lastSeen = m.nowFn()
	return sess.view(), nil
}

// Reset clears both endpoints of a session.
func (m *SessionManager) Reset(_ context.Context, id string) (SessionView, []selection.Event, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return SessionView{}, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	events := m.syncVersion(sess, m.maps.Snapshot())
	events = append(events, sess.machine.Reset()...)
	for _, ev := range events {
		m.metrics.RecordSelectionEvent(string(ev.Kind))
	}
	sess.lastSeen = m.nowFn()
	return sess.view(), events, nil
}

// Delete drops a session.
func (m *SessionManager) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(count)
	return nil
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were dropped. A zero TTL keeps sessions forever.
func (m *SessionManager) Sweep(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	removed := 0
	for id, sess := range m.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle > m.cfg.IdleTTL {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.metrics.SetActiveSessions(count)
		m.logger.Info("expired idle sessions", "removed", removed, "remaining", count)
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.nowFn())
		}
	}
}

func (m *SessionManager) lookup(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// syncVersion resets a session whose selection was made against an older
// dataset. Caller holds sess.mu.
func (m *SessionManager) syncVersion(sess *session, snap *Snapshot) []selection.Event {
	if snap == nil || snap.Version == sess.version {
		return nil
	}
	sess.version = snap.Version
	events := sess.machine.Reset()
	if len(events) > 0 {
		m.logger.Debug("session reset after dataset reload", "session", sess.id, "version", snap.Version)
	}
	return events
}

func (s *session) view() SessionView {
	return SessionView{
		ID:        s.id,
		Selection: s.machine.Snapshot(),
		Version:   s.version,
		CreatedAt: s.createdAt,
		LastSeen:  s.lastSeen,
	}
}
