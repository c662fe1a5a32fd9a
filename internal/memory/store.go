package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anbose/studiodesk/internal/models"
)

const (
	defaultMaxInteractions = 20
	defaultSessionTimeout  = 30 * time.Minute
	defaultSweepInterval   = 15 * time.Minute
)

// StoreConfig configures a session Store. Zero values fall back to the
// defaults above; Snapshotter and Logger are optional.
type StoreConfig struct {
	SessionTimeout  time.Duration
	SweepInterval   time.Duration
	MaxInteractions int
	Snapshotter     Snapshotter
	Logger          *slog.Logger
}

// Store owns all conversational session state for one process. It tracks the
// most-recently-used session so callers without a session id keep talking in
// the same conversation, bounds each session's interaction history, and
// sweeps expired sessions in the background. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	current  string // most-recently-used session id, "" if none

	timeout         time.Duration
	maxInteractions int

	snap   Snapshotter
	logger *slog.Logger

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// NewStore constructs a session store and starts its expiry sweep.
// Call Close to stop the sweep when shutting down.
func NewStore(cfg StoreConfig) *Store {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxInteractions <= 0 {
		cfg.MaxInteractions = defaultMaxInteractions
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		sessions:        make(map[string]*Session),
		timeout:         cfg.SessionTimeout,
		maxInteractions: cfg.MaxInteractions,
		snap:            cfg.Snapshotter,
		logger:          cfg.Logger,
		stopSweep:       make(chan struct{}),
		sweepDone:       make(chan struct{}),
	}

	go s.sweepLoop(cfg.SweepInterval)

	return s
}

// Close stops the background sweep. The store remains usable afterwards but
// expired sessions are no longer collected.
func (s *Store) Close() {
	close(s.stopSweep)
	<-s.sweepDone
}

// GetOrCreateActiveSession returns the most-recently-used session id if that
// session is still active, otherwise mints a fresh session. It never returns
// the id of an inactive session.
func (s *Store) GetOrCreateActiveSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" && s.isActiveLocked(s.current) {
		return s.current
	}
	return s.createSessionLocked().ID
}

// CreateNewSession unconditionally mints a fresh session and makes it the
// default for subsequent id-less calls.
func (s *Store) CreateNewSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.createSessionLocked()
	s.logger.Info("created new session", "session_id", sess.ID)
	return sess.ID
}

// StoreInteraction appends one query/response exchange to a session,
// truncates the history to the configured bound (oldest dropped first),
// bumps the activity timestamp and folds extracted entities into the
// client/service context (last write wins). An empty sessionID resolves to
// the active session; unknown ids create the session on the fly. The
// resolved session id is returned.
func (s *Store) StoreInteraction(sessionID string, agent models.AgentType, query, response string, extracted map[string]string, intent string) string {
	s.mu.Lock()

	if sessionID == "" {
		if s.current != "" && s.isActiveLocked(s.current) {
			sessionID = s.current
		} else {
			sessionID = s.createSessionLocked().ID
		}
	}

	sess, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		sess = &Session{ID: sessionID, CreatedAt: now, LastActiveAt: now}
		s.sessions[sessionID] = sess
	}

	now := time.Now()
	sess.LastActiveAt = now
	sess.Interactions = append(sess.Interactions, Interaction{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Timestamp:     now,
		Query:         query,
		Response:      response,
		ExtractedData: maps.Clone(extracted),
		Intent:        intent,
		AgentType:     agent,
	})
	if n := len(sess.Interactions); n > s.maxInteractions {
		sess.Interactions = sess.Interactions[n-s.maxInteractions:]
	}

	foldContext(sess, extracted, now)

	snap := cloneSession(sess)
	s.mu.Unlock()

	s.snapshot(snap)
	return sessionID
}

// foldContext applies the entity overwrite rules: email/clientEmail and
// name/clientName feed the client context, serviceName/service, serviceType
// and orderId feed the service context. Newest observation wins per field.
func foldContext(sess *Session, extracted map[string]string, now time.Time) {
	if len(extracted) == 0 {
		return
	}

	if v := firstOf(extracted, "email", "clientEmail"); v != "" {
		if sess.ClientContext == nil {
			sess.ClientContext = &ClientContext{}
		}
		sess.ClientContext.Email = v
		sess.ClientContext.LastSearchedAt = now
	}
	if v := firstOf(extracted, "name", "clientName"); v != "" {
		if sess.ClientContext == nil {
			sess.ClientContext = &ClientContext{}
		}
		sess.ClientContext.Name = v
		sess.ClientContext.LastSearchedAt = now
	}

	if v := firstOf(extracted, "serviceName", "service"); v != "" {
		if sess.ServiceContext == nil {
			sess.ServiceContext = &ServiceContext{}
		}
		sess.ServiceContext.ServiceName = v
		sess.ServiceContext.LastInteractionAt = now
	}
	if v := extracted["serviceType"]; v != "" {
		if sess.ServiceContext == nil {
			sess.ServiceContext = &ServiceContext{}
		}
		sess.ServiceContext.ServiceType = v
		sess.ServiceContext.LastInteractionAt = now
	}
	if v := extracted["orderId"]; v != "" {
		if sess.ServiceContext == nil {
			sess.ServiceContext = &ServiceContext{}
		}
		sess.ServiceContext.OrderID = v
		sess.ServiceContext.LastInteractionAt = now
	}
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// GetContext renders a human-readable context summary for inclusion in a
// classifier prompt. An empty sessionID resolves to the active session.
// Returns "" when no session or context exists.
func (s *Store) GetContext(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sessionID == "" {
		sessionID = s.current
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ""
	}

	var b strings.Builder

	if c := sess.ClientContext; c != nil {
		b.WriteString("Recent client context:\n")
		if c.Email != "" {
			fmt.Fprintf(&b, "- Last searched client: %s\n", c.Email)
		}
		if c.Name != "" {
			fmt.Fprintf(&b, "- Client name: %s\n", c.Name)
		}
	}

	if sc := sess.ServiceContext; sc != nil {
		b.WriteString("Recent service context:\n")
		if sc.ServiceName != "" {
			fmt.Fprintf(&b, "- Last service: %s\n", sc.ServiceName)
		}
		if sc.ServiceType != "" {
			fmt.Fprintf(&b, "- Service type: %s\n", sc.ServiceType)
		}
		if sc.OrderID != "" {
			fmt.Fprintf(&b, "- Last order: %s\n", sc.OrderID)
		}
	}

	if n := len(sess.Interactions); n > 0 {
		start := n - 3
		if start < 0 {
			start = 0
		}
		b.WriteString("\nRecent queries:\n")
		for _, entry := range sess.Interactions[start:] {
			fmt.Fprintf(&b, "- %s\n", entry.Query)
		}
	}

	return b.String()
}

// GetRecentInteractions returns up to limit most recent interactions,
// newest last. Unknown sessions yield an empty slice.
func (s *Store) GetRecentInteractions(sessionID string, limit int) []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	n := len(sess.Interactions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Interaction, limit)
	copy(out, sess.Interactions[n-limit:])
	return out
}

// GetSessionStats summarizes a session, or returns nil if it is unknown.
func (s *Store) GetSessionStats(sessionID string) *SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return &SessionStats{
		SessionID:         sessionID,
		TotalInteractions: len(sess.Interactions),
		HasClientContext:  sess.ClientContext != nil,
		HasServiceContext: sess.ServiceContext != nil,
		CreatedAt:         sess.CreatedAt,
		LastActiveAt:      sess.LastActiveAt,
	}
}

// ClientContextFor returns a copy of the session's client context, or nil.
func (s *Store) ClientContextFor(sessionID string) *ClientContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok && sess.ClientContext != nil {
		c := *sess.ClientContext
		return &c
	}
	return nil
}

// ServiceContextFor returns a copy of the session's service context, or nil.
func (s *Store) ServiceContextFor(sessionID string) *ServiceContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok && sess.ServiceContext != nil {
		c := *sess.ServiceContext
		return &c
	}
	return nil
}

// CurrentSessionID returns the most-recently-used session id, or "".
func (s *Store) CurrentSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ClearSession removes a session and reports whether it existed.
func (s *Store) ClearSession(sessionID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	if s.current == sessionID {
		s.current = ""
	}
	s.mu.Unlock()

	if ok {
		s.dropSnapshot(sessionID)
		s.logger.Info("cleared session", "session_id", sessionID)
	}
	return ok
}

// ActiveSessionIDs returns all tracked session ids. The list is not filtered
// by activity; callers filter if they need to.
func (s *Store) ActiveSessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// IsSessionActive reports whether a session exists and has been active within
// the timeout window.
func (s *Store) IsSessionActive(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isActiveLocked(sessionID)
}

func (s *Store) isActiveLocked(sessionID string) bool {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	return time.Since(sess.LastActiveAt) < s.timeout
}

// createSessionLocked mints and installs a fresh session; caller holds the
// write lock.
func (s *Store) createSessionLocked() *Session {
	now := time.Now()
	sess := &Session{
		ID:           "session_" + uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[sess.ID] = sess
	s.current = sess.ID
	return sess
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopSweep:
			return
		}
	}
}

// sweepExpired deletes every session whose last activity is older than the
// timeout. Runs under the store lock so it never removes a session mid-update.
func (s *Store) sweepExpired() {
	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if time.Since(sess.LastActiveAt) >= s.timeout {
			delete(s.sessions, id)
			if s.current == id {
				s.current = ""
			}
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.dropSnapshot(id)
	}
	if len(expired) > 0 {
		s.logger.Info("swept expired sessions", "count", len(expired))
	}
}

func (s *Store) snapshot(sess *Session) {
	if s.snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snap.Save(ctx, sess); err != nil {
			s.logger.Warn("session snapshot failed", "session_id", sess.ID, "error", err)
		}
	}()
}

func (s *Store) dropSnapshot(sessionID string) {
	if s.snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snap.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("session snapshot delete failed", "session_id", sessionID, "error", err)
		}
	}()
}

func cloneSession(sess *Session) *Session {
	clone := *sess
	clone.Interactions = make([]Interaction, len(sess.Interactions))
	copy(clone.Interactions, sess.Interactions)
	for i := range clone.Interactions {
		clone.Interactions[i].ExtractedData = maps.Clone(clone.Interactions[i].ExtractedData)
	}
	if sess.ClientContext != nil {
		c := *sess.ClientContext
		clone.ClientContext = &c
	}
	if sess.ServiceContext != nil {
		c := *sess.ServiceContext
		clone.ServiceContext = &c
	}
	return &clone
}
