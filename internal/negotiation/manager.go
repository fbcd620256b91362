package negotiation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
)

// Manager keeps one Session per match for the current user.
type Manager struct {
	UserID       string
	Remote       Remote
	Lists        ListRemover
	PollInterval time.Duration
	// CallTimeout bounds each poll and send of the sessions' transports.
	CallTimeout time.Duration
	Logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager for userID. Non-positive durations fall back
// to the package defaults.
func NewManager(userID string, remote Remote, lists ListRemover, pollInterval, callTimeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		UserID:       userID,
		Remote:       remote,
		Lists:        lists,
		PollInterval: pollInterval,
		CallTimeout:  callTimeout,
		Logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// OpenSession returns the session handle for match, opening or resuming the
// session on the server and starting its message transport. A handle whose
// session went terminal is replaced when the match has cards again, since a
// new negotiation needs a new session.
func (m *Manager) OpenSession(ctx context.Context, match models.Match) (*Session, error) {
	if match.ID == "" || match.Counterpart.UserID == "" {
		return nil, failure.ValidationErr("open session", "match without id or counterpart")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[match.ID]; ok {
		if !s.Status().Terminal() || len(match.MatchedCards) == 0 {
			return s, nil
		}
		s.Close()
		delete(m.sessions, match.ID)
	}

	rec, err := m.Remote.OpenSession(ctx, OpenRequest{
		MatchID:       match.ID,
		CounterpartID: match.Counterpart.UserID,
		MatchType:     match.Type,
		CardIDs:       match.CardIDs(),
	})
	if err != nil {
		return nil, failure.Classify("open session", err)
	}

	poller := NewPoller(m.Remote, rec.ID, m.UserID, rec.Status, m.PollInterval, m.CallTimeout, m.Logger)
	s := newSession(rec, match, m.UserID, m.Remote, m.Lists, poller, m.Logger)
	m.sessions[match.ID] = s

	if rec.Status.Terminal() {
		// Read-only: one fetch of the log, no loop.
		if err := poller.PollNow(ctx); err != nil {
			m.Logger.Warn("initial poll failed", zap.String("session_id", rec.ID), zap.Error(err))
		}
	} else {
		poller.Start(context.WithoutCancel(ctx))
	}
	m.Logger.Info("session opened",
		zap.String("session_id", rec.ID), zap.String("status", string(rec.Status)))
	return s, nil
}

// Session returns the open handle for matchID, if any.
func (m *Manager) Session(matchID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[matchID]
	return s, ok
}

// CloseSession stops the transport of matchID's session and forgets it.
func (m *Manager) CloseSession(matchID string) {
	m.mu.Lock()
	s, ok := m.sessions[matchID]
	delete(m.sessions, matchID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close stops every open session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
