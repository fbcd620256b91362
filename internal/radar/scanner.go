package radar

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
)

// StaleReason is recorded on sessions cancelled because their match vanished.
const StaleReason = "stale"

// Scanner is the match refresh loop. While scanning it recomputes matches on
// a fixed interval and publishes each result as a whole new snapshot.
type Scanner struct {
	Source   Source
	Interval time.Duration
	Logger   *zap.Logger

	// Canceller, when set together with CancelStale, cancels active sessions
	// whose counterpart no longer overlaps with the current user's lists.
	Canceller   SessionCanceller
	CancelStale bool

	// OnPublish is called after every published snapshot.
	OnPublish func([]models.Match)

	snapshot atomic.Pointer[[]models.Match]

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewScanner creates a scanner over src refreshing every interval.
func NewScanner(src Source, interval time.Duration, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{Source: src, Interval: interval, Logger: logger}
}

// StartScanning starts the refresh loop. The first refresh runs immediately.
// Calling it while already scanning is a no-op.
func (s *Scanner) StartScanning(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.generation++
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.generation, s.done)

	s.logger().Info("radar scanning started")
}

// StopScanning cancels the loop, waits for it to exit and clears the published
// matches. A refresh still in flight is discarded.
func (s *Scanner) StopScanning() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.generation++
	s.snapshot.Store(nil)
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger().Info("radar scanning stopped")
}

// Scanning reports whether the loop is running.
func (s *Scanner) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// CurrentMatches returns a copy of the latest published snapshot.
func (s *Scanner) CurrentMatches() []models.Match {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	out := make([]models.Match, len(*p))
	copy(out, *p)
	return out
}

func (s *Scanner) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	interval := s.Interval
	if interval <= 0 {
		interval = config.DefaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.refresh(ctx, gen)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// refresh runs one cycle. Failures keep the previous snapshot.
func (s *Scanner) refresh(ctx context.Context, gen uint64) {
	in, err := s.Source.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger().Warn("radar refresh skipped",
			zap.String("kind", failure.KindOf(err).String()), zap.Error(err))
		return
	}

	matches := in.Matches()
	if s.CancelStale && s.Canceller != nil {
		s.cancelStale(ctx, in, matches)
	}

	if !s.publish(gen, matches) {
		s.logger().Debug("discarding late radar refresh")
		return
	}
	if s.OnPublish != nil {
		s.OnPublish(matches)
	}
}

func (s *Scanner) publish(gen uint64, matches []models.Match) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.snapshot.Store(&matches)
	return true
}

// cancelStale cancels the active session behind every History match that is
// still Active: the overlap that justified the negotiation is gone.
func (s *Scanner) cancelStale(ctx context.Context, in Input, matches []models.Match) {
	latest := latestSessions(in.Sessions)
	for i := range matches {
		m := &matches[i]
		if m.Type != models.History || m.Status != models.StatusActive {
			continue
		}
		sess, ok := latest[m.Counterpart.UserID]
		if !ok {
			continue
		}
		if err := s.Canceller.Cancel(ctx, sess.ID, StaleReason); err != nil {
			s.logger().Warn("failed to cancel stale session",
				zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		m.Status = models.StatusCancelled
		s.logger().Info("cancelled stale session",
			zap.String("session_id", sess.ID), zap.String("counterpart", m.Counterpart.UserID))
	}
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
