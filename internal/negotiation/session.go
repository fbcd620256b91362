package negotiation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
)

// Session is the client handle of one negotiation. Status transitions are
// serialized per session and are monotonic: once Completed or Cancelled the
// handle rejects further transitions and sends, but its log stays readable.
type Session struct {
	ID     string
	Match  models.Match
	UserID string

	remote Remote
	lists  ListRemover
	poller *Poller
	logger *zap.Logger

	mu      sync.Mutex
	removed bool
}

func newSession(rec models.NegotiationSession, match models.Match, userID string, remote Remote, lists ListRemover, poller *Poller, logger *zap.Logger) *Session {
	return &Session{
		ID:     rec.ID,
		Match:  match,
		UserID: userID,
		remote: remote,
		lists:  lists,
		poller: poller,
		logger: logger.With(zap.String("session_id", rec.ID), zap.String("match_id", match.ID)),
	}
}

// Status returns the last known status.
func (s *Session) Status() models.NegotiationStatus { return s.poller.Status() }

// Messages returns the current message log, oldest first.
func (s *Session) Messages() []models.Message { return s.poller.Messages() }

// Send posts a message; see Poller.Send.
func (s *Session) Send(ctx context.Context, content string) error {
	return s.poller.Send(ctx, content)
}

// Refresh polls the server once outside the regular interval.
func (s *Session) Refresh(ctx context.Context) error { return s.poller.PollNow(ctx) }

// Complete concludes the deal. The matched cards are removed from the current
// user's want list (TheyHaveWhatIWant) or have list (IHaveWhatTheyWant) first,
// after a fresh poll confirms the session is still Active; the session is
// marked Completed only after the removal was accepted. A
// rejected removal leaves the session Active and returns a Conflict failure.
// The removal is issued at most once per session, even when the status update
// fails and Complete is retried.
func (s *Session) Complete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.Status(); st.Terminal() {
		return failure.ValidationErr("complete", "session is already "+string(st))
	}
	kind, hasList := s.Match.RemovalList()
	if hasList && len(s.Match.MatchedCards) == 0 {
		return failure.ValidationErr("complete", "match has no cards to trade")
	}

	if hasList && !s.removed {
		// The cached status may be a poll interval old and the removal cannot
		// be undone, so confirm the session is still open first.
		if err := s.poller.PollNow(ctx); err != nil {
			return failure.Classify("complete: refresh status", err)
		}
		if st := s.Status(); st.Terminal() {
			return failure.ConflictErr("complete", errors.New("session was "+string(st)+" by the counterpart"))
		}
		if err := s.lists.RemoveEntries(ctx, s.UserID, s.Match.CardIDs(), kind); err != nil {
			s.logger.Warn("card removal rejected, session stays active", zap.Error(err))
			return asConflict("complete: remove cards", err)
		}
		s.removed = true
	}

	if err := s.remote.Complete(ctx, s.ID); err != nil {
		if errors.Is(err, failure.ErrConflict) {
			_ = s.poller.PollNow(ctx)
		}
		return failure.Classify("complete", err)
	}

	s.poller.observe(models.StatusCompleted)
	s.poller.halt()
	s.logger.Info("deal completed", zap.Int("cards", len(s.Match.MatchedCards)))
	return nil
}

// Cancel abandons the negotiation without touching any list.
func (s *Session) Cancel(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.Status(); st.Terminal() {
		return failure.ValidationErr("cancel", "session is already "+string(st))
	}
	if err := s.remote.Cancel(ctx, s.ID, reason); err != nil {
		if errors.Is(err, failure.ErrConflict) {
			_ = s.poller.PollNow(ctx)
		}
		return failure.Classify("cancel", err)
	}

	s.poller.observe(models.StatusCancelled)
	s.poller.halt()
	s.logger.Info("negotiation cancelled", zap.String("reason", reason))
	return nil
}

// Close stops the message transport. The session itself is not changed.
func (s *Session) Close() { s.poller.Stop() }

// asConflict keeps classified errors and turns every other removal error
// into a Conflict so the caller is told to retry.
func asConflict(op string, err error) error {
	switch failure.KindOf(err) {
	case failure.Validation, failure.Conflict, failure.Transient:
		return err
	}
	return failure.ConflictErr(op, err)
}
