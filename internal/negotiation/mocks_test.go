package negotiation_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"

	"github.com/stretchr/testify/mock"
)

// MockListRemover is a testify double for negotiation.ListRemover.
type MockListRemover struct {
	mock.Mock
}

func (m *MockListRemover) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	args := m.Called(ctx, userID, cardIDs, kind)
	return args.Error(0)
}

// fakeRemote is an in-memory server of record for one or more sessions.
type fakeRemote struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	clock    time.Time
	seq      int

	pollDelay   time.Duration
	pollErr     error
	sendErr     error
	completeErr error
	malformed   bool

	polls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	completes atomic.Int32
}

type fakeSession struct {
	rec      models.NegotiationSession
	messages []models.MessageRecord
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		sessions: make(map[string]*fakeSession),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRemote) add(rec models.NegotiationSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[rec.ID] = &fakeSession{rec: rec}
}

// post stores a message with a server timestamp, as the counterpart would.
func (f *fakeRemote) post(sessionID, senderID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postLocked(sessionID, senderID, content)
}

func (f *fakeRemote) postLocked(sessionID, senderID, content string) {
	f.seq++
	f.clock = f.clock.Add(time.Second)
	s := f.sessions[sessionID]
	s.messages = append(s.messages, models.MessageRecord{
		ID:        fmt.Sprintf("m%03d", f.seq),
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		SentAt:    f.clock,
	})
}

func (f *fakeRemote) setStatus(sessionID string, st models.NegotiationStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID].rec.Status = st
}

func (f *fakeRemote) status(sessionID string) models.NegotiationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID].rec.Status
}

func (f *fakeRemote) OpenSession(ctx context.Context, req negotiation.OpenRequest) (models.NegotiationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *fakeSession
	for _, s := range f.sessions {
		if s.rec.MatchID != req.MatchID {
			continue
		}
		if s.rec.Status == models.StatusActive {
			return s.rec, nil
		}
		if latest == nil || s.rec.StartedAt.After(latest.rec.StartedAt) {
			latest = s
		}
	}
	if len(req.CardIDs) == 0 {
		if latest == nil {
			return models.NegotiationSession{}, failure.ValidationErr("open", "no session")
		}
		return latest.rec, nil
	}
	f.seq++
	f.clock = f.clock.Add(time.Minute)
	rec := models.NegotiationSession{
		ID:             fmt.Sprintf("s%03d", f.seq),
		MatchID:        req.MatchID,
		User1ID:        "me",
		User2ID:        req.CounterpartID,
		InitiatorID:    "me",
		MatchType:      req.MatchType,
		MatchedCardIDs: req.CardIDs,
		Status:         models.StatusActive,
		StartedAt:      f.clock,
	}
	f.sessions[rec.ID] = &fakeSession{rec: rec}
	return rec, nil
}

func (f *fakeRemote) Poll(ctx context.Context, sessionID string) (models.Snapshot, error) {
	f.polls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.pollDelay > 0 {
		select {
		case <-time.After(f.pollDelay):
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return models.Snapshot{}, f.pollErr
	}
	s := f.sessions[sessionID]
	if f.malformed {
		return models.Snapshot{Status: "bogus"}, nil
	}
	// Return newest first to prove the client sorts.
	msgs := make([]models.MessageRecord, 0, len(s.messages))
	for i := len(s.messages) - 1; i >= 0; i-- {
		msgs = append(msgs, s.messages[i])
	}
	return models.Snapshot{Status: s.rec.Status, Messages: msgs}, nil
}

func (f *fakeRemote) Send(ctx context.Context, sessionID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.sessions[sessionID].rec.Status.Terminal() {
		return failure.ConflictErr("send", fmt.Errorf("session %s is terminal", sessionID))
	}
	f.postLocked(sessionID, "me", content)
	return nil
}

func (f *fakeRemote) transition(sessionID string, to models.NegotiationStatus) error {
	s := f.sessions[sessionID]
	if s.rec.Status.Terminal() {
		return failure.ConflictErr("transition", fmt.Errorf("session %s is %s", sessionID, s.rec.Status))
	}
	s.rec.Status = to
	return nil
}

func (f *fakeRemote) Complete(ctx context.Context, sessionID string) error {
	f.completes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	return f.transition(sessionID, models.StatusCompleted)
}

func (f *fakeRemote) Cancel(ctx context.Context, sessionID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transition(sessionID, models.StatusCancelled)
}
