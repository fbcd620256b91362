package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/models"
)

// Poller is the message transport of one session. It refetches the whole log
// on a fixed interval and replaces the local copy wholesale; it is not a delta
// protocol. Polls are serialized, so at most one is in flight.
type Poller struct {
	SessionID string
	ViewerID  string

	remote   Remote
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	pollMu   sync.Mutex

	// OnUpdate is called after every applied poll.
	OnUpdate func()

	mu       sync.RWMutex
	messages []models.Message
	status   models.NegotiationStatus
	closed   bool
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a stopped poller for sessionID as seen by viewerID.
// timeout bounds every remote call it makes.
func NewPoller(remote Remote, sessionID, viewerID string, status models.NegotiationStatus, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = config.DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		SessionID: sessionID,
		ViewerID:  viewerID,
		remote:    remote,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With(zap.String("session_id", sessionID)),
		status:    status,
		messages:  []models.Message{},
	}
}

// Start launches the polling loop. It polls immediately, then every interval,
// until Stop is called, ctx ends or a terminal status is observed.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the loop and waits for it. Responses arriving afterwards are
// discarded; the last log stays readable. It must not be called from OnUpdate.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.halt()
}

// halt ends the loop but keeps accepting explicit polls, so a terminal
// session can still refresh its log once.
func (p *Poller) halt() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Messages returns a copy of the local log ordered by SentAt.
func (p *Poller) Messages() []models.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Status returns the last known status.
func (p *Poller) Status() models.NegotiationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.tick(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("poll failed",
				zap.String("kind", failure.KindOf(err).String()), zap.Error(err))
		}
		if p.Status().Terminal() {
			p.logger.Info("session is terminal, polling stopped", zap.String("status", string(p.Status())))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollNow fetches the log once, after any poll already in flight.
func (p *Poller) PollNow(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()
	return p.fetch(ctx)
}

// tick is the scheduled poll; it is skipped while another poll is in flight.
func (p *Poller) tick(ctx context.Context) error {
	if !p.pollMu.TryLock() {
		return nil
	}
	defer p.pollMu.Unlock()
	return p.fetch(ctx)
}

func (p *Poller) fetch(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	snap, err := p.remote.Poll(callCtx, p.SessionID)
	if err != nil {
		return failure.Classify("poll", err)
	}
	msgs, err := p.project(snap)
	if err != nil {
		return err
	}
	p.apply(snap.Status, msgs)
	return nil
}

// apply swaps in a poll result unless the poller was stopped meanwhile.
func (p *Poller) apply(status models.NegotiationStatus, msgs []models.Message) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Debug("discarding poll result after stop")
		return
	}
	p.messages = msgs
	if !p.status.Terminal() {
		p.status = status
	}
	onUpdate := p.OnUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate()
	}
}

// observe records a status learned outside of polling, e.g. after a transition.
// A terminal status is never replaced.
func (p *Poller) observe(status models.NegotiationStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.Terminal() {
		p.status = status
	}
}

func (p *Poller) project(snap models.Snapshot) ([]models.Message, error) {
	if !snap.Status.Valid() {
		return nil, failure.PermanentErr("poll", fmt.Errorf("unknown status %q", snap.Status))
	}
	msgs := make([]models.Message, 0, len(snap.Messages))
	seen := make(map[string]struct{}, len(snap.Messages))
	for _, r := range snap.Messages {
		if r.ID == "" || r.SentAt.IsZero() {
			return nil, failure.PermanentErr("poll", errors.New("message without id or timestamp"))
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		msgs = append(msgs, models.ProjectMessage(r, p.ViewerID))
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

// Send posts a message. Nothing is appended locally: on success an immediate
// poll brings the message back from the server; on failure the error is
// returned and the log is unchanged. Terminal sessions refuse new messages.
func (p *Poller) Send(ctx context.Context, content string) error {
	if st := p.Status(); st.Terminal() {
		return failure.ValidationErr("send", "session is "+string(st))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return failure.ValidationErr("send", "empty message")
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.remote.Send(callCtx, p.SessionID, content)
	cancel()
	if err != nil {
		if errors.Is(err, failure.ErrConflict) {
			// The server saw a terminal status first; pick it up.
			_ = p.PollNow(ctx)
		}
		return failure.Classify("send", err)
	}

	// Waits out a poll that may predate the send, then fetches afresh.
	if err := p.PollNow(ctx); err != nil {
		p.logger.Warn("poll after send failed", zap.Error(err))
	}
	return nil
}
