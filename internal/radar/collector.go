package radar

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

// Input is everything ComputeMatches needs for one refresh.
type Input struct {
	Self       SelfLists
	Candidates []Candidate
	Sessions   []models.SessionSummary
	Location   *geo.Coordinate
}

// Matches runs the matching engine over the input.
func (in Input) Matches() []models.Match {
	return ComputeMatches(in.Self, in.Candidates, in.Sessions, in.Location)
}

// Source produces the input of one refresh cycle.
type Source interface {
	Collect(ctx context.Context) (Input, error)
}

// Collector gathers an Input from the collaborators. Every call is bounded by
// Timeout; candidate lists are fetched concurrently.
type Collector struct {
	UserID      string
	Lists       ListStore
	Pool        CandidatePool
	Directory   SessionDirectory
	Location    Geolocation
	Timeout     time.Duration
	Concurrency int
	Logger      *zap.Logger
}

// Collect fetches the current user's lists, the nearby pool, each candidate's
// lists, the session directory and the current location. Any failure except
// an unavailable location fails the whole cycle, so a partial pool is never
// published.
func (c *Collector) Collect(ctx context.Context) (Input, error) {
	in := Input{Self: SelfLists{UserID: c.UserID}}

	var err error
	if in.Self.Want, in.Self.Have, err = c.lists(ctx, c.UserID); err != nil {
		return Input{}, failure.Classify("collect own lists", err)
	}

	var profiles []models.Profile
	if err := c.call(ctx, func(ctx context.Context) (err error) {
		profiles, err = c.Pool.NearbyUsers(ctx)
		return err
	}); err != nil {
		return Input{}, failure.Classify("collect nearby users", err)
	}

	if err := c.call(ctx, func(ctx context.Context) (err error) {
		in.Sessions, err = c.Directory.Sessions(ctx)
		return err
	}); err != nil {
		return Input{}, failure.Classify("collect sessions", err)
	}

	if c.Location != nil {
		if err := c.call(ctx, func(ctx context.Context) (err error) {
			in.Location, err = c.Location.CurrentLocation(ctx)
			return err
		}); err != nil {
			c.logger().Warn("location unavailable, distances omitted", zap.Error(err))
			in.Location = nil
		}
	}

	in.Candidates = make([]Candidate, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency())
	for i, p := range profiles {
		if p.UserID == c.UserID {
			continue
		}
		g.Go(func() error {
			want, have, err := c.lists(gctx, p.UserID)
			if err != nil {
				return err
			}
			in.Candidates[i] = Candidate{Profile: p, Want: want, Have: have}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Input{}, failure.Classify("collect candidate lists", err)
	}
	return in, nil
}

func (c *Collector) lists(ctx context.Context, userID string) (want, have []models.TradeListEntry, err error) {
	if err = c.call(ctx, func(ctx context.Context) (err error) {
		want, err = c.Lists.WantList(ctx, userID)
		return err
	}); err != nil {
		return nil, nil, err
	}
	err = c.call(ctx, func(ctx context.Context) (err error) {
		have, err = c.Lists.HaveList(ctx, userID)
		return err
	})
	return want, have, err
}

func (c *Collector) call(ctx context.Context, fn func(context.Context) error) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = config.DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (c *Collector) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return config.CandidateFetchConcurrency
}

func (c *Collector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
