package radar_test

import (
	"context"
	"sync"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/radar"

	"github.com/stretchr/testify/mock"
)

// MockListStore is a testify double for radar.ListStore.
type MockListStore struct {
	mock.Mock
}

func (m *MockListStore) WantList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TradeListEntry), args.Error(1)
}

func (m *MockListStore) HaveList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TradeListEntry), args.Error(1)
}

func (m *MockListStore) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	args := m.Called(ctx, userID, cardIDs, kind)
	return args.Error(0)
}

// MockPool is a testify double for radar.CandidatePool.
type MockPool struct {
	mock.Mock
}

func (m *MockPool) NearbyUsers(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

// MockDirectory is a testify double for radar.SessionDirectory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Sessions(ctx context.Context) ([]models.SessionSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SessionSummary), args.Error(1)
}

// MockGeolocation is a testify double for radar.Geolocation.
type MockGeolocation struct {
	mock.Mock
}

func (m *MockGeolocation) CurrentLocation(ctx context.Context) (*geo.Coordinate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geo.Coordinate), args.Error(1)
}

// MockCanceller is a testify double for radar.SessionCanceller.
type MockCanceller struct {
	mock.Mock
}

func (m *MockCanceller) Cancel(ctx context.Context, sessionID, reason string) error {
	args := m.Called(ctx, sessionID, reason)
	return args.Error(0)
}

// fakeSource returns queued inputs; the last one repeats. A non-nil gate
// blocks Collect until it is closed.
type fakeSource struct {
	mu     sync.Mutex
	inputs []radar.Input
	err    error
	calls  int
	gate   chan struct{}
}

func (f *fakeSource) Collect(ctx context.Context) (radar.Input, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			// Simulate a response that arrives after cancellation.
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return radar.Input{}, f.err
	}
	in := f.inputs[0]
	if len(f.inputs) > 1 {
		f.inputs = f.inputs[1:]
	}
	return in, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
