// Package storagetest provides a testify double of storage.Storage.
package storagetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
	"traderadar/backend/internal/storage"
)

// AnyCtx matches any context argument.
var AnyCtx = mock.Anything

var _ storage.Storage = (*MockStorage)(nil)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockStorage) GetList(ctx context.Context, userID string, kind models.ListKind) ([]models.TradeListEntry, error) {
	args := m.Called(ctx, userID, kind)
	entries, _ := args.Get(0).([]models.TradeListEntry)
	return entries, args.Error(1)
}

func (m *MockStorage) AddListEntry(ctx context.Context, userID string, kind models.ListKind, entry models.TradeListEntry) error {
	args := m.Called(ctx, userID, kind, entry)
	return args.Error(0)
}

func (m *MockStorage) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	args := m.Called(ctx, userID, cardIDs, kind)
	return args.Error(0)
}

func (m *MockStorage) SetLocation(ctx context.Context, userID string, c geo.Coordinate) error {
	args := m.Called(ctx, userID, c)
	return args.Error(0)
}

func (m *MockStorage) GetLocation(ctx context.Context, userID string) (*geo.Coordinate, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*geo.Coordinate)
	return c, args.Error(1)
}

func (m *MockStorage) AddUserToScanning(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveUserFromScanning(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStorage) FindNearbyUsers(ctx context.Context, userID string, radiusMeters float64) ([]models.Profile, error) {
	args := m.Called(ctx, userID, radiusMeters)
	profiles, _ := args.Get(0).([]models.Profile)
	return profiles, args.Error(1)
}

func (m *MockStorage) OpenSession(ctx context.Context, userID string, req negotiation.OpenRequest) (*models.NegotiationSession, error) {
	args := m.Called(ctx, userID, req)
	s, _ := args.Get(0).(*models.NegotiationSession)
	return s, args.Error(1)
}

func (m *MockStorage) GetSessionByID(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	args := m.Called(ctx, sessionID)
	s, _ := args.Get(0).(*models.NegotiationSession)
	return s, args.Error(1)
}

func (m *MockStorage) GetSessionsForUser(ctx context.Context, userID string) ([]models.NegotiationSession, error) {
	args := m.Called(ctx, userID)
	sessions, _ := args.Get(0).([]models.NegotiationSession)
	return sessions, args.Error(1)
}

func (m *MockStorage) TransitionSession(ctx context.Context, sessionID string, to models.NegotiationStatus, reason string) error {
	args := m.Called(ctx, sessionID, to, reason)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(ctx context.Context, sessionID, senderID, content string) (*models.MessageRecord, error) {
	args := m.Called(ctx, sessionID, senderID, content)
	msg, _ := args.Get(0).(*models.MessageRecord)
	return msg, args.Error(1)
}

func (m *MockStorage) GetMessages(ctx context.Context, sessionID string) ([]models.MessageRecord, error) {
	args := m.Called(ctx, sessionID)
	msgs, _ := args.Get(0).([]models.MessageRecord)
	return msgs, args.Error(1)
}
