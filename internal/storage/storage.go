package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
)

// ErrNotFound повертається, коли запис відсутній у PostgreSQL або Redis.
var ErrNotFound = errors.New("not found")

// Redis keys.
const (
	geoKey          = "geo:users"
	scanningKey     = "scanning_users"
	listChangedChan = "lists:changed"
	listLockPrefix  = "lock:lists:"
	matchLockPrefix = "lock:match:"
)

// Storage is the server of record used by the HTTP handlers.
type Storage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)

	GetList(ctx context.Context, userID string, kind models.ListKind) ([]models.TradeListEntry, error)
	AddListEntry(ctx context.Context, userID string, kind models.ListKind, entry models.TradeListEntry) error
	RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error

	SetLocation(ctx context.Context, userID string, c geo.Coordinate) error
	GetLocation(ctx context.Context, userID string) (*geo.Coordinate, error)
	AddUserToScanning(ctx context.Context, userID string) error
	RemoveUserFromScanning(ctx context.Context, userID string) error
	FindNearbyUsers(ctx context.Context, userID string, radiusMeters float64) ([]models.Profile, error)

	OpenSession(ctx context.Context, userID string, req negotiation.OpenRequest) (*models.NegotiationSession, error)
	GetSessionByID(ctx context.Context, sessionID string) (*models.NegotiationSession, error)
	GetSessionsForUser(ctx context.Context, userID string) ([]models.NegotiationSession, error)
	TransitionSession(ctx context.Context, sessionID string, to models.NegotiationStatus, reason string) error

	SaveMessage(ctx context.Context, sessionID, senderID, content string) (*models.MessageRecord, error)
	GetMessages(ctx context.Context, sessionID string) ([]models.MessageRecord, error)
}

// Service реалізує Storage поверх PostgreSQL (gorm) та Redis.
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Cache  *ListCache
	Logger *zap.Logger
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, cache *ListCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:     db,
		Redis:  rdb,
		Cache:  cache,
		Logger: logger,
	}
}

// Migrate створює або оновлює таблиці для всіх моделей.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ListEntry{},
		&models.NegotiationSession{},
		&models.MessageRecord{},
	)
}

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

// GetUser повертає користувача за ID або ErrNotFound.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
